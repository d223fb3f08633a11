package certpdf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
)

func testCertificate() course.Certificate {
	at := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	return course.Certificate{
		ID:          course.CertificateID("l1", "c1"),
		Number:      course.CertificateNumber("l1", "c1"),
		LearnerID:   "l1",
		CourseID:    "c1",
		LearnerName: "Ada Lovelace",
		CourseTitle: "Go 101",
		CompletedAt: at,
		IssuedAt:    at,
	}
}

func newTestRenderer(t *testing.T) *Renderer {
	conf := core.NewTestConfig()
	conf.FrontendBaseURL = "https://elimu.test/"
	conf.Certificate.PDFDir = filepath.Join(t.TempDir(), "certs")
	return NewRenderer(conf)
}

func TestRenderer_Markdown(t *testing.T) {
	r := newTestRenderer(t)
	md, err := r.Markdown(testCertificate())
	require.NoError(t, err)

	for _, want := range []string{
		"### Ada Lovelace",
		"### Go 101",
		"Certificate number: **l1-c1**",
		"Completed on: March 14, 2025",
		"https://elimu.test/certificates/" + course.CertificateID("l1", "c1"),
	} {
		assert.Contains(t, string(md), want)
	}
}

func TestRenderer_Render(t *testing.T) {
	r := newTestRenderer(t)
	cert := testCertificate()

	doc, err := r.Render(cert)
	require.NoError(t, err)
	assert.True(t, len(doc) > 4)
	assert.Equal(t, "%PDF", string(doc[:4]))

	// cached
	_, err = os.Stat(filepath.Join(r.dir, cert.ID+".pdf"))
	require.NoError(t, err)
	again, err := r.Render(cert)
	require.NoError(t, err)
	assert.Equal(t, doc, again)
}
