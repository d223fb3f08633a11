package certpdf

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/mandolyte/mdtopdf"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
)

var certificateTmpl = template.Must(template.New("certificate").Parse(`# {{.AppName}}

## Certificate of Completion

This certifies that

### {{.Cert.LearnerName}}

has successfully completed the course

### {{.Cert.CourseTitle}}

---

- Certificate number: **{{.Cert.Number}}**
- Completed on: {{.Cert.CompletedAt.Format "January 2, 2006"}}
- Issued on: {{.Cert.IssuedAt.Format "January 2, 2006"}}

Verify at {{.VerifyURL}}
`))

// Renderer renders certificates to PDF files under dir, which also serves as a cache:
// certificates never change once issued.
type Renderer struct {
	appName string
	baseURL string
	dir     string

	mu sync.Mutex
}

var _ course.CertificateRenderer = (*Renderer)(nil)

func NewRenderer(conf *core.Config) *Renderer {
	return &Renderer{
		appName: conf.AppName,
		baseURL: strings.TrimRight(conf.FrontendBaseURL, "/"),
		dir:     conf.Certificate.PDFDir,
	}
}

// Markdown is the certificate document before PDF conversion.
func (r *Renderer) Markdown(cert course.Certificate) ([]byte, error) {
	var buf bytes.Buffer
	err := certificateTmpl.Execute(&buf, map[string]interface{}{
		"AppName":   r.appName,
		"Cert":      cert,
		"VerifyURL": r.baseURL + "/certificates/" + cert.ID,
	})
	return buf.Bytes(), errors.Wrap(err, "executing certificate template")
}

func (r *Renderer) Render(cert course.Certificate) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pdfPath := filepath.Join(r.dir, cert.ID+".pdf")
	if doc, err := os.ReadFile(pdfPath); err == nil {
		return doc, nil
	}

	content, err := r.Markdown(cert)
	if err != nil {
		return nil, err
	}
	if err = os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating certificates dir")
	}

	renderer := mdtopdf.NewPdfRenderer("P", "A4", pdfPath, "", nil, mdtopdf.LIGHT)
	if err = renderer.Process(content); err != nil {
		_ = os.Remove(pdfPath)
		return nil, errors.Wrap(err, "rendering pdf")
	}
	doc, err := os.ReadFile(pdfPath)
	return doc, errors.Wrap(err, "reading pdf")
}
