package core

import (
	"bytes"
	"encoding/base64"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailMessage_Render(t *testing.T) {
	tests := []struct {
		name     string
		msg      EmailMessage
		wantText []string
		wantHTML []string
		wantErr  bool
	}{
		{
			name:     "plain body",
			msg:      EmailMessage{Subject: "Hi", BodyStr: "just text"},
			wantText: []string{"just text"},
		},
		{
			name: "template",
			msg: EmailMessage{
				TemplateName: "certificate_issued",
				TemplateData: map[string]interface{}{
					"LearnerName":       "Ada",
					"CourseTitle":       "Go 101",
					"CourseID":          "c1",
					"CertificateID":     "cert-1",
					"CertificateNumber": "l1-c1",
				},
			},
			wantText: []string{"Hi Ada,", `You have completed "Go 101".`, "l1-c1", "https://elimu.test/certificates/cert-1", "The Elimu team"},
			wantHTML: []string{"<strong>Go 101</strong>", `href="https://elimu.test/certificates/cert-1"`},
		},
		{
			name: "missing template data",
			msg: EmailMessage{
				TemplateName: "quiz_validated",
				TemplateData: map[string]interface{}{"LearnerName": "Ada"},
			},
			wantErr: true,
		},
		{name: "unknown template renders nothing", msg: EmailMessage{TemplateName: "lol"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Render("Elimu", "https://elimu.test")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, s := range tt.wantText {
				assert.Contains(t, tt.msg.TextContent, s)
			}
			for _, s := range tt.wantHTML {
				assert.Contains(t, tt.msg.HTMLContent, s)
			}
			if tt.wantText == nil && tt.wantHTML == nil {
				assert.False(t, tt.msg.HasContent())
			}
		})
	}
}

func TestEmailMessage_Attach(t *testing.T) {
	msg := EmailMessage{To: []mail.Address{{Address: "ada@test.cd"}}}
	require.NoError(t, msg.Attach(bytes.NewBufferString("%PDF-1.3 fake"), "cert.pdf", "application/pdf"))

	require.True(t, msg.HasAttachments())
	at := msg.Attachments[0]
	assert.Equal(t, "cert.pdf", at.Filename)
	assert.Equal(t, "application/pdf", at.ContentType)

	decoded, err := base64.StdEncoding.DecodeString(at.Content.String())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3 fake", string(decoded))
}
