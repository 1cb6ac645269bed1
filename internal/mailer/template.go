package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// Message is a rendered email ready for delivery
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// TemplateData is the data available to email templates
type TemplateData struct {
	Username  string
	VerifyURL string
}

const verificationSubject = "Confirm your email"

const verificationText = `Hi {{.Username}},

Follow the link below to confirm your email address:

{{.VerifyURL}}

If you did not create an account, you can safely ignore this message.
`

const verificationHTML = `<html>
<body>
<p>Hi {{.Username}},</p>
<p>Thank you for getting started with userhub. Please confirm your email address by following the link below.</p>
<p><a href="{{.VerifyURL}}">Confirm your email</a></p>
<p>If you did not create an account, you can safely ignore this message.</p>
</body>
</html>
`

type emailTemplate struct {
	subject string
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

// Renderer renders outgoing emails from the built-in templates, one
// per email kind.
type Renderer struct {
	templates map[string]emailTemplate
}

// NewRenderer creates a renderer with all known templates parsed
func NewRenderer() *Renderer {
	return &Renderer{
		templates: map[string]emailTemplate{
			"verification": {
				subject: verificationSubject,
				text:    texttemplate.Must(texttemplate.New("verification.txt").Parse(verificationText)),
				html:    htmltemplate.Must(htmltemplate.New("verification.html").Parse(verificationHTML)),
			},
		},
	}
}

// Render produces the message for the given kind addressed to email
func (r *Renderer) Render(kind, email string, data TemplateData) (*Message, error) {
	tmpl, exists := r.templates[kind]
	if !exists {
		return nil, fmt.Errorf("template not found: %s", kind)
	}

	var text bytes.Buffer
	if err := tmpl.text.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("failed to render text body: %w", err)
	}

	var html bytes.Buffer
	if err := tmpl.html.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to render html body: %w", err)
	}

	return &Message{
		To:       email,
		Subject:  tmpl.subject,
		TextBody: text.String(),
		HTMLBody: html.String(),
	}, nil
}

// VerificationURL builds the confirmation link for the base URL the
// signup request arrived on.
func VerificationURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/api/auth/confirmed_email/" + token
}
