package notify

import (
	"fmt"
	"strings"
	"text/template"
)

// Decision templates, keyed by the name carried in the queued task.
const (
	TemplateAccepted = "accepted"
	TemplateDeclined = "declined"
)

type decisionTemplate struct {
	subject string
	body    *template.Template
}

var decisionTemplates = map[string]decisionTemplate{
	TemplateAccepted: {
		subject: "Your application has been accepted",
		body: template.Must(template.New(TemplateAccepted).Parse(
			"Hi {{.Username}},\n\n" +
				"Good news: your application has been accepted. " +
				"Keep an eye on your inbox for event details.\n")),
	},
	TemplateDeclined: {
		subject: "Your application has been declined",
		body: template.Must(template.New(TemplateDeclined).Parse(
			"Hi {{.Username}},\n\n" +
				"Unfortunately your application has been declined this time. " +
				"We hope to see you at a future event.\n")),
	},
}

// RenderDecision produces the subject and body for a decision email.
func RenderDecision(name, username string) (subject, body string, err error) {
	tmpl, ok := decisionTemplates[name]
	if !ok {
		return "", "", fmt.Errorf("notify: unknown template %q", name)
	}

	var buf strings.Builder
	if err := tmpl.body.Execute(&buf, struct{ Username string }{Username: username}); err != nil {
		return "", "", fmt.Errorf("notify: rendering %q: %w", name, err)
	}
	return tmpl.subject, buf.String(), nil
}
