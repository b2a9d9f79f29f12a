package notify

import (
	"bytes"
	"fmt"
	"text/template"
)

type templateData struct {
	UserName string
	Code     string
	Link     string
}

type message struct {
	subject string
	body    *template.Template
	sms     *template.Template
}

var (
	confirmMessage = message{
		subject: "Confirm your Linstagram account",
		body: template.Must(template.New("confirm").Parse(
			"Hi {{.UserName}},\n\nYour Linstagram confirmation code is {{.Code}}.\n\nIf you did not sign up, ignore this email.\n")),
		sms: template.Must(template.New("confirm_sms").Parse(
			"{{.Code}} is your Linstagram code.")),
	}
	resetMessage = message{
		subject: "Reset your Linstagram password",
		body: template.Must(template.New("reset").Parse(
			"Hi {{.UserName}},\n\nUse the link below to choose a new password:\n\n{{.Link}}\n\nThe link expires soon and works once.\n")),
		sms: template.Must(template.New("reset_sms").Parse(
			"Reset your Linstagram password: {{.Link}}")),
	}
	changedMessage = message{
		subject: "Your Linstagram password was changed",
		body: template.Must(template.New("changed").Parse(
			"Hi {{.UserName}},\n\nThe password of your account was just changed. If this was not you, reset it now.\n")),
		sms: template.Must(template.New("changed_sms").Parse(
			"Your Linstagram password was changed.")),
	}
)

func render(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
