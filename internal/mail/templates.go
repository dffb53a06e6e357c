package mail

import (
	"bytes"
	"html/template"
)

type linkData struct {
	Name string
	Link string
}

var verificationTmpl = template.Must(template.New("verify").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
	<h2>Confirm your email</h2>
	<p>Hello{{if .Name}}, {{.Name}}{{end}}!</p>
	<p>Follow the link below to activate your account. The link is valid for one hour.</p>
	<p><a href="{{.Link}}">{{.Link}}</a></p>
</body>
</html>`))

var resetTmpl = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
	<h2>Password reset</h2>
	<p>Hello{{if .Name}}, {{.Name}}{{end}}!</p>
	<p>Someone asked to reset the password for this account. If it was you, follow the link below within one hour.</p>
	<p><a href="{{.Link}}">{{.Link}}</a></p>
	<p>If you did not ask for a reset, ignore this email.</p>
</body>
</html>`))

func render(t *template.Template, data linkData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
