package email

import (
	"bytes"
	"html/template"
)

const (
	SubjectPasswordReset = "Reset your MovieFinder password"
	SubjectContact       = "New contact message"
)

var (
	resetTmpl = template.Must(template.New("reset").Parse(
		`<p>Someone asked to reset the password for this account.</p>
<p><a href="{{.URL}}">Choose a new password</a></p>
<p>The link expires in {{.Expires}}. If you did not ask for this you can ignore this mail.</p>`))

	contactTmpl = template.Must(template.New("contact").Parse(
		`<p><strong>{{.Name}}</strong> &lt;{{.Email}}&gt; wrote:</p>
<blockquote>{{.Message}}</blockquote>`))
)

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func PasswordResetHTML(url, expires string) (string, error) {
	return render(resetTmpl, struct{ URL, Expires string }{url, expires})
}

func ContactHTML(name, email, message string) (string, error) {
	return render(contactTmpl, struct{ Name, Email, Message string }{name, email, message})
}
