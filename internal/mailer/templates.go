package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

var emailTmpl = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #2d3338; max-width: 640px; margin: 0 auto;">
  <h2 style="color: #3a7d44;">{{.Title}}</h2>
  <p>Hello {{.GuardianName}}, {{.Intro}}</p>
  <table style="border-collapse: collapse; margin: 16px 0;">
    <tr><td style="padding: 4px 12px 4px 0; color: #6b7177;">Student</td><td>{{.StudentName}}</td></tr>
    <tr><td style="padding: 4px 12px 4px 0; color: #6b7177;">Professional</td><td>{{.ProfessionalName}}</td></tr>
    <tr><td style="padding: 4px 12px 4px 0; color: #6b7177;">Service</td><td>{{.Service}}</td></tr>
    <tr><td style="padding: 4px 12px 4px 0; color: #6b7177;">When</td><td>{{.When}}</td></tr>
    {{if .Location}}<tr><td style="padding: 4px 12px 4px 0; color: #6b7177;">Where</td><td>{{.Location}}</td></tr>{{end}}
  </table>
  <p>
    <a href="{{.ConfirmURL}}" style="background: #3a7d44; color: #fff; padding: 10px 18px; text-decoration: none; border-radius: 4px;">Confirm</a>
    &nbsp;
    <a href="{{.CancelURL}}" style="background: #b14a4a; color: #fff; padding: 10px 18px; text-decoration: none; border-radius: 4px;">Cancel</a>
  </p>
  {{if .HasImage}}<p><img src="cid:week.png" alt="week schedule" style="max-width: 100%;"></p>{{end}}
  <p style="color: #9aa0a6; font-size: 12px;">The links above expire and can be used once.</p>
</body>
</html>`))

type emailData struct {
	Title            string
	Intro            string
	GuardianName     string
	StudentName      string
	ProfessionalName string
	Service          string
	Location         string
	When             string
	ConfirmURL       template.URL
	CancelURL        template.URL
	HasImage         bool
}

func renderEmail(data emailData) (string, error) {
	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}
