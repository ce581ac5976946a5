package service

import (
	"bytes"
	"fmt"
	"html/template"

	"claimdesk/internal/claim/ports"
)

type messageData struct {
	CompanyName     string
	TrackingNumber  string
	BusinessEmail   string
	SupervisorEmail string
	Passphrase      string
	Link            string
	Expires         string
}

var businessTemplate = template.Must(template.New("business").Parse(`<!DOCTYPE html>
<html>
<body>
<p>Hello,</p>
<p>We received a request to claim <strong>{{.CompanyName}}</strong> on your behalf
(tracking number <strong>{{.TrackingNumber}}</strong>).</p>
<p>Please confirm this email address:</p>
<p><a href="{{.Link}}">Verify my email</a></p>
<p>An account was created for {{.BusinessEmail}}. Your passphrase is
<strong>{{.Passphrase}}</strong>. You can sign in with it once both verifications are complete.</p>
<p>Your supervisor at {{.SupervisorEmail}} has also been asked to confirm the claim.</p>
</body>
</html>
`))

var supervisorTemplate = template.Must(template.New("supervisor").Parse(`<!DOCTYPE html>
<html>
<body>
<p>Hello,</p>
<p>{{.BusinessEmail}} asked to manage the listing <strong>{{.CompanyName}}</strong>
(tracking number <strong>{{.TrackingNumber}}</strong>) and named you as their supervisor.</p>
<p>If this is correct, please confirm:</p>
<p><a href="{{.Link}}">Confirm this claim</a></p>
<p>The link can be used once and expires on {{.Expires}}.</p>
<p>The account passphrase issued for this claim is <strong>{{.Passphrase}}</strong>.</p>
<p>If you do not recognise this request, ignore this email.</p>
</body>
</html>
`))

func render(tmpl *template.Template, data messageData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

func businessEmail(data messageData) (ports.Email, error) {
	body, err := render(businessTemplate, data)
	if err != nil {
		return ports.Email{}, err
	}
	return ports.Email{
		To:       data.BusinessEmail,
		Subject:  fmt.Sprintf("Confirm your claim for %s", data.CompanyName),
		HTMLBody: body,
	}, nil
}

func supervisorEmail(data messageData) (ports.Email, error) {
	body, err := render(supervisorTemplate, data)
	if err != nil {
		return ports.Email{}, err
	}
	return ports.Email{
		To:       data.SupervisorEmail,
		Subject:  fmt.Sprintf("Please confirm a claim for %s", data.CompanyName),
		HTMLBody: body,
	}, nil
}
