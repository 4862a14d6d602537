package services

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/ebdesignwerks/quotebackend/models"
)

const confirmationSubject = "Quote Request Received - EB Design Werks"

type emailView struct {
	Request      models.QuoteRequest
	Attachments  []models.ResolvedAttachment
	BusinessName string
	ContactEmail string
}

func (v emailView) DescriptionLines() []string {
	return strings.Split(v.Request.ProjectDescription, "\n")
}

var businessHTML = htmltemplate.Must(htmltemplate.New("business").Parse(`<html>
<body style="font-family: Arial, sans-serif;">
<h2>New Quote Request</h2>
<p><strong>Name:</strong> {{.Request.Name}}</p>
<p><strong>Email:</strong> {{.Request.Email}}</p>
<p><strong>Phone:</strong> {{.Request.PhoneOrPlaceholder}}</p>
<p><strong>Company:</strong> {{.Request.CompanyOrPlaceholder}}</p>
<p><strong>Service:</strong> {{.Request.Service}}</p>
<p><strong>Timeline:</strong> {{.Request.TimelineOrPlaceholder}}</p>
<p><strong>Budget:</strong> {{.Request.BudgetOrPlaceholder}}</p>
<h3>Project Description:</h3>
<p>{{range $i, $line := .DescriptionLines}}{{if $i}}<br>{{end}}{{$line}}{{end}}</p>
{{- if .Attachments}}
<h3>Attachments:</h3>
<pre>
{{range .Attachments}}{{.FileName}}: {{.URL}}
{{end}}</pre>
{{- end}}
</body>
</html>
`))

var businessText = texttemplate.Must(texttemplate.New("business").Parse(`New Quote Request from {{.Request.Name}}

Name: {{.Request.Name}}
Email: {{.Request.Email}}
Phone: {{.Request.PhoneOrPlaceholder}}
Company: {{.Request.CompanyOrPlaceholder}}
Service: {{.Request.Service}}
Timeline: {{.Request.TimelineOrPlaceholder}}
Budget: {{.Request.BudgetOrPlaceholder}}

Project Description:
{{.Request.ProjectDescription}}
{{- if .Attachments}}

Attached Files:
{{range .Attachments}}{{.FileName}}: {{.URL}}
{{end}}
{{- end}}
`))

var confirmationHTML = htmltemplate.Must(htmltemplate.New("confirmation").Parse(`<html>
<body style="font-family: Arial, sans-serif;">
<h2>Thank you for your quote request!</h2>
<p>Hi {{.Request.Name}},</p>
<p>We've received your quote request for {{.Request.Service}}. Our team will review your project details and get back to you within 24 hours.</p>
<h3>Your Request Summary:</h3>
<p><strong>Service:</strong> {{.Request.Service}}</p>
<p><strong>Timeline:</strong> {{.Request.TimelineOrPlaceholder}}</p>
<p><strong>Budget:</strong> {{.Request.BudgetOrPlaceholder}}</p>
<p>If you have any urgent questions, please feel free to email us directly at {{.ContactEmail}}</p>
<p>Best regards,<br>{{.BusinessName}} Team</p>
</body>
</html>
`))

var confirmationText = texttemplate.Must(texttemplate.New("confirmation").Parse(`Thank you for your quote request!

Hi {{.Request.Name}},

We've received your quote request for {{.Request.Service}}. Our team will review your project details and get back to you within 24 hours.

Your Request Summary:
Service: {{.Request.Service}}
Timeline: {{.Request.TimelineOrPlaceholder}}
Budget: {{.Request.BudgetOrPlaceholder}}

If you have any urgent questions, please feel free to email us directly at {{.ContactEmail}}

Best regards,
{{.BusinessName}} Team
`))

func render(html *htmltemplate.Template, text *texttemplate.Template, v emailView) (string, string, error) {
	var h, t bytes.Buffer
	if err := html.Execute(&h, v); err != nil {
		return "", "", err
	}
	if err := text.Execute(&t, v); err != nil {
		return "", "", err
	}
	return h.String(), t.String(), nil
}

func (s *QuoteService) composeBusiness(req models.QuoteRequest, links []models.ResolvedAttachment) (models.NotificationMessage, error) {
	v := emailView{Request: req, Attachments: links, BusinessName: s.cfg.BusinessName, ContactEmail: s.cfg.ContactEmail}
	html, text, err := render(businessHTML, businessText, v)
	if err != nil {
		return models.NotificationMessage{}, err
	}
	return models.NotificationMessage{
		Source:        s.cfg.Sender,
		Recipients:    []string{s.cfg.BusinessRecipient},
		Subject:       "New Quote Request from " + req.Name + " - " + req.Service,
		HTMLBody:      html,
		PlainTextBody: text,
	}, nil
}

func (s *QuoteService) composeConfirmation(req models.QuoteRequest) (models.NotificationMessage, error) {
	v := emailView{Request: req, BusinessName: s.cfg.BusinessName, ContactEmail: s.cfg.ContactEmail}
	html, text, err := render(confirmationHTML, confirmationText, v)
	if err != nil {
		return models.NotificationMessage{}, err
	}
	return models.NotificationMessage{
		Source:        s.cfg.Sender,
		Recipients:    []string{req.Email},
		Subject:       confirmationSubject,
		HTMLBody:      html,
		PlainTextBody: text,
	}, nil
}
