package mailer

import "text/template"

type emailTemplate struct {
	subject string
	body    *template.Template
}

var templates = map[string]emailTemplate{
	TemplateSellerRegistered: {
		subject: "New seller registration awaiting review",
		body: template.Must(template.New(TemplateSellerRegistered).Parse(`A new seller registered on Watch Pros.

Company:      {{.CompanyName}}
Display name: {{.WatchProsName}}
Contact:      {{.FirstName}} {{.LastName}} <{{.Email}}>
Country:      {{.Country}}
Seller id:    {{.ID}}

Review the submitted documents and approve or decline the account.
`)),
	},
	TemplateSellerApproved: {
		subject: "Your Watch Pros seller account is verified",
		body: template.Must(template.New(TemplateSellerApproved).Parse(`Hello {{.FirstName}},

Your seller account {{.WatchProsName}} has been verified. You can now publish listings.

The Watch Pros team
`)),
	},
	TemplateSellerDeclined: {
		subject: "Your Watch Pros seller application",
		body: template.Must(template.New(TemplateSellerDeclined).Parse(`Hello {{.FirstName}},

We could not verify the seller account {{.WatchProsName}}.
{{- if .Reason}}

Reason: {{.Reason}}
{{- end}}

You can reply to this email to send updated documents.

The Watch Pros team
`)),
	},
}
