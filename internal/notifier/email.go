package notifier

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/vaultledger/server/pkg/models"
)

// Email compositions. Each builder returns a ready-to-queue Message; the
// caller decides whether a failed Send is fatal or a warning.

var credentialsTmpl = template.Must(template.New("credentials").Parse(`
<h2>Welcome to {{.Business}}</h2>
<p>Hi {{.Name}},</p>
<p>Your client portal account is ready. Sign in with:</p>
<ul>
  <li>Email: <b>{{.LoginEmail}}</b></li>
  <li>Password: <b>{{.Password}}</b></li>
</ul>
<p>Please change your password after your first login.</p>
`))

// CredentialsEmail announces a new portal account with its one-time plain
// password. This is the only moment the plain password exists outside the
// request; only the bcrypt hash is stored.
func CredentialsEmail(business, name, loginEmail, password string) (Message, error) {
	var buf bytes.Buffer
	err := credentialsTmpl.Execute(&buf, map[string]string{
		"Business":   business,
		"Name":       name,
		"LoginEmail": loginEmail,
		"Password":   password,
	})
	if err != nil {
		return Message{}, fmt.Errorf("render credentials email: %w", err)
	}
	return Message{
		To:      loginEmail,
		Subject: "Your client portal credentials",
		HTML:    buf.String(),
	}, nil
}

var deployedTmpl = template.Must(template.New("deployed").Parse(`
<h2>Project kicked off: {{.Project}}</h2>
<p>Hi {{.Name}},</p>
<p>Your project <b>{{.Project}}</b> is now underway. The first milestone
invoice <b>{{.InvoiceID}}</b> ({{.Currency}} {{printf "%.2f" .Amount}}) is
available in your portal.</p>
{{if .PayLink}}<p><a href="{{.PayLink}}">Pay online</a></p>{{end}}
`))

// ProjectDeployedEmail announces a freshly deployed project and its first
// invoice.
func ProjectDeployedEmail(name, to, project string, inv *models.Invoice, payLink string) (Message, error) {
	var buf bytes.Buffer
	err := deployedTmpl.Execute(&buf, map[string]any{
		"Name":      name,
		"Project":   project,
		"InvoiceID": inv.InvoiceID,
		"Currency":  inv.Currency,
		"Amount":    inv.GrandTotal,
		"PayLink":   payLink,
	})
	if err != nil {
		return Message{}, fmt.Errorf("render project email: %w", err)
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Project %s is underway", project),
		HTML:    buf.String(),
	}, nil
}

var invoiceTmpl = template.Must(template.New("invoice").Parse(`
<h2>Invoice {{.InvoiceID}}</h2>
<p>Hi {{.ClientName}},</p>
<p>Invoice <b>{{.InvoiceID}}</b> for <b>{{.ProjectTitle}}</b> is due:
{{.Currency}} {{printf "%.2f" .RemainingDue}}.</p>
{{if .PayLink}}<p><a href="{{.PayLink}}">Pay online</a></p>{{end}}
<p>The invoice PDF is attached.</p>
`))

// InvoiceEmail carries the rendered invoice PDF to the billed party.
func InvoiceEmail(inv *models.Invoice, payLink string, pdf []byte) (Message, error) {
	var buf bytes.Buffer
	err := invoiceTmpl.Execute(&buf, map[string]any{
		"InvoiceID":    inv.InvoiceID,
		"ClientName":   inv.ClientName,
		"ProjectTitle": inv.ProjectTitle,
		"Currency":     inv.Currency,
		"RemainingDue": inv.RemainingDue,
		"PayLink":      payLink,
	})
	if err != nil {
		return Message{}, fmt.Errorf("render invoice email: %w", err)
	}
	return Message{
		To:             inv.ClientEmail,
		Subject:        fmt.Sprintf("Invoice %s from %s", inv.InvoiceID, inv.AdminEmail),
		HTML:           buf.String(),
		AttachmentName: inv.InvoiceID + ".pdf",
		Attachment:     pdf,
	}, nil
}

var receiptTmpl = template.Must(template.New("receipt").Parse(`
<h2>Payment received</h2>
<p>Hi {{.ClientName}},</p>
<p>We received your payment for invoice <b>{{.InvoiceID}}</b>
({{.Currency}} {{printf "%.2f" .GrandTotal}}). Thank you.</p>
`))

// ReceiptEmail confirms a settled invoice.
func ReceiptEmail(inv *models.Invoice) (Message, error) {
	var buf bytes.Buffer
	err := receiptTmpl.Execute(&buf, map[string]any{
		"ClientName": inv.ClientName,
		"InvoiceID":  inv.InvoiceID,
		"Currency":   inv.Currency,
		"GrandTotal": inv.GrandTotal,
	})
	if err != nil {
		return Message{}, fmt.Errorf("render receipt email: %w", err)
	}
	return Message{
		To:      inv.ClientEmail,
		Subject: fmt.Sprintf("Payment received for %s", inv.InvoiceID),
		HTML:    buf.String(),
	}, nil
}

// ResolvePayLink picks the payment link for an invoice: the invoice's own
// link wins, then the site settings, then the configured fallback.
func ResolvePayLink(inv *models.Invoice, settings *models.Settings, fallback string) string {
	if inv != nil && inv.PaymentLink != "" {
		return inv.PaymentLink
	}
	if settings != nil && settings.PaypalLink != "" {
		return settings.PaypalLink
	}
	return fallback
}
