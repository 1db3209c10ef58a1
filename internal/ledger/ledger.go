// Package ledger owns the invoices collection: creation, lookup, mutation,
// settlement and deletion. Every write lands on the invoice document first;
// summary fanout and milestone progression happen after, and their failures
// surface as warnings rather than unwinding the committed write.
package ledger

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vaultledger/server/internal/apperr"
	"github.com/vaultledger/server/internal/automation"
	"github.com/vaultledger/server/internal/notifier"
	"github.com/vaultledger/server/internal/projection"
	"github.com/vaultledger/server/internal/store"
	"github.com/vaultledger/server/pkg/identity"
	"github.com/vaultledger/server/pkg/models"
)

// Renderer produces the PDF form of an invoice.
type Renderer interface {
	Render(inv *models.Invoice, s *models.Settings) ([]byte, error)
}

// Service is the invoice ledger.
type Service struct {
	invoices store.InvoiceStore
	settings store.SettingsStore
	proj     *projection.Engine
	auto     *automation.Engine
	renderer Renderer
	queue    notifier.Notifier
	payLink  string
	now      func() time.Time
}

// Options carries the ledger's collaborators. Renderer and Queue may be nil
// in tests that never send mail.
type Options struct {
	Invoices   store.InvoiceStore
	Settings   store.SettingsStore
	Projection *projection.Engine
	Automation *automation.Engine
	Renderer   Renderer
	Queue      notifier.Notifier
	PayLinkURL string
	Now        func() time.Time
}

// New creates the ledger Service.
func New(o Options) *Service {
	if o.Now == nil {
		o.Now = time.Now
	}
	return &Service{
		invoices: o.Invoices,
		settings: o.Settings,
		proj:     o.Projection,
		auto:     o.Automation,
		renderer: o.Renderer,
		queue:    o.Queue,
		payLink:  o.PayLinkURL,
		now:      o.Now,
	}
}

// CreateInput is the new-invoice request.
type CreateInput struct {
	ProjectID    string               `json:"projectId"`
	ProjectTitle string               `json:"projectTitle"`
	AdminEmail   string               `json:"adminEmail"`
	ClientEmail  string               `json:"clientEmail"`
	ClientName   string               `json:"clientName"`
	Currency     string               `json:"currency"`
	Items        []models.InvoiceItem `json:"items"`
	PaymentLink  string               `json:"paymentLink"`
	Status       string               `json:"status"`
}

// Result pairs an invoice with the non-fatal warnings accumulated while
// synchronizing its projections.
type Result struct {
	Invoice  *models.Invoice
	Warnings []string
}

// Create validates, numbers and persists a new invoice, then pushes its
// summary to both owners. A sync failure is a warning; the invoice stands.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Result, error) {
	in.AdminEmail = identity.NormalizeEmail(in.AdminEmail)
	in.ClientEmail = identity.NormalizeEmail(in.ClientEmail)
	if in.AdminEmail == "" || in.ClientEmail == "" {
		return nil, fmt.Errorf("create invoice: admin and client email are required: %w", apperr.ErrValidation)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("create invoice: at least one line item is required: %w", apperr.ErrValidation)
	}

	now := s.now()
	total := models.ItemsTotal(in.Items)
	status := in.Status
	if status == "" {
		status = models.InvoiceUnpaid
	}
	inv := &models.Invoice{
		InvoiceID:    models.NewInvoiceNumber(now),
		ProjectID:    in.ProjectID,
		ProjectTitle: in.ProjectTitle,
		AdminEmail:   in.AdminEmail,
		ClientEmail:  in.ClientEmail,
		ClientName:   in.ClientName,
		Currency:     in.Currency,
		Items:        in.Items,
		GrandTotal:   total,
		RemainingDue: total,
		PaymentLink:  in.PaymentLink,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	id, err := s.invoices.Insert(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	inv.ID = id

	return &Result{Invoice: inv, Warnings: s.proj.Push(ctx, inv)}, nil
}

// Find resolves an invoice by either identifier: a hex document id or the
// human-readable invoice number.
func (s *Service) Find(ctx context.Context, ref string) (*models.Invoice, error) {
	var inv *models.Invoice
	var err error
	if oid, herr := primitive.ObjectIDFromHex(ref); herr == nil {
		inv, err = s.invoices.FindByID(ctx, oid)
	} else {
		inv, err = s.invoices.FindByNumber(ctx, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("find invoice %s: %w", ref, err)
	}
	if inv == nil {
		return nil, fmt.Errorf("invoice %s: %w", ref, apperr.ErrNotFound)
	}
	return inv, nil
}

// List returns invoices matching the filter, newest first.
func (s *Service) List(ctx context.Context, f store.InvoiceFilter) ([]models.Invoice, error) {
	out, err := s.invoices.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return out, nil
}

// PatchInput is a partial invoice update. Nil fields are untouched. When
// Items is set the money fields are recomputed from the new lines; a patch
// can never leave grandTotal out of step with the items.
type PatchInput struct {
	ProjectTitle *string               `json:"projectTitle"`
	ClientName   *string               `json:"clientName"`
	ClientEmail  *string               `json:"clientEmail"`
	Currency     *string               `json:"currency"`
	PaymentLink  *string               `json:"paymentLink"`
	Status       *string               `json:"status"`
	Items        *[]models.InvoiceItem `json:"items"`
}

// Patch applies a partial update, re-reads the document and propagates the
// fresh state into both summary lists.
func (s *Service) Patch(ctx context.Context, ref string, in PatchInput) (*Result, error) {
	inv, err := s.Find(ctx, ref)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{"updatedAt": s.now()}
	if in.ProjectTitle != nil {
		fields["projectTitle"] = *in.ProjectTitle
	}
	if in.ClientName != nil {
		fields["clientName"] = *in.ClientName
	}
	if in.ClientEmail != nil {
		fields["clientEmail"] = identity.NormalizeEmail(*in.ClientEmail)
	}
	if in.Currency != nil {
		fields["currency"] = *in.Currency
	}
	if in.PaymentLink != nil {
		fields["paymentLink"] = *in.PaymentLink
	}
	if in.Status != nil {
		fields["status"] = *in.Status
	}
	if in.Items != nil {
		total := models.ItemsTotal(*in.Items)
		due := total - inv.ReceivedAmount
		if due < 0 {
			due = 0
		}
		fields["items"] = *in.Items
		fields["grandTotal"] = total
		fields["remainingDue"] = due
	}

	matched, err := s.invoices.Update(ctx, inv.ID, fields)
	if err != nil {
		return nil, fmt.Errorf("patch invoice %s: %w", ref, err)
	}
	if !matched {
		return nil, fmt.Errorf("invoice %s: %w", ref, apperr.ErrNotFound)
	}

	fresh, err := s.invoices.FindByID(ctx, inv.ID)
	if err != nil || fresh == nil {
		return nil, fmt.Errorf("reload invoice %s after patch: %w", ref, err)
	}
	return &Result{Invoice: fresh, Warnings: s.proj.Patch(ctx, fresh)}, nil
}

// PaidResult reports a settlement and everything it triggered.
type PaidResult struct {
	Invoice          *models.Invoice
	NextInvoice      *models.Invoice
	ProjectCompleted bool
	Warnings         []string
}

// TransitionToPaid settles an invoice: the status write is the authoritative
// step, after which summary sync, the receipt email and milestone
// progression each degrade to warnings on failure.
func (s *Service) TransitionToPaid(ctx context.Context, ref string) (*PaidResult, error) {
	inv, err := s.Find(ctx, ref)
	if err != nil {
		return nil, err
	}

	matched, err := s.invoices.Update(ctx, inv.ID, map[string]any{
		"status":         models.InvoicePaid,
		"receivedAmount": inv.GrandTotal,
		"remainingDue":   float64(0),
		"updatedAt":      s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("mark invoice %s paid: %w", ref, err)
	}
	if !matched {
		return nil, fmt.Errorf("invoice %s: %w", ref, apperr.ErrNotFound)
	}
	inv.Status = models.InvoicePaid
	inv.ReceivedAmount = inv.GrandTotal
	inv.RemainingDue = 0

	res := &PaidResult{Invoice: inv}
	res.Warnings = append(res.Warnings, s.proj.Patch(ctx, inv)...)

	if s.queue != nil {
		if err := s.queueReceipt(ctx, inv); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("queue receipt: %v", err))
		}
	}

	adv, err := s.auto.Advance(ctx, inv)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("milestone progression: %v", err))
		return res, nil
	}
	res.NextInvoice = adv.NextInvoice
	res.ProjectCompleted = adv.ProjectCompleted
	res.Warnings = append(res.Warnings, adv.Warnings...)
	return res, nil
}

// Send renders the invoice PDF, queues it to the billed party and marks the
// invoice Sent when it was still Unpaid.
func (s *Service) Send(ctx context.Context, ref string) (*Result, error) {
	inv, err := s.Find(ctx, ref)
	if err != nil {
		return nil, err
	}
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	pdf, err := s.renderer.Render(inv, cfg)
	if err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", inv.InvoiceID, err)
	}

	payLink := notifier.ResolvePayLink(inv, cfg, s.payLink)
	msg, err := notifier.InvoiceEmail(inv, payLink, pdf)
	if err != nil {
		return nil, err
	}
	if err := s.queue.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("queue invoice %s: %w", inv.InvoiceID, apperr.ErrUpstream)
	}

	res := &Result{Invoice: inv}
	if inv.Status == models.InvoiceUnpaid {
		patched, err := s.Patch(ctx, inv.ID.Hex(), PatchInput{Status: ptr(models.InvoiceSent)})
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("mark sent: %v", err))
		} else {
			res.Invoice = patched.Invoice
			res.Warnings = append(res.Warnings, patched.Warnings...)
		}
	}
	return res, nil
}

// Render returns the invoice's PDF bytes for download.
func (s *Service) Render(ctx context.Context, ref string) (*models.Invoice, []byte, error) {
	inv, err := s.Find(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}
	pdf, err := s.renderer.Render(inv, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("render invoice %s: %w", inv.InvoiceID, err)
	}
	return inv, pdf, nil
}

// Delete removes an invoice. The summary entries are pulled from both lists
// before the document delete; a half-failed delete must never leave
// summaries pointing at a document that is already gone.
func (s *Service) Delete(ctx context.Context, ref string) ([]string, error) {
	inv, err := s.Find(ctx, ref)
	if err != nil {
		return nil, err
	}
	warnings := s.proj.PullFor(ctx, inv)
	if err := s.invoices.Delete(ctx, inv.ID); err != nil {
		return warnings, fmt.Errorf("delete invoice %s: %w", ref, err)
	}
	return warnings, nil
}

// BulkDelete deletes each referenced invoice independently. There is no
// rollback: already-deleted invoices stay deleted when a later one fails,
// and the failure is reported per reference.
func (s *Service) BulkDelete(ctx context.Context, refs []string) (deleted int, warnings []string) {
	for _, ref := range refs {
		w, err := s.Delete(ctx, ref)
		warnings = append(warnings, w...)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("delete %s: %v", ref, err))
			continue
		}
		deleted++
	}
	return deleted, warnings
}

func (s *Service) queueReceipt(ctx context.Context, inv *models.Invoice) error {
	msg, err := notifier.ReceiptEmail(inv)
	if err != nil {
		return err
	}
	return s.queue.Send(ctx, msg)
}

func ptr[T any](v T) *T { return &v }
