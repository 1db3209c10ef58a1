// Package projection maintains the denormalized invoice summaries embedded on
// user documents. The invoices collection is always authoritative; the lists
// here are caches kept in step by best-effort writes after every ledger
// mutation, plus a full rebuild pass for when they drift.
package projection

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vaultledger/server/internal/store"
	"github.com/vaultledger/server/pkg/models"
)

// Engine fans ledger changes out to the summary lists. Its methods never
// fail the caller's primary write: a missing owner or summary element is a
// logged warning, not an error.
type Engine struct {
	users store.UserStore
}

// New creates an Engine over the users collection.
func New(users store.UserStore) *Engine {
	return &Engine{users: users}
}

// Fanout addresses both sides of an invoice: the issuing admin's
// myCreatedInvoices list and the receiving client user's invoicesReceived
// list.
type Fanout struct {
	AdminEmail  string
	ClientEmail string
}

func fanoutFor(inv *models.Invoice) Fanout {
	return Fanout{AdminEmail: inv.AdminEmail, ClientEmail: inv.ClientEmail}
}

// Push appends the invoice's summary to both owners' lists. Each warning
// names the list that could not be updated.
func (e *Engine) Push(ctx context.Context, inv *models.Invoice) []string {
	sum := models.Summarize(inv)
	f := fanoutFor(inv)
	var warnings []string
	if err := e.push(ctx, f.AdminEmail, store.ListCreated, sum); err != nil {
		warnings = append(warnings, err.Error())
	}
	if err := e.push(ctx, f.ClientEmail, store.ListReceived, sum); err != nil {
		warnings = append(warnings, err.Error())
	}
	logWarnings("projection push", inv.InvoiceID, warnings)
	return warnings
}

func (e *Engine) push(ctx context.Context, owner, list string, sum models.InvoiceSummary) error {
	matched, err := e.users.PushSummary(ctx, owner, list, sum)
	if err != nil {
		return fmt.Errorf("push %s for %s: %w", list, owner, err)
	}
	if !matched {
		return fmt.Errorf("push %s: no user document for %s", list, owner)
	}
	return nil
}

// Patch propagates the invoice's current mutable fields into the existing
// summary elements on both lists. A zero-match patch is a silent no-op: the
// owner simply never held a summary for this invoice.
func (e *Engine) Patch(ctx context.Context, inv *models.Invoice) []string {
	p := store.SummaryPatch{
		Status:       inv.Status,
		GrandTotal:   inv.GrandTotal,
		ProjectTitle: inv.ProjectTitle,
		ClientName:   inv.ClientName,
	}
	f := fanoutFor(inv)
	var warnings []string
	if _, err := e.users.PatchSummary(ctx, f.AdminEmail, store.ListCreated, inv.ID, p); err != nil {
		warnings = append(warnings, fmt.Sprintf("patch %s for %s: %v", store.ListCreated, f.AdminEmail, err))
	}
	if _, err := e.users.PatchSummary(ctx, f.ClientEmail, store.ListReceived, inv.ID, p); err != nil {
		warnings = append(warnings, fmt.Sprintf("patch %s for %s: %v", store.ListReceived, f.ClientEmail, err))
	}
	logWarnings("projection patch", inv.InvoiceID, warnings)
	return warnings
}

// Pull removes the invoice's summary from both lists. Absent elements are
// fine; only store failures warn.
func (e *Engine) Pull(ctx context.Context, f Fanout, invoiceID primitive.ObjectID) []string {
	var warnings []string
	if err := e.users.PullSummary(ctx, f.AdminEmail, store.ListCreated, invoiceID); err != nil {
		warnings = append(warnings, fmt.Sprintf("pull %s for %s: %v", store.ListCreated, f.AdminEmail, err))
	}
	if err := e.users.PullSummary(ctx, f.ClientEmail, store.ListReceived, invoiceID); err != nil {
		warnings = append(warnings, fmt.Sprintf("pull %s for %s: %v", store.ListReceived, f.ClientEmail, err))
	}
	logWarnings("projection pull", invoiceID.Hex(), warnings)
	return warnings
}

// PullFor removes the summary of a known invoice document.
func (e *Engine) PullFor(ctx context.Context, inv *models.Invoice) []string {
	return e.Pull(ctx, fanoutFor(inv), inv.ID)
}

// Rebuild recomputes one user's summary lists from the full ledger and
// replaces them wholesale. It is the reconciliation escape hatch for drifted
// projections; safe to run at any time.
func (e *Engine) Rebuild(ctx context.Context, invoices store.InvoiceStore, ownerEmail string) error {
	all, err := invoices.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("rebuild summaries for %s: %w", ownerEmail, err)
	}
	var created, received []models.InvoiceSummary
	for i := range all {
		inv := &all[i]
		if inv.AdminEmail == ownerEmail {
			created = append(created, models.Summarize(inv))
		}
		if inv.ClientEmail == ownerEmail {
			received = append(received, models.Summarize(inv))
		}
	}
	if _, err := e.users.ReplaceSummaries(ctx, ownerEmail, store.ListCreated, created); err != nil {
		return fmt.Errorf("rebuild %s for %s: %w", store.ListCreated, ownerEmail, err)
	}
	if _, err := e.users.ReplaceSummaries(ctx, ownerEmail, store.ListReceived, received); err != nil {
		return fmt.Errorf("rebuild %s for %s: %w", store.ListReceived, ownerEmail, err)
	}
	return nil
}

func logWarnings(op, id string, warnings []string) {
	for _, w := range warnings {
		log.Printf("WARN: %s (%s): %s", op, id, w)
	}
}
