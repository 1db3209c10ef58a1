// Package automation advances a project's milestone pointer after an invoice
// is settled, either synthesizing the next milestone's invoice or marking the
// project completed when the milestones are exhausted.
package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/vaultledger/server/internal/projection"
	"github.com/vaultledger/server/internal/store"
	"github.com/vaultledger/server/pkg/models"
)

// Engine runs the milestone progression that follows a paid invoice.
type Engine struct {
	clients  store.ClientStore
	invoices store.InvoiceStore
	proj     *projection.Engine
	now      func() time.Time
}

// New creates an Engine. now is the clock used for invoice numbering and
// timestamps; pass nil for time.Now.
func New(clients store.ClientStore, invoices store.InvoiceStore, proj *projection.Engine, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{clients: clients, invoices: invoices, proj: proj, now: now}
}

// Result reports what the progression did. Warnings carry recoverable
// failures (summary fanout, step persistence) that must not unwind the paid
// invoice.
type Result struct {
	NextInvoice      *models.Invoice
	ProjectCompleted bool
	Warnings         []string
}

// Advance reacts to a settled invoice. It locates the owning client by the
// invoice's project id, then either issues the invoice for the next
// milestone and bumps currentStep, or marks the project Completed when no
// milestone remains. Invoices without a project id are standalone; nothing
// happens.
func (e *Engine) Advance(ctx context.Context, paid *models.Invoice) (*Result, error) {
	res := &Result{}
	if paid.ProjectID == "" {
		return res, nil
	}

	client, err := e.clients.FindByProjectID(ctx, paid.ProjectID)
	if err != nil {
		return res, fmt.Errorf("find project %s: %w", paid.ProjectID, err)
	}
	if client == nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("project %s not found, progression skipped", paid.ProjectID))
		return res, nil
	}

	var project *models.Project
	for i := range client.Projects {
		if client.Projects[i].ID == paid.ProjectID {
			project = &client.Projects[i]
			break
		}
	}
	if project == nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("project %s not found, progression skipped", paid.ProjectID))
		return res, nil
	}

	nextStep := project.CurrentStep + 1
	if nextStep > len(project.Milestones) {
		matched, err := e.clients.SetProjectStatus(ctx, project.ID, models.ProjectCompleted)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("complete project %s: %v", project.ID, err))
			return res, nil
		}
		if !matched {
			res.Warnings = append(res.Warnings, fmt.Sprintf("complete project %s: no match", project.ID))
			return res, nil
		}
		res.ProjectCompleted = true
		return res, nil
	}

	milestone := project.Milestones[nextStep-1]
	next, err := e.issueNext(ctx, paid, client, project, milestone)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("issue next invoice for %s: %v", project.ID, err))
		return res, nil
	}
	res.NextInvoice = next
	res.Warnings = append(res.Warnings, e.proj.Push(ctx, next)...)

	matched, err := e.clients.SetProjectStep(ctx, client.ID, project.ID, nextStep)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("advance step on %s: %v", project.ID, err))
	} else if !matched {
		res.Warnings = append(res.Warnings, fmt.Sprintf("advance step on %s: no match", project.ID))
	}
	return res, nil
}

// issueNext synthesizes the next milestone's invoice. Issuer identity and
// currency carry over from the invoice just settled; the billed party comes
// from the client record.
func (e *Engine) issueNext(ctx context.Context, paid *models.Invoice, client *models.Client, project *models.Project, ms models.Milestone) (*models.Invoice, error) {
	now := e.now()
	inv := &models.Invoice{
		InvoiceID:    models.NewInvoiceNumber(now),
		ProjectID:    project.ID,
		ProjectTitle: project.Name,
		AdminEmail:   paid.AdminEmail,
		ClientEmail:  client.PortalEmail,
		ClientName:   client.Name,
		Currency:     paid.Currency,
		Items: []models.InvoiceItem{
			{Name: ms.Name, Qty: 1, Price: ms.Amount},
		},
		GrandTotal:   ms.Amount,
		RemainingDue: ms.Amount,
		PaymentLink:  paid.PaymentLink,
		Status:       models.InvoiceUnpaid,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if inv.ClientEmail == "" {
		inv.ClientEmail = client.Email
	}
	id, err := e.invoices.Insert(ctx, inv)
	if err != nil {
		return nil, err
	}
	inv.ID = id
	return inv, nil
}
