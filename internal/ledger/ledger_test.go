package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vaultledger/server/internal/apperr"
	"github.com/vaultledger/server/internal/automation"
	"github.com/vaultledger/server/internal/notifier"
	"github.com/vaultledger/server/internal/projection"
	"github.com/vaultledger/server/internal/store"
	"github.com/vaultledger/server/internal/store/memstore"
	"github.com/vaultledger/server/pkg/models"
)

// tickingClock steps one second per call so every invoice in a test gets a
// distinct number.
func tickingClock() func() time.Time {
	t := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

type captureQueue struct {
	sent []notifier.Message
	fail bool
}

func (q *captureQueue) Send(_ context.Context, m notifier.Message) error {
	if q.fail {
		return errors.New("broker down")
	}
	q.sent = append(q.sent, m)
	return nil
}

func (q *captureQueue) Close() error { return nil }

type stubRenderer struct{}

func (stubRenderer) Render(inv *models.Invoice, _ *models.Settings) ([]byte, error) {
	return []byte("%PDF-stub " + inv.InvoiceID), nil
}

func setup(t *testing.T) (*memstore.Store, *Service, *captureQueue) {
	t.Helper()
	mem := memstore.New()
	clock := tickingClock()
	proj := projection.New(mem.Users())
	auto := automation.New(mem.Clients(), mem.Invoices(), proj, clock)
	q := &captureQueue{}
	svc := New(Options{
		Invoices:   mem.Invoices(),
		Settings:   mem.Settings(),
		Projection: proj,
		Automation: auto,
		Renderer:   stubRenderer{},
		Queue:      q,
		Now:        clock,
	})
	return mem, svc, q
}

func seedUsers(t *testing.T, mem *memstore.Store) {
	t.Helper()
	ctx := context.Background()
	for _, u := range []*models.User{
		{Email: "admin@studio.io", Role: models.RoleAdmin},
		{Email: "client@acme.io", Role: models.RoleClient},
	} {
		if _, err := mem.Users().Insert(ctx, u); err != nil {
			t.Fatal(err)
		}
	}
}

func createInput() CreateInput {
	return CreateInput{
		ProjectTitle: "Website",
		AdminEmail:   "Admin@Studio.IO",
		ClientEmail:  "Client@Acme.IO",
		ClientName:   "Acme",
		Currency:     "USD",
		Items: []models.InvoiceItem{
			{Name: "Design", Qty: 2, Price: 100},
			{Name: "Build", Qty: 1, Price: 300},
		},
	}
}

func TestCreateValidatesAndNormalizes(t *testing.T) {
	ctx := context.Background()
	mem, svc, _ := setup(t)
	seedUsers(t, mem)

	_, err := svc.Create(ctx, CreateInput{ClientEmail: "c@x.io", Items: createInput().Items})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("missing admin email should fail validation, got %v", err)
	}
	_, err = svc.Create(ctx, CreateInput{AdminEmail: "a@x.io", ClientEmail: "c@x.io"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("missing items should fail validation, got %v", err)
	}

	res, err := svc.Create(ctx, createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	inv := res.Invoice
	if inv.AdminEmail != "admin@studio.io" || inv.ClientEmail != "client@acme.io" {
		t.Errorf("emails not normalized: %q %q", inv.AdminEmail, inv.ClientEmail)
	}
	if inv.GrandTotal != 500 || inv.RemainingDue != 500 || inv.ReceivedAmount != 0 {
		t.Errorf("money fields: %+v", inv)
	}
	if inv.Status != models.InvoiceUnpaid {
		t.Errorf("status = %q, want Unpaid", inv.Status)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings: %v", res.Warnings)
	}

	admin, _ := mem.Users().FindByEmail(ctx, "admin@studio.io")
	if len(admin.MyCreatedInvoices) != 1 {
		t.Error("summary not pushed to admin list")
	}
}

func TestCreateSurvivesMissingSummaryOwner(t *testing.T) {
	ctx := context.Background()
	_, svc, _ := setup(t)

	res, err := svc.Create(ctx, createInput())
	if err != nil {
		t.Fatalf("Create must succeed even with no user documents: %v", err)
	}
	if len(res.Warnings) != 2 {
		t.Errorf("want 2 fanout warnings, got %v", res.Warnings)
	}

	if _, err := svc.Find(ctx, res.Invoice.InvoiceID); err != nil {
		t.Errorf("invoice must exist despite fanout warnings: %v", err)
	}
}

func TestFindByEitherIdentifier(t *testing.T) {
	ctx := context.Background()
	mem, svc, _ := setup(t)
	seedUsers(t, mem)
	res, _ := svc.Create(ctx, createInput())

	byHex, err := svc.Find(ctx, res.Invoice.ID.Hex())
	if err != nil || byHex.ID != res.Invoice.ID {
		t.Fatalf("find by hex id: %v", err)
	}
	byNumber, err := svc.Find(ctx, res.Invoice.InvoiceID)
	if err != nil || byNumber.ID != res.Invoice.ID {
		t.Fatalf("find by number: %v", err)
	}
	if _, err := svc.Find(ctx, "INV-999999"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown ref should be not found, got %v", err)
	}
}

func TestPatchRecomputesTotalsAndSyncs(t *testing.T) {
	ctx := context.Background()
	mem, svc, _ := setup(t)
	seedUsers(t, mem)
	res, _ := svc.Create(ctx, createInput())

	newItems := []models.InvoiceItem{{Name: "Design", Qty: 1, Price: 800}}
	patched, err := svc.Patch(ctx, res.Invoice.InvoiceID, PatchInput{Items: &newItems})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if patched.Invoice.GrandTotal != 800 || patched.Invoice.RemainingDue != 800 {
		t.Errorf("totals not recomputed: %+v", patched.Invoice)
	}

	admin, _ := mem.Users().FindByEmail(ctx, "admin@studio.io")
	if admin.MyCreatedInvoices[0].GrandTotal != 800 {
		t.Errorf("summary not synced: %+v", admin.MyCreatedInvoices[0])
	}
}

func TestTransitionToPaidAdvancesProject(t *testing.T) {
	ctx := context.Background()
	mem, svc, q := setup(t)
	seedUsers(t, mem)

	// Project with two milestones, positioned at the first.
	client := &models.Client{
		Name:        "Acme",
		Email:       "client@acme.io",
		PortalEmail: "client@acme.io",
		Status:      models.ClientActive,
		Projects: []models.Project{{
			ID:          "proj-1",
			Name:        "Website",
			Status:      models.ProjectActive,
			CurrentStep: 1,
			Milestones: []models.Milestone{
				{ID: "ms-1", Name: "Phase 1", Amount: 500, Status: models.MilestonePending},
				{ID: "ms-2", Name: "Phase 2", Amount: 700, Status: models.MilestonePending},
			},
		}},
	}
	if _, err := mem.Clients().Insert(ctx, client); err != nil {
		t.Fatal(err)
	}

	in := createInput()
	in.ProjectID = "proj-1"
	in.Items = []models.InvoiceItem{{Name: "Phase 1", Qty: 1, Price: 500}}
	created, _ := svc.Create(ctx, in)

	res, err := svc.TransitionToPaid(ctx, created.Invoice.InvoiceID)
	if err != nil {
		t.Fatalf("TransitionToPaid: %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("warnings: %v", res.Warnings)
	}
	inv := res.Invoice
	if inv.Status != models.InvoicePaid || inv.ReceivedAmount != 500 || inv.RemainingDue != 0 {
		t.Errorf("settled invoice: %+v", inv)
	}
	if res.NextInvoice == nil || res.NextInvoice.GrandTotal != 700 {
		t.Fatalf("expected next invoice for milestone 2: %+v", res.NextInvoice)
	}
	if res.ProjectCompleted {
		t.Error("project should not be complete yet")
	}

	// Receipt queued for the billed party.
	if len(q.sent) == 0 || q.sent[len(q.sent)-1].To != "client@acme.io" {
		t.Errorf("receipt not queued: %+v", q.sent)
	}

	client2, _ := mem.Clients().FindByEmail(ctx, "client@acme.io")
	if client2.Projects[0].CurrentStep != 2 {
		t.Errorf("currentStep = %d, want 2", client2.Projects[0].CurrentStep)
	}

	admin, _ := mem.Users().FindByEmail(ctx, "admin@studio.io")
	var statuses []string
	for _, s := range admin.MyCreatedInvoices {
		statuses = append(statuses, s.Status)
	}
	if len(admin.MyCreatedInvoices) != 2 {
		t.Fatalf("admin list should hold both invoices: %v", statuses)
	}
}

func TestTransitionToPaidReceiptFailureIsWarning(t *testing.T) {
	ctx := context.Background()
	mem, svc, q := setup(t)
	seedUsers(t, mem)
	created, _ := svc.Create(ctx, createInput())

	q.fail = true
	res, err := svc.TransitionToPaid(ctx, created.Invoice.InvoiceID)
	if err != nil {
		t.Fatalf("settlement must not fail on a dead broker: %v", err)
	}
	if res.Invoice.Status != models.InvoicePaid {
		t.Error("invoice must still be paid")
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a queue warning")
	}
}

func TestSendQueuesPDFAndMarksSent(t *testing.T) {
	ctx := context.Background()
	mem, svc, q := setup(t)
	seedUsers(t, mem)
	created, _ := svc.Create(ctx, createInput())

	res, err := svc.Send(ctx, created.Invoice.InvoiceID)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(q.sent) != 1 {
		t.Fatalf("queued messages: %d", len(q.sent))
	}
	msg := q.sent[0]
	if msg.To != "client@acme.io" || len(msg.Attachment) == 0 {
		t.Errorf("queued message: to=%s attachment=%d bytes", msg.To, len(msg.Attachment))
	}
	if res.Invoice.Status != models.InvoiceSent {
		t.Errorf("status = %q, want Sent", res.Invoice.Status)
	}
}

func TestDeleteCascadesSummaries(t *testing.T) {
	ctx := context.Background()
	mem, svc, _ := setup(t)
	seedUsers(t, mem)
	created, _ := svc.Create(ctx, createInput())

	warnings, err := svc.Delete(ctx, created.Invoice.InvoiceID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings: %v", warnings)
	}
	if _, err := svc.Find(ctx, created.Invoice.InvoiceID); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("invoice should be gone")
	}
	admin, _ := mem.Users().FindByEmail(ctx, "admin@studio.io")
	client, _ := mem.Users().FindByEmail(ctx, "client@acme.io")
	if len(admin.MyCreatedInvoices) != 0 || len(client.InvoicesReceived) != 0 {
		t.Error("summaries should be pulled from both lists")
	}
}

type failingDeleteStore struct {
	store.InvoiceStore
}

func (failingDeleteStore) Delete(context.Context, primitive.ObjectID) error {
	return errors.New("connection reset")
}

func TestDeletePullsSummariesFirst(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	clock := tickingClock()
	proj := projection.New(mem.Users())
	auto := automation.New(mem.Clients(), mem.Invoices(), proj, clock)
	svc := New(Options{
		Invoices:   failingDeleteStore{mem.Invoices()},
		Settings:   mem.Settings(),
		Projection: proj,
		Automation: auto,
		Now:        clock,
	})
	seedUsers(t, mem)
	created, err := svc.Create(ctx, createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Delete(ctx, created.Invoice.InvoiceID); err == nil {
		t.Fatal("document delete failure must surface as an error")
	}

	// The summary pull runs before the document delete, so even a failed
	// delete leaves no entry behind on either list.
	admin, _ := mem.Users().FindByEmail(ctx, "admin@studio.io")
	client, _ := mem.Users().FindByEmail(ctx, "client@acme.io")
	if len(admin.MyCreatedInvoices) != 0 || len(client.InvoicesReceived) != 0 {
		t.Error("summaries should already be pulled when the delete fails")
	}
}

func TestBulkDeleteIsPartial(t *testing.T) {
	ctx := context.Background()
	mem, svc, _ := setup(t)
	seedUsers(t, mem)
	a, _ := svc.Create(ctx, createInput())
	b, _ := svc.Create(ctx, createInput())

	deleted, warnings := svc.BulkDelete(ctx, []string{a.Invoice.InvoiceID, "INV-999999", b.Invoice.InvoiceID})
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	if len(warnings) != 1 {
		t.Errorf("want one warning for the unknown ref, got %v", warnings)
	}
}
