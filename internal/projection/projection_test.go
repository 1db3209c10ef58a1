package projection

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vaultledger/server/internal/store/memstore"
	"github.com/vaultledger/server/pkg/models"
)

func setup(t *testing.T) (*memstore.Store, *Engine) {
	t.Helper()
	mem := memstore.New()
	return mem, New(mem.Users())
}

func seedUsers(t *testing.T, mem *memstore.Store) {
	t.Helper()
	ctx := context.Background()
	for _, u := range []*models.User{
		{Name: "Admin", Email: "admin@studio.io", Role: models.RoleAdmin},
		{Name: "Client", Email: "client@acme.io", Role: models.RoleClient},
	} {
		if _, err := mem.Users().Insert(ctx, u); err != nil {
			t.Fatalf("insert user: %v", err)
		}
	}
}

func testInvoice() *models.Invoice {
	return &models.Invoice{
		ID:          primitive.NewObjectID(),
		InvoiceID:   "INV-000001",
		AdminEmail:  "admin@studio.io",
		ClientEmail: "client@acme.io",
		ClientName:  "Client",
		GrandTotal:  750,
		Status:      models.InvoiceUnpaid,
		CreatedAt:   time.Now(),
	}
}

func TestPushFansOutToBothLists(t *testing.T) {
	ctx := context.Background()
	mem, eng := setup(t)
	seedUsers(t, mem)
	inv := testInvoice()

	if warnings := eng.Push(ctx, inv); len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	admin, _ := mem.Users().FindByEmail(ctx, "admin@studio.io")
	if len(admin.MyCreatedInvoices) != 1 || admin.MyCreatedInvoices[0].ID != inv.ID {
		t.Errorf("admin list: %+v", admin.MyCreatedInvoices)
	}
	client, _ := mem.Users().FindByEmail(ctx, "client@acme.io")
	if len(client.InvoicesReceived) != 1 || client.InvoicesReceived[0].ID != inv.ID {
		t.Errorf("client list: %+v", client.InvoicesReceived)
	}
}

func TestPushMissingOwnerWarnsOtherSideStillLands(t *testing.T) {
	ctx := context.Background()
	mem, eng := setup(t)
	_, err := mem.Users().Insert(ctx, &models.User{Email: "admin@studio.io", Role: models.RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}
	inv := testInvoice()

	warnings := eng.Push(ctx, inv)
	if len(warnings) != 1 {
		t.Fatalf("want one warning for the missing client user, got %v", warnings)
	}
	admin, _ := mem.Users().FindByEmail(ctx, "admin@studio.io")
	if len(admin.MyCreatedInvoices) != 1 {
		t.Error("admin side must still receive the summary")
	}
}

func TestPatchPropagatesAndZeroMatchIsSilent(t *testing.T) {
	ctx := context.Background()
	mem, eng := setup(t)
	seedUsers(t, mem)
	inv := testInvoice()
	eng.Push(ctx, inv)

	inv.Status = models.InvoicePaid
	inv.GrandTotal = 900
	if warnings := eng.Patch(ctx, inv); len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	admin, _ := mem.Users().FindByEmail(ctx, "admin@studio.io")
	got := admin.MyCreatedInvoices[0]
	if got.Status != models.InvoicePaid || got.GrandTotal != 900 {
		t.Errorf("patched summary: %+v", got)
	}

	// An invoice the projections never held patches nothing and warns nothing.
	orphan := testInvoice()
	if warnings := eng.Patch(ctx, orphan); len(warnings) != 0 {
		t.Errorf("zero-match patch should be silent, got %v", warnings)
	}
}

func TestPullRemovesFromBothLists(t *testing.T) {
	ctx := context.Background()
	mem, eng := setup(t)
	seedUsers(t, mem)
	inv := testInvoice()
	eng.Push(ctx, inv)

	if warnings := eng.PullFor(ctx, inv); len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	admin, _ := mem.Users().FindByEmail(ctx, "admin@studio.io")
	client, _ := mem.Users().FindByEmail(ctx, "client@acme.io")
	if len(admin.MyCreatedInvoices) != 0 || len(client.InvoicesReceived) != 0 {
		t.Error("summaries should be gone from both lists")
	}
}

func TestRebuildReconcilesDrift(t *testing.T) {
	ctx := context.Background()
	mem, eng := setup(t)
	seedUsers(t, mem)

	// Ledger holds two invoices for the admin; the projection only one, plus
	// a stale entry for an invoice that no longer exists.
	inv1 := testInvoice()
	inv2 := testInvoice()
	inv2.InvoiceID = "INV-000002"
	for _, inv := range []*models.Invoice{inv1, inv2} {
		if _, err := mem.Invoices().Insert(ctx, inv); err != nil {
			t.Fatal(err)
		}
	}
	stale := models.InvoiceSummary{ID: primitive.NewObjectID(), InvoiceID: "INV-GONE"}
	mem.Users().PushSummary(ctx, "admin@studio.io", "myCreatedInvoices", stale)

	if err := eng.Rebuild(ctx, mem.Invoices(), "admin@studio.io"); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	admin, _ := mem.Users().FindByEmail(ctx, "admin@studio.io")
	if len(admin.MyCreatedInvoices) != 2 {
		t.Fatalf("want 2 rebuilt summaries, got %d", len(admin.MyCreatedInvoices))
	}
	for _, s := range admin.MyCreatedInvoices {
		if s.InvoiceID == "INV-GONE" {
			t.Error("stale summary survived the rebuild")
		}
	}
}
