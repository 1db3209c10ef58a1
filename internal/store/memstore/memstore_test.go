package memstore

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vaultledger/server/internal/store"
	"github.com/vaultledger/server/pkg/models"
)

func seedClient(t *testing.T, s *Store) *models.Client {
	t.Helper()
	c := &models.Client{
		Name:        "Acme Corp",
		Email:       "owner@acme.io",
		PortalEmail: "portal@acme.io",
		Status:      models.ClientActive,
		CreatedAt:   time.Now(),
		Projects: []models.Project{
			{
				ID:          "proj-1",
				Name:        "Website",
				Status:      models.ProjectActive,
				CurrentStep: 1,
				Milestones: []models.Milestone{
					{ID: "ms-1", Name: "Design", Amount: 500, Status: models.MilestonePending},
					{ID: "ms-2", Name: "Build", Amount: 1500, Status: models.MilestonePending},
				},
			},
		},
	}
	id, err := s.Clients().Insert(context.Background(), c)
	if err != nil {
		t.Fatalf("insert client: %v", err)
	}
	c.ID = id
	return c
}

func TestMarkMilestonePaid(t *testing.T) {
	ctx := context.Background()
	s := New()
	c := seedClient(t, s)

	paidAt := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	matched, err := s.Clients().MarkMilestonePaid(ctx, store.MilestonePayment{
		ClientID:    c.ID,
		ProjectID:   "proj-1",
		MilestoneID: "ms-1",
		Amount:      500,
		Method:      "paypal",
		Date:        paidAt,
	})
	if err != nil {
		t.Fatalf("MarkMilestonePaid: %v", err)
	}
	if !matched {
		t.Fatal("expected match")
	}

	fresh, err := s.Clients().FindByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	ms := fresh.Projects[0].Milestones[0]
	if ms.Status != models.MilestonePaid {
		t.Errorf("milestone status = %q, want Paid", ms.Status)
	}
	if ms.PaidDate == nil || !ms.PaidDate.Equal(paidAt) {
		t.Errorf("paid date = %v, want %v", ms.PaidDate, paidAt)
	}
	if ms.PaymentMethod != "paypal" {
		t.Errorf("payment method = %q", ms.PaymentMethod)
	}
	if fresh.TotalPaid != 500 {
		t.Errorf("totalPaid = %v, want 500 (must move with the milestone status)", fresh.TotalPaid)
	}
}

func TestMarkMilestonePaidZeroMatch(t *testing.T) {
	ctx := context.Background()
	s := New()
	c := seedClient(t, s)

	matched, err := s.Clients().MarkMilestonePaid(ctx, store.MilestonePayment{
		ClientID:    c.ID,
		ProjectID:   "proj-1",
		MilestoneID: "no-such-milestone",
		Amount:      500,
	})
	if err != nil {
		t.Fatalf("MarkMilestonePaid: %v", err)
	}
	if matched {
		t.Fatal("expected zero match")
	}

	fresh, _ := s.Clients().FindByID(ctx, c.ID)
	if fresh.TotalPaid != 0 {
		t.Errorf("totalPaid = %v, want 0 after zero-match", fresh.TotalPaid)
	}
}

func TestSummaryLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	users := s.Users()

	_, err := users.Insert(ctx, &models.User{
		Name:  "Admin",
		Email: "admin@studio.io",
		Role:  models.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}

	invID := primitive.NewObjectID()
	sum := models.InvoiceSummary{ID: invID, InvoiceID: "INV-000001", Status: models.InvoiceUnpaid, GrandTotal: 500}

	matched, err := users.PushSummary(ctx, "admin@studio.io", store.ListCreated, sum)
	if err != nil || !matched {
		t.Fatalf("PushSummary matched=%v err=%v", matched, err)
	}

	matched, err = users.PatchSummary(ctx, "admin@studio.io", store.ListCreated, invID, store.SummaryPatch{
		Status: models.InvoicePaid, GrandTotal: 500,
	})
	if err != nil || !matched {
		t.Fatalf("PatchSummary matched=%v err=%v", matched, err)
	}

	u, _ := users.FindByEmail(ctx, "admin@studio.io")
	if len(u.MyCreatedInvoices) != 1 || u.MyCreatedInvoices[0].Status != models.InvoicePaid {
		t.Fatalf("unexpected summaries: %+v", u.MyCreatedInvoices)
	}

	// Patching an element that is not there matches nothing and changes nothing.
	matched, err = users.PatchSummary(ctx, "admin@studio.io", store.ListCreated, primitive.NewObjectID(), store.SummaryPatch{})
	if err != nil {
		t.Fatalf("PatchSummary: %v", err)
	}
	if matched {
		t.Error("expected zero match for unknown summary id")
	}

	if err := users.PullSummary(ctx, "admin@studio.io", store.ListCreated, invID); err != nil {
		t.Fatalf("PullSummary: %v", err)
	}
	u, _ = users.FindByEmail(ctx, "admin@studio.io")
	if len(u.MyCreatedInvoices) != 0 {
		t.Fatalf("summary not removed: %+v", u.MyCreatedInvoices)
	}
}

func TestInvoiceUpdateFields(t *testing.T) {
	ctx := context.Background()
	s := New()

	inv := &models.Invoice{
		InvoiceID:    "INV-000042",
		Status:       models.InvoiceUnpaid,
		GrandTotal:   100,
		RemainingDue: 100,
		CreatedAt:    time.Now(),
	}
	id, err := s.Invoices().Insert(ctx, inv)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	matched, err := s.Invoices().Update(ctx, id, map[string]any{
		"status":         models.InvoicePaid,
		"receivedAmount": float64(100),
		"remainingDue":   float64(0),
	})
	if err != nil || !matched {
		t.Fatalf("Update matched=%v err=%v", matched, err)
	}

	fresh, _ := s.Invoices().FindByID(ctx, id)
	if fresh.Status != models.InvoicePaid || fresh.ReceivedAmount != 100 || fresh.RemainingDue != 0 {
		t.Errorf("unexpected invoice after update: %+v", fresh)
	}

	if got, _ := s.Invoices().FindByNumber(ctx, "INV-000042"); got == nil || got.ID != id {
		t.Error("FindByNumber should resolve the same document")
	}
}

func TestClientListFilters(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedClient(t, s)
	_, err := s.Clients().Insert(ctx, &models.Client{
		Name: "Beta LLC", Email: "b@beta.io", Status: models.ClientInactive, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.Clients().List(ctx, store.ClientFilter{Search: "acme"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Acme Corp" {
		t.Fatalf("search filter: %+v", got)
	}

	got, _ = s.Clients().List(ctx, store.ClientFilter{Status: models.ClientInactive})
	if len(got) != 1 || got[0].Name != "Beta LLC" {
		t.Fatalf("status filter: %+v", got)
	}

	got, _ = s.Clients().List(ctx, store.ClientFilter{Status: "All"})
	if len(got) != 2 {
		t.Fatalf("All status should match everything, got %d", len(got))
	}
}

func TestDeepCopyIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()
	c := seedClient(t, s)

	got, _ := s.Clients().FindByID(ctx, c.ID)
	got.Projects[0].Milestones[0].Status = models.MilestonePaid

	again, _ := s.Clients().FindByID(ctx, c.ID)
	if again.Projects[0].Milestones[0].Status != models.MilestonePending {
		t.Error("mutating a returned document must not leak into the store")
	}
}
