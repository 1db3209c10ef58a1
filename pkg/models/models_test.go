package models

import (
	"testing"
	"time"
)

func TestMilestonePayableOn(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	t.Run("paid milestone is never payable", func(t *testing.T) {
		due := now.Add(-24 * time.Hour)
		m := Milestone{Status: MilestonePaid, DueDate: &due}
		if m.PayableOn(now) {
			t.Error("expected paid milestone to be unpayable")
		}
	})

	t.Run("no due date means payable", func(t *testing.T) {
		m := Milestone{Status: MilestonePending}
		if !m.PayableOn(now) {
			t.Error("expected milestone without due date to be payable")
		}
	})

	t.Run("due later today is payable", func(t *testing.T) {
		due := time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC)
		m := Milestone{Status: MilestonePending, DueDate: &due}
		if !m.PayableOn(now) {
			t.Error("expected milestone due today to be payable")
		}
	})

	t.Run("due tomorrow is not payable", func(t *testing.T) {
		due := time.Date(2025, 6, 16, 0, 0, 1, 0, time.UTC)
		m := Milestone{Status: MilestonePending, DueDate: &due}
		if m.PayableOn(now) {
			t.Error("expected milestone due tomorrow to be unpayable")
		}
	})

	t.Run("past due is payable", func(t *testing.T) {
		due := now.Add(-48 * time.Hour)
		m := Milestone{Status: MilestonePending, DueDate: &due}
		if !m.PayableOn(now) {
			t.Error("expected overdue milestone to be payable")
		}
	})
}

func TestNewInvoiceNumber(t *testing.T) {
	now := time.UnixMilli(1718461234567)
	got := NewInvoiceNumber(now)
	if got != "INV-234567" {
		t.Errorf("NewInvoiceNumber = %q, want INV-234567", got)
	}
}

func TestItemsTotal(t *testing.T) {
	items := []InvoiceItem{
		{Name: "Design", Qty: 2, Price: 150.50},
		{Name: "Hosting", Qty: 1, Price: 99},
	}
	if got := ItemsTotal(items); got != 400 {
		t.Errorf("ItemsTotal = %v, want 400", got)
	}
	if got := ItemsTotal(nil); got != 0 {
		t.Errorf("ItemsTotal(nil) = %v, want 0", got)
	}
}

func TestSummarize(t *testing.T) {
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	inv := &Invoice{
		InvoiceID:    "INV-000001",
		ProjectTitle: "Website",
		ClientName:   "Acme",
		GrandTotal:   500,
		Status:       InvoiceUnpaid,
		CreatedAt:    created,
	}
	sum := Summarize(inv)
	if sum.InvoiceID != inv.InvoiceID || sum.ProjectTitle != inv.ProjectTitle ||
		sum.ClientName != inv.ClientName || sum.GrandTotal != inv.GrandTotal ||
		sum.Status != inv.Status || !sum.Date.Equal(created) {
		t.Errorf("Summarize mismatch: %+v", sum)
	}
}
