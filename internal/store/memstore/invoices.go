package memstore

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vaultledger/server/internal/store"
	"github.com/vaultledger/server/pkg/models"
)

type memInvoices struct{ s *Store }

func (m *memInvoices) Insert(_ context.Context, inv *models.Invoice) (primitive.ObjectID, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if inv.ID.IsZero() {
		inv.ID = primitive.NewObjectID()
	}
	m.s.invoices[inv.ID] = copyInvoice(inv)
	return inv.ID, nil
}

func (m *memInvoices) FindByID(_ context.Context, id primitive.ObjectID) (*models.Invoice, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	inv, ok := m.s.invoices[id]
	if !ok {
		return nil, nil
	}
	return copyInvoice(inv), nil
}

func (m *memInvoices) FindByNumber(_ context.Context, invoiceID string) (*models.Invoice, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for _, inv := range m.s.invoices {
		if inv.InvoiceID == invoiceID {
			return copyInvoice(inv), nil
		}
	}
	return nil, nil
}

func (m *memInvoices) List(_ context.Context, f store.InvoiceFilter) ([]models.Invoice, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	search := strings.ToLower(f.Search)
	var out []models.Invoice
	for _, inv := range m.s.invoices {
		if f.AdminEmail != "" && inv.AdminEmail != f.AdminEmail {
			continue
		}
		if f.ClientEmail != "" && inv.ClientEmail != f.ClientEmail {
			continue
		}
		if f.Status != "" && f.Status != "All" && inv.Status != f.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(inv.InvoiceID), search) &&
			!strings.Contains(strings.ToLower(inv.ClientName), search) &&
			!strings.Contains(strings.ToLower(inv.ProjectTitle), search) {
			continue
		}
		out = append(out, *copyInvoice(inv))
	}
	sortInvoicesByCreatedDesc(out)
	return out, nil
}

func (m *memInvoices) ListAll(ctx context.Context) ([]models.Invoice, error) {
	return m.List(ctx, store.InvoiceFilter{})
}

func (m *memInvoices) Update(_ context.Context, id primitive.ObjectID, fields map[string]any) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	inv, ok := m.s.invoices[id]
	if !ok {
		return false, nil
	}
	for k, v := range fields {
		applyInvoiceField(inv, k, v)
	}
	return true, nil
}

// applyInvoiceField mirrors a $set on a known invoice field; unknown keys
// are dropped (the schemaless store would keep them, but nothing reads them).
func applyInvoiceField(inv *models.Invoice, key string, val any) {
	switch key {
	case "invoiceId":
		inv.InvoiceID, _ = val.(string)
	case "projectId":
		inv.ProjectID, _ = val.(string)
	case "projectTitle":
		inv.ProjectTitle, _ = val.(string)
	case "adminEmail":
		inv.AdminEmail, _ = val.(string)
	case "clientEmail":
		inv.ClientEmail, _ = val.(string)
	case "clientName":
		inv.ClientName, _ = val.(string)
	case "currency":
		inv.Currency, _ = val.(string)
	case "paymentLink":
		inv.PaymentLink, _ = val.(string)
	case "status":
		inv.Status, _ = val.(string)
	case "items":
		if items, ok := val.([]models.InvoiceItem); ok {
			inv.Items = append([]models.InvoiceItem(nil), items...)
		}
	case "grandTotal":
		inv.GrandTotal = asFloat(val)
	case "receivedAmount":
		inv.ReceivedAmount = asFloat(val)
	case "remainingDue":
		inv.RemainingDue = asFloat(val)
	case "updatedAt":
		if t, ok := val.(time.Time); ok {
			inv.UpdatedAt = t
		}
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func (m *memInvoices) Delete(_ context.Context, id primitive.ObjectID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	delete(m.s.invoices, id)
	return nil
}
