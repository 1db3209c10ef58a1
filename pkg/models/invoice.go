package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invoice status values.
const (
	InvoiceUnpaid = "Unpaid"
	InvoiceSent   = "Sent"
	InvoicePaid   = "Paid"
)

// Invoice is the authoritative billing document. The human-facing InvoiceID
// ("INV-" + 6 trailing timestamp digits) and the native document id must
// resolve to the same document.
type Invoice struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	InvoiceID      string             `bson:"invoiceId" json:"invoiceId"`
	ProjectID      string             `bson:"projectId,omitempty" json:"projectId,omitempty"`
	ProjectTitle   string             `bson:"projectTitle" json:"projectTitle"`
	AdminEmail     string             `bson:"adminEmail" json:"adminEmail"`
	ClientEmail    string             `bson:"clientEmail" json:"clientEmail"`
	ClientName     string             `bson:"clientName" json:"clientName"`
	Currency       string             `bson:"currency" json:"currency"`
	Items          []InvoiceItem      `bson:"items" json:"items"`
	GrandTotal     float64            `bson:"grandTotal" json:"grandTotal"`
	ReceivedAmount float64            `bson:"receivedAmount" json:"receivedAmount"`
	RemainingDue   float64            `bson:"remainingDue" json:"remainingDue"`
	PaymentLink    string             `bson:"paymentLink,omitempty" json:"paymentLink,omitempty"`
	Status         string             `bson:"status" json:"status"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// InvoiceItem is a single line item.
type InvoiceItem struct {
	Name  string  `bson:"name" json:"name"`
	Qty   int     `bson:"qty" json:"qty"`
	Price float64 `bson:"price" json:"price"`
}

// ItemsTotal sums qty*price across line items.
func ItemsTotal(items []InvoiceItem) float64 {
	var total float64
	for _, it := range items {
		total += float64(it.Qty) * it.Price
	}
	return total
}

// NewInvoiceNumber generates a human-readable invoice number from the
// trailing six digits of a unix-millisecond timestamp.
func NewInvoiceNumber(now time.Time) string {
	ms := fmt.Sprintf("%d", now.UnixMilli())
	return "INV-" + ms[len(ms)-6:]
}

// InvoiceSummary is the denormalized per-user projection of an Invoice,
// keyed by the invoice's native id. It is eventually consistent with the
// source document; the invoices collection is authoritative.
type InvoiceSummary struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	InvoiceID    string             `bson:"invoiceId" json:"invoiceId"`
	ProjectTitle string             `bson:"projectTitle" json:"projectTitle"`
	ClientName   string             `bson:"clientName" json:"clientName"`
	GrandTotal   float64            `bson:"grandTotal" json:"grandTotal"`
	Status       string             `bson:"status" json:"status"`
	Date         time.Time          `bson:"date" json:"date"`
}

// Summarize builds the summary projection of an invoice.
func Summarize(inv *Invoice) InvoiceSummary {
	return InvoiceSummary{
		ID:           inv.ID,
		InvoiceID:    inv.InvoiceID,
		ProjectTitle: inv.ProjectTitle,
		ClientName:   inv.ClientName,
		GrandTotal:   inv.GrandTotal,
		Status:       inv.Status,
		Date:         inv.CreatedAt,
	}
}
