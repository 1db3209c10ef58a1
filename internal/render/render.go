// Package render produces the PDF form of an invoice.
package render

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"

	"github.com/vaultledger/server/pkg/models"
)

// PDF renders invoices with a fixed A4 layout: business header band,
// bill-to block, line-item table, totals band.
type PDF struct{}

// NewPDF creates the renderer.
func NewPDF() *PDF {
	return &PDF{}
}

// Render builds the PDF bytes for an invoice. Settings supply the business
// identity for the header; nil settings fall back to the issuer's email.
func (p *PDF) Render(inv *models.Invoice, cfg *models.Settings) ([]byte, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetMargins(15, 15, 15)
	doc.AddPage()

	business := inv.AdminEmail
	if cfg != nil && cfg.BusinessName != "" {
		business = cfg.BusinessName
	}

	// Header band
	doc.SetFillColor(33, 37, 41)
	doc.SetTextColor(255, 255, 255)
	doc.Rect(0, 0, 210, 30, "F")
	doc.SetFont("Helvetica", "B", 18)
	doc.SetXY(15, 8)
	doc.CellFormat(120, 10, business, "", 0, "L", false, 0, "")
	doc.SetFont("Helvetica", "B", 14)
	doc.CellFormat(60, 10, "INVOICE "+inv.InvoiceID, "", 1, "R", false, 0, "")

	// Bill-to block
	doc.SetTextColor(0, 0, 0)
	doc.SetXY(15, 40)
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(0, 6, "Billed to", "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 5, inv.ClientName, "", 1, "L", false, 0, "")
	doc.CellFormat(0, 5, inv.ClientEmail, "", 1, "L", false, 0, "")
	if inv.ProjectTitle != "" {
		doc.CellFormat(0, 5, "Project: "+inv.ProjectTitle, "", 1, "L", false, 0, "")
	}
	doc.CellFormat(0, 5, "Date: "+inv.CreatedAt.Format("02 Jan 2006"), "", 1, "L", false, 0, "")
	doc.Ln(6)

	// Line items
	doc.SetFont("Helvetica", "B", 10)
	doc.SetFillColor(240, 240, 240)
	doc.CellFormat(100, 8, "Item", "1", 0, "L", true, 0, "")
	doc.CellFormat(20, 8, "Qty", "1", 0, "C", true, 0, "")
	doc.CellFormat(30, 8, "Price", "1", 0, "R", true, 0, "")
	doc.CellFormat(30, 8, "Amount", "1", 1, "R", true, 0, "")

	doc.SetFont("Helvetica", "", 10)
	for _, it := range inv.Items {
		amount := float64(it.Qty) * it.Price
		doc.CellFormat(100, 8, it.Name, "1", 0, "L", false, 0, "")
		doc.CellFormat(20, 8, fmt.Sprintf("%d", it.Qty), "1", 0, "C", false, 0, "")
		doc.CellFormat(30, 8, money(inv.Currency, it.Price), "1", 0, "R", false, 0, "")
		doc.CellFormat(30, 8, money(inv.Currency, amount), "1", 1, "R", false, 0, "")
	}

	// Totals band
	doc.Ln(4)
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(120, 8, "", "", 0, "L", false, 0, "")
	doc.CellFormat(30, 8, "Grand total", "", 0, "R", false, 0, "")
	doc.CellFormat(30, 8, money(inv.Currency, inv.GrandTotal), "", 1, "R", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(120, 6, "", "", 0, "L", false, 0, "")
	doc.CellFormat(30, 6, "Received", "", 0, "R", false, 0, "")
	doc.CellFormat(30, 6, money(inv.Currency, inv.ReceivedAmount), "", 1, "R", false, 0, "")
	doc.CellFormat(120, 6, "", "", 0, "L", false, 0, "")
	doc.CellFormat(30, 6, "Due", "", 0, "R", false, 0, "")
	doc.CellFormat(30, 6, money(inv.Currency, inv.RemainingDue), "", 1, "R", false, 0, "")

	doc.Ln(8)
	doc.SetFont("Helvetica", "I", 9)
	doc.CellFormat(0, 5, "Status: "+inv.Status, "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", inv.InvoiceID, err)
	}
	return buf.Bytes(), nil
}

func money(currency string, v float64) string {
	if currency == "" {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%s %.2f", currency, v)
}
