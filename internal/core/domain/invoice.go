package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceLine is one billed item extracted from the electronic invoice table.
type InvoiceLine struct {
	LineID      string          `json:"line_id,omitempty"`
	CUPSCode    string          `json:"cups_code,omitempty"`
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Invoice carries the header and line items of the electronic invoice.
// Extraction is best-effort: every field except InvoiceID and IssueDate may
// be empty. The stated total is not reconciled against the lines here; that
// is a validator concern.
type Invoice struct {
	InvoiceID      string          `json:"invoice_id"`
	IssueDate      time.Time       `json:"issue_date"`
	SupplierTaxID  string          `json:"supplier_tax_id,omitempty"`
	SupplierName   string          `json:"supplier_name,omitempty"`
	CustomerTaxID  string          `json:"customer_tax_id,omitempty"`
	CustomerName   string          `json:"customer_name,omitempty"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Currency       string          `json:"currency"`
	Lines          []InvoiceLine   `json:"lines"`
}
