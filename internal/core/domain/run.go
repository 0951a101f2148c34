package domain

import "time"

type RunStatus string

const (
	StatusReceived   RunStatus = "received"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// Run tracks one invoice/history/annex triple through the pipeline. The
// entity values themselves are created fresh per run and never shared across
// concurrent runs.
type Run struct {
	ID          string    `json:"id"`
	InvoiceKey  string    `json:"invoice_key"`
	HistoryKey  string    `json:"history_key"`
	AnnexKey    string    `json:"annex_key,omitempty"`
	Status      RunStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
	Result      *Result   `json:"result,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IdentitySummary is the resolved invoice/patient summary exposed to callers.
type IdentitySummary struct {
	InvoiceNumber  string `json:"invoice_number"`
	InvoiceDate    string `json:"invoice_date"`
	DocumentType   string `json:"document_type,omitempty"`
	DocumentNumber string `json:"document_number,omitempty"`
	FullName       string `json:"full_name,omitempty"`
}

// Result is the complete output payload for one processed triple.
type Result struct {
	Identity IdentitySummary     `json:"identity"`
	Records  RecordSet           `json:"records"`
	Clinical *ClinicalExtraction `json:"clinical,omitempty"`
}
