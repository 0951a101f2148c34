package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/factusalud/rips-engine/internal/core/domain"
	"github.com/factusalud/rips-engine/internal/core/extract"
	"github.com/factusalud/rips-engine/internal/core/ports"
	"github.com/factusalud/rips-engine/internal/core/rips"
)

// GenerationPipeline runs the full document-to-RIPS transformation: structured
// text recovery, per-document extraction, record fusion and validation. It is
// shared by the asynchronous worker path and the synchronous endpoint.
type GenerationPipeline struct {
	textSource   ports.DocumentTextSource
	clinical     *extract.ClinicalEntityExtractor
	invoices     *extract.InvoiceExtractor
	histories    *extract.HistoryExtractor
	annexes      *extract.AnnexExtractor
	validator    *rips.Validator
	providerCode string
	codeMaps     rips.CodeMaps
}

func NewGenerationPipeline(
	textSource ports.DocumentTextSource,
	clinical *extract.ClinicalEntityExtractor,
	providerCode string,
	codeMaps rips.CodeMaps,
) *GenerationPipeline {
	return &GenerationPipeline{
		textSource:   textSource,
		clinical:     clinical,
		invoices:     extract.NewInvoiceExtractor(),
		histories:    extract.NewHistoryExtractor(),
		annexes:      extract.NewAnnexExtractor(),
		validator:    rips.NewValidator(),
		providerCode: providerCode,
		codeMaps:     codeMaps,
	}
}

// Run consumes the document streams and produces the complete result. The
// annex stream is optional; invoice and history are not.
func (p *GenerationPipeline) Run(ctx context.Context, docs ports.RunDocuments) (*domain.Result, error) {
	if docs.Invoice == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read invoice", errors.New("missing invoice document"))
	}
	if docs.History == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read history", errors.New("missing clinical history document"))
	}

	invoiceContent, err := p.textSource.ExtractStructuredText(ctx, docs.Invoice)
	if err != nil {
		return nil, fmt.Errorf("extract invoice text: %w", err)
	}
	historyContent, err := p.textSource.ExtractStructuredText(ctx, docs.History)
	if err != nil {
		return nil, fmt.Errorf("extract history text: %w", err)
	}

	invoice, err := p.invoices.Extract(invoiceContent.Text, invoiceContent.Tables)
	if err != nil {
		return nil, fmt.Errorf("parse invoice: %w", err)
	}
	patient := p.histories.Extract(historyContent.Text)

	var annex *domain.Annex
	if docs.Annex != nil {
		raw, err := io.ReadAll(docs.Annex)
		if err != nil {
			return nil, fmt.Errorf("read annex: %w", err)
		}
		if len(raw) > 0 {
			annex, err = p.annexes.Extract(raw)
			if err != nil {
				return nil, fmt.Errorf("parse annex: %w", err)
			}
		}
	}

	var clinical *domain.ClinicalExtraction
	if p.clinical != nil {
		clinical = p.clinical.Extract(ctx, historyContent.Text)
	}

	builder := rips.NewBuilder(invoice, patient, annex, p.providerCode, p.codeMaps)
	records := builder.Build()
	records.Messages = p.validator.Validate(records)

	docType, docNumber := builder.ResolveIdentity()
	fullName := patient.FullName
	if fullName == "" && annex != nil {
		fullName = annex.Patient.FullName
	}
	return &domain.Result{
		Identity: domain.IdentitySummary{
			InvoiceNumber:  invoice.InvoiceID,
			InvoiceDate:    invoice.IssueDate.Format("2006-01-02"),
			DocumentType:   docType,
			DocumentNumber: docNumber,
			FullName:       fullName,
		},
		Records:  records,
		Clinical: clinical,
	}, nil
}
