package rips

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/factusalud/rips-engine/internal/core/domain"
)

func cleanRecordSet() domain.RecordSet {
	return domain.RecordSet{
		Invoice: domain.InvoiceRecord{
			ProviderCode:   "PROV01",
			InvoiceNumber:  "FECR12345",
			InvoiceDate:    time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			TotalValue:     decimal.NewFromInt(150000),
			DocumentType:   "CC",
			DocumentNumber: "1234567890",
		},
		User: &domain.UserRecord{DocumentType: "CC", DocumentNumber: "1234567890"},
		Procedures: []domain.ProcedureRecord{
			{
				DocumentType:   "CC",
				DocumentNumber: "1234567890",
				CUPSCode:       "890201",
				DiagnosisCode:  "J039",
				NetValue:       decimal.NewFromInt(150000),
			},
		},
	}
}

func findMessage(messages []domain.ValidationMessage, code string) *domain.ValidationMessage {
	for i := range messages {
		if messages[i].Code == code {
			return &messages[i]
		}
	}
	return nil
}

func TestValidateCleanSetYieldsSingleInfo(t *testing.T) {
	messages := NewValidator().Validate(cleanRecordSet())
	if len(messages) != 1 {
		t.Fatalf("expected exactly one message, got %d: %+v", len(messages), messages)
	}
	if messages[0].Code != "VAL000" || messages[0].Severity != domain.SeverityInfo {
		t.Fatalf("expected VAL000 info, got %+v", messages[0])
	}
}

func TestValidateDocumentMismatch(t *testing.T) {
	set := cleanRecordSet()
	set.Procedures[0].DocumentNumber = "0000000000"
	set.Medications = []domain.MedicationRecord{
		{DocumentType: "TI", DocumentNumber: "1234567890", PrincipalDiagnosis: "J039"},
	}
	set.Consultations = []domain.ConsultationRecord{
		{DocumentType: "CC", PrincipalDiagnosis: "J039"},
	}

	messages := NewValidator().Validate(set)
	msg := findMessage(messages, "DOC001")
	if msg == nil {
		t.Fatalf("expected DOC001, got %+v", messages)
	}
	if msg.Severity != domain.SeverityWarning {
		t.Fatalf("expected warning severity, got %s", msg.Severity)
	}
	for _, fragment := range []string{
		"AP: documento 0000000000 != 1234567890",
		"AM: tipo TI != CC",
		"AC: documento vacío",
	} {
		if !strings.Contains(msg.Message, fragment) {
			t.Fatalf("DOC001 message missing %q: %s", fragment, msg.Message)
		}
	}
}

func TestValidateTotalsWithinToleranceStaysSilent(t *testing.T) {
	set := cleanRecordSet()
	set.Invoice.TotalValue = decimal.NewFromFloat(150000.99)

	messages := NewValidator().Validate(set)
	if msg := findMessage(messages, "TOT001"); msg != nil {
		t.Fatalf("expected no TOT001 within tolerance, got %s", msg.Message)
	}
}

func TestValidateTotalsMismatch(t *testing.T) {
	set := cleanRecordSet()
	set.Invoice.TotalValue = decimal.NewFromInt(200000)

	messages := NewValidator().Validate(set)
	msg := findMessage(messages, "TOT001")
	if msg == nil {
		t.Fatalf("expected TOT001, got %+v", messages)
	}
	if msg.Severity != domain.SeverityWarning {
		t.Fatalf("expected warning severity, got %s", msg.Severity)
	}
	if !strings.Contains(msg.Message, "por 50000") {
		t.Fatalf("expected signed difference in message, got %s", msg.Message)
	}
}

func TestValidateTotalsUsesExtrasWhenProceduresCarryNoValue(t *testing.T) {
	set := cleanRecordSet()
	set.Procedures[0].NetValue = decimal.Zero
	set.Medications = []domain.MedicationRecord{
		{DocumentType: "CC", DocumentNumber: "1234567890", PrincipalDiagnosis: "J039", TotalValue: decimal.NewFromInt(150000)},
	}

	messages := NewValidator().Validate(set)
	if msg := findMessage(messages, "TOT001"); msg != nil {
		t.Fatalf("expected extras to reconcile the total, got %s", msg.Message)
	}
	if msg := findMessage(messages, "TOT002"); msg != nil {
		t.Fatalf("TOT002 must not fire when AP has no value, got %s", msg.Message)
	}
}

func TestValidateTotalsReportsExtrasAlongsideProcedures(t *testing.T) {
	set := cleanRecordSet()
	set.OtherServices = []domain.OtherServiceRecord{
		{DocumentType: "CC", DocumentNumber: "1234567890", PrincipalDiagnosis: "J039", TotalValue: decimal.NewFromInt(30000)},
	}

	messages := NewValidator().Validate(set)
	msg := findMessage(messages, "TOT002")
	if msg == nil {
		t.Fatalf("expected TOT002, got %+v", messages)
	}
	if msg.Severity != domain.SeverityInfo {
		t.Fatalf("expected info severity, got %s", msg.Severity)
	}
	// AP still reconciles the invoice total on its own.
	if found := findMessage(messages, "TOT001"); found != nil {
		t.Fatalf("expected no TOT001, got %s", found.Message)
	}
}

func TestValidateMissingDiagnoses(t *testing.T) {
	set := cleanRecordSet()
	set.Procedures[0].DiagnosisCode = ""
	set.Medications = []domain.MedicationRecord{
		{DocumentType: "CC", DocumentNumber: "1234567890", TotalValue: decimal.Zero},
	}

	messages := NewValidator().Validate(set)
	msg := findMessage(messages, "DX001")
	if msg == nil {
		t.Fatalf("expected DX001, got %+v", messages)
	}
	if msg.Severity != domain.SeverityError {
		t.Fatalf("expected error severity, got %s", msg.Severity)
	}
	if !strings.Contains(msg.Message, "AP[1] sin diagnóstico principal") ||
		!strings.Contains(msg.Message, "AM[1] sin diagnóstico principal") {
		t.Fatalf("expected positioned diagnosis gaps, got %s", msg.Message)
	}
}

func TestValidateMissingCUPS(t *testing.T) {
	set := cleanRecordSet()
	set.Procedures = append(set.Procedures, domain.ProcedureRecord{
		DocumentType:   "CC",
		DocumentNumber: "1234567890",
		DiagnosisCode:  "J039",
	})

	messages := NewValidator().Validate(set)
	msg := findMessage(messages, "CUPS001")
	if msg == nil {
		t.Fatalf("expected CUPS001, got %+v", messages)
	}
	if msg.Severity != domain.SeverityError {
		t.Fatalf("expected error severity, got %s", msg.Severity)
	}
	if !strings.Contains(msg.Message, "registros: 2.") {
		t.Fatalf("expected second record flagged, got %s", msg.Message)
	}
}

func TestValidateUserIdentityOverridesInvoiceTarget(t *testing.T) {
	set := cleanRecordSet()
	set.Invoice.DocumentNumber = "distinto"
	// The user record wins as the reconciliation target, so records matching
	// the user stay clean.
	messages := NewValidator().Validate(set)
	if msg := findMessage(messages, "DOC001"); msg != nil {
		t.Fatalf("expected no DOC001, got %s", msg.Message)
	}
}
