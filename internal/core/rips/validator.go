package rips

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/factusalud/rips-engine/internal/core/domain"
)

// totalTolerance is the accepted gap, in pesos, between the invoice total and
// the summed record values before TOT001 fires.
var totalTolerance = decimal.NewFromFloat(1.00)

// Validator runs the consistency rules over a built record set. It is
// stateless and never mutates its input; the returned slice always carries at
// least one message.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Validate(set domain.RecordSet) []domain.ValidationMessage {
	var messages []domain.ValidationMessage

	targetDocType := set.Invoice.DocumentType
	targetDocNumber := set.Invoice.DocumentNumber
	if set.User != nil {
		if set.User.DocumentType != "" {
			targetDocType = set.User.DocumentType
		}
		if set.User.DocumentNumber != "" {
			targetDocNumber = set.User.DocumentNumber
		}
	}

	messages = v.validateDocuments(targetDocType, targetDocNumber, set, messages)
	messages = v.validateTotals(set, messages)
	messages = v.validateDiagnoses(set, messages)
	messages = v.validateCUPS(set, messages)

	if len(messages) == 0 {
		messages = append(messages, domain.ValidationMessage{
			Severity: domain.SeverityInfo,
			Code:     "VAL000",
			Message:  "Registros validados sin inconsistencias detectadas.",
		})
	}
	return messages
}

func (v *Validator) validateDocuments(targetDocType, targetDocNumber string, set domain.RecordSet, messages []domain.ValidationMessage) []domain.ValidationMessage {
	var mismatches []string

	check := func(recordType, docType, docNumber string) {
		if docNumber == "" {
			mismatches = append(mismatches, recordType+": documento vacío")
			return
		}
		if targetDocNumber != "" && docNumber != targetDocNumber {
			mismatches = append(mismatches, fmt.Sprintf("%s: documento %s != %s", recordType, docNumber, targetDocNumber))
		}
		if targetDocType != "" && docType != "" && docType != targetDocType {
			mismatches = append(mismatches, fmt.Sprintf("%s: tipo %s != %s", recordType, docType, targetDocType))
		}
	}

	for _, record := range set.Procedures {
		check("AP", record.DocumentType, record.DocumentNumber)
	}
	for _, record := range set.Consultations {
		check("AC", record.DocumentType, record.DocumentNumber)
	}
	for _, record := range set.Medications {
		check("AM", record.DocumentType, record.DocumentNumber)
	}
	for _, record := range set.OtherServices {
		check("AT", record.DocumentType, record.DocumentNumber)
	}

	if len(mismatches) > 0 {
		messages = append(messages, domain.ValidationMessage{
			Severity: domain.SeverityWarning,
			Code:     "DOC001",
			Message:  "Inconsistencias en tipo/número de documento: " + strings.Join(mismatches, "; "),
		})
	}
	return messages
}

// validateTotals reconciles the invoice total against AP alone when AP carries
// value, falling back to AC+AM+AT otherwise. Both sides never add together;
// when both are present TOT002 notes the extras were ignored.
func (v *Validator) validateTotals(set domain.RecordSet, messages []domain.ValidationMessage) []domain.ValidationMessage {
	totalProcedures := decimal.Zero
	for _, record := range set.Procedures {
		totalProcedures = totalProcedures.Add(record.NetValue)
	}
	extrasTotal := decimal.Zero
	for _, record := range set.Consultations {
		extrasTotal = extrasTotal.Add(record.NetValue)
	}
	for _, record := range set.Medications {
		extrasTotal = extrasTotal.Add(record.TotalValue)
	}
	for _, record := range set.OtherServices {
		extrasTotal = extrasTotal.Add(record.TotalValue)
	}

	var calculatedTotal decimal.Decimal
	if totalProcedures.IsPositive() {
		calculatedTotal = totalProcedures
		if extrasTotal.IsPositive() {
			messages = append(messages, domain.ValidationMessage{
				Severity: domain.SeverityInfo,
				Code:     "TOT002",
				Message:  "Valores en AC/AM/AT detectados adicionales a AP; se usa AP para conciliación de totales.",
			})
		}
	} else {
		calculatedTotal = extrasTotal
	}

	difference := set.Invoice.TotalValue.Sub(calculatedTotal)
	if difference.Abs().GreaterThan(totalTolerance) {
		messages = append(messages, domain.ValidationMessage{
			Severity: domain.SeverityWarning,
			Code:     "TOT001",
			Message: fmt.Sprintf("Total factura (%s) difiere de suma registros (%s) por %s.",
				set.Invoice.TotalValue, calculatedTotal, difference),
		})
	}
	return messages
}

func (v *Validator) validateDiagnoses(set domain.RecordSet, messages []domain.ValidationMessage) []domain.ValidationMessage {
	var missing []string

	for idx, record := range set.Procedures {
		if record.DiagnosisCode == "" {
			missing = append(missing, fmt.Sprintf("AP[%d] sin diagnóstico principal", idx+1))
		}
	}
	for idx, record := range set.Consultations {
		if record.PrincipalDiagnosis == "" {
			missing = append(missing, fmt.Sprintf("AC[%d] sin diagnóstico principal", idx+1))
		}
	}
	for idx, record := range set.Medications {
		if record.PrincipalDiagnosis == "" {
			missing = append(missing, fmt.Sprintf("AM[%d] sin diagnóstico principal", idx+1))
		}
	}
	for idx, record := range set.OtherServices {
		if record.PrincipalDiagnosis == "" {
			missing = append(missing, fmt.Sprintf("AT[%d] sin diagnóstico principal", idx+1))
		}
	}

	if len(missing) > 0 {
		messages = append(messages, domain.ValidationMessage{
			Severity: domain.SeverityError,
			Code:     "DX001",
			Message:  "Diagnósticos ausentes: " + strings.Join(missing, "; "),
		})
	}
	return messages
}

func (v *Validator) validateCUPS(set domain.RecordSet, messages []domain.ValidationMessage) []domain.ValidationMessage {
	var missing []string
	for idx, record := range set.Procedures {
		if record.CUPSCode == "" {
			missing = append(missing, strconv.Itoa(idx+1))
		}
	}
	if len(missing) > 0 {
		messages = append(messages, domain.ValidationMessage{
			Severity: domain.SeverityError,
			Code:     "CUPS001",
			Message:  fmt.Sprintf("Procedimientos sin código CUPS en registros: %s.", strings.Join(missing, ", ")),
		})
	}
	return messages
}
