package rips

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/factusalud/rips-engine/internal/core/domain"
)

// DefaultDocumentType closes the identity precedence chain when neither the
// history nor the annex produced a document type.
const DefaultDocumentType = "CC"

// Builder fuses one Invoice, one Patient and an optional Annex into the six
// RIPS record sets. Identity is resolved once and force-applied to every
// record so the output is internally consistent even when the sources were
// not. A Builder serves exactly one triple; construct a new one per run.
type Builder struct {
	invoice      *domain.Invoice
	patient      *domain.Patient
	annex        *domain.Annex
	providerCode string
	maps         CodeMaps

	identityResolved bool
	documentType     string
	documentNumber   string
}

func NewBuilder(invoice *domain.Invoice, patient *domain.Patient, annex *domain.Annex, providerCode string, maps CodeMaps) *Builder {
	return &Builder{
		invoice:      invoice,
		patient:      patient,
		annex:        annex,
		providerCode: providerCode,
		maps:         maps,
	}
}

// Build produces the complete record set, without validation messages.
func (b *Builder) Build() domain.RecordSet {
	return domain.RecordSet{
		Invoice:       b.BuildInvoiceRecord(),
		User:          b.BuildUserRecord(),
		Procedures:    b.BuildProcedureRecords(),
		Consultations: b.BuildConsultationRecords(),
		Medications:   b.BuildMedicationRecords(),
		OtherServices: b.BuildOtherServiceRecords(),
	}
}

func (b *Builder) BuildProcedureRecords() []domain.ProcedureRecord {
	providerCode := b.resolveProviderCode()
	docType, docNumber := b.ResolveIdentity()
	serviceDate := b.resolveServiceDate()
	attentionCode := lookup(b.maps.AttentionTypes, b.patient.ServiceType)
	purposeCode := lookup(b.maps.ServicePurposes, b.patient.ServicePurpose)

	records := make([]domain.ProcedureRecord, 0, len(b.invoice.Lines))
	for _, line := range b.invoice.Lines {
		serviceCode := line.LineID
		if serviceCode == "" {
			serviceCode = "1"
		}
		records = append(records, domain.ProcedureRecord{
			ProviderCode:       providerCode,
			InvoiceNumber:      b.invoice.InvoiceID,
			DocumentType:       docType,
			DocumentNumber:     docNumber,
			ServiceDate:        serviceDate,
			ServiceCode:        serviceCode,
			CUPSCode:           line.CUPSCode,
			DiagnosisCode:      b.patient.PrincipalDiagnosisCode,
			ServicePurposeCode: purposeCode,
			AttentionTypeCode:  attentionCode,
			CopaymentValue:     decimal.Zero,
			NetValue:           lineValue(line),
		})
	}
	return records
}

func (b *Builder) BuildConsultationRecords() []domain.ConsultationRecord {
	providerCode := b.resolveProviderCode()
	docType, docNumber := b.ResolveIdentity()

	records := make([]domain.ConsultationRecord, 0, len(b.patient.Consultations))
	for _, consultation := range b.patient.Consultations {
		consultationDate := b.resolveServiceDate()
		if consultation.Datetime != nil {
			consultationDate = *consultation.Datetime
		}
		purposeText := consultation.PurposeText
		if purposeText == "" {
			purposeText = b.patient.ServicePurpose
		}
		diagnosisType := consultation.DiagnosisType
		if diagnosisType == "" {
			diagnosisType = "1"
		}
		value := b.matchLineValue(consultation.Code)

		records = append(records, domain.ConsultationRecord{
			ProviderCode:        providerCode,
			InvoiceNumber:       b.invoice.InvoiceID,
			DocumentType:        docType,
			DocumentNumber:      docNumber,
			ConsultationDate:    consultationDate,
			AuthorizationNumber: consultation.AuthorizationNumber,
			ConsultationCode:    consultation.Code,
			ConsultationPurpose: lookup(b.maps.ServicePurposes, purposeText),
			PrincipalDiagnosis:  b.patient.PrincipalDiagnosisCode,
			DiagnosisType:       diagnosisType,
			ConsultationValue:   value,
			CopaymentValue:      decimal.Zero,
			NetValue:            value,
		})
	}
	return records
}

func (b *Builder) BuildMedicationRecords() []domain.MedicationRecord {
	if b.annex == nil {
		return nil
	}
	providerCode := b.resolveProviderCode()
	docType, docNumber := b.ResolveIdentity()

	records := make([]domain.MedicationRecord, 0, len(b.annex.Medications))
	for _, med := range b.annex.Medications {
		entryType, entryNumber := forceIdentity(med.DocumentType, med.DocumentNumber, docType, docNumber)
		entryProvider := med.ProviderCode
		if entryProvider == "" {
			entryProvider = providerCode
		}
		diagnosis := med.DiagnosisCode
		if diagnosis == "" {
			diagnosis = b.patient.PrincipalDiagnosisCode
		}
		records = append(records, domain.MedicationRecord{
			ProviderCode:        entryProvider,
			InvoiceNumber:       b.invoice.InvoiceID,
			DocumentType:        entryType,
			DocumentNumber:      entryNumber,
			AuthorizationNumber: med.AuthorizationNumber,
			MedicationCode:      med.MedicationCode,
			MedicationName:      med.MedicationName,
			MedicationType:      med.MedicationType,
			PharmaceuticalForm:  med.PharmaceuticalForm,
			Concentration:       med.Concentration,
			UnitMeasure:         med.UnitMeasure,
			TreatmentDays:       med.TreatmentDays,
			Quantity:            med.Quantity,
			UnitValue:           med.UnitValue,
			TotalValue:          med.TotalValue,
			MIPRESID:            med.MIPRESID,
			PrincipalDiagnosis:  diagnosis,
			RelatedDiagnosis:    med.RelatedDiagnosis,
			AdministrationDate:  med.AdministrationDate,
		})
	}
	return records
}

func (b *Builder) BuildOtherServiceRecords() []domain.OtherServiceRecord {
	if b.annex == nil {
		return nil
	}
	providerCode := b.resolveProviderCode()
	docType, docNumber := b.ResolveIdentity()

	records := make([]domain.OtherServiceRecord, 0, len(b.annex.OtherServices))
	for _, svc := range b.annex.OtherServices {
		entryType, entryNumber := forceIdentity(svc.DocumentType, svc.DocumentNumber, docType, docNumber)
		entryProvider := svc.ProviderCode
		if entryProvider == "" {
			entryProvider = providerCode
		}
		diagnosis := svc.DiagnosisCode
		if diagnosis == "" {
			diagnosis = b.patient.PrincipalDiagnosisCode
		}
		records = append(records, domain.OtherServiceRecord{
			ProviderCode:        entryProvider,
			InvoiceNumber:       b.invoice.InvoiceID,
			DocumentType:        entryType,
			DocumentNumber:      entryNumber,
			AuthorizationNumber: svc.AuthorizationNumber,
			ServiceCode:         svc.ServiceCode,
			ServiceName:         svc.ServiceName,
			ServiceType:         svc.ServiceType,
			ServiceDate:         svc.ServiceDate,
			Quantity:            svc.Quantity,
			UnitValue:           svc.UnitValue,
			TotalValue:          svc.TotalValue,
			MIPRESID:            svc.MIPRESID,
			PrincipalDiagnosis:  diagnosis,
			RelatedDiagnosis:    svc.RelatedDiagnosis,
		})
	}
	return records
}

func (b *Builder) BuildInvoiceRecord() domain.InvoiceRecord {
	docType, docNumber := b.ResolveIdentity()
	return domain.InvoiceRecord{
		ProviderCode:    b.resolveProviderCode(),
		ProviderName:    b.invoice.SupplierName,
		InvoiceNumber:   b.invoice.InvoiceID,
		InvoiceDate:     b.invoice.IssueDate,
		TotalValue:      b.invoice.TotalAmount,
		DocumentType:    docType,
		DocumentNumber:  docNumber,
		CopaymentValue:  decimal.Zero,
		CommissionValue: decimal.Zero,
		DiscountValue:   decimal.Zero,
	}
}

// BuildUserRecord returns nil when no document number could be resolved from
// any source: a user row without identity is not reportable.
func (b *Builder) BuildUserRecord() *domain.UserRecord {
	docType, docNumber := b.ResolveIdentity()
	if docNumber == "" {
		return nil
	}

	lastName, secondLastName, firstName, secondName := splitFullName(b.resolveFullName())

	record := &domain.UserRecord{
		DocumentType:   docType,
		DocumentNumber: docNumber,
		LastName:       lastName,
		SecondLastName: secondLastName,
		FirstName:      firstName,
		SecondName:     secondName,
	}

	if b.annex != nil {
		annexPatient := b.annex.Patient
		record.Gender = strings.ToUpper(annexPatient.Gender)
		if annexPatient.BirthDate != nil {
			if age := calculateAge(*annexPatient.BirthDate, b.resolveServiceDate()); age != nil {
				record.Age = age
				record.AgeUnit = "A"
			}
		}
		record.MunicipalityCode = annexPatient.MunicipalityCode
		if len(annexPatient.MunicipalityCode) >= 2 {
			record.DepartmentCode = annexPatient.MunicipalityCode[:2]
		}
		record.ResidenceArea = annexPatient.ResidenceZone
	}
	return record
}

// ResolveIdentity commits to a single document type/number by walking a fixed
// candidate chain: history identity, history admission fields, annex identity,
// then the CC default with an empty number. Memoized per builder; the result
// is deterministic and always one of the candidates or the default.
func (b *Builder) ResolveIdentity() (string, string) {
	if b.identityResolved {
		return b.documentType, b.documentNumber
	}

	typeCandidates := []string{
		b.patient.DocumentType,
		b.patient.AdmissionDocumentType,
	}
	numberCandidates := []string{
		b.patient.DocumentNumber,
		b.patient.AdmissionDocumentNumber,
	}
	if b.annex != nil {
		typeCandidates = append(typeCandidates, b.annex.Patient.DocumentType)
		numberCandidates = append(numberCandidates, b.annex.Patient.DocumentNumber)
	}

	b.documentType = DefaultDocumentType
	for _, candidate := range typeCandidates {
		if candidate != "" {
			b.documentType = strings.ToUpper(candidate)
			break
		}
	}
	b.documentNumber = ""
	for _, candidate := range numberCandidates {
		if candidate != "" {
			b.documentNumber = strings.ReplaceAll(candidate, " ", "")
			break
		}
	}
	b.identityResolved = true
	return b.documentType, b.documentNumber
}

func (b *Builder) resolveProviderCode() string {
	if b.providerCode != "" {
		return b.providerCode
	}
	return b.invoice.SupplierTaxID
}

func (b *Builder) resolveFullName() string {
	if b.patient.FullName != "" {
		return b.patient.FullName
	}
	if b.annex != nil {
		return b.annex.Patient.FullName
	}
	return ""
}

func (b *Builder) resolveServiceDate() time.Time {
	if b.patient.AdmissionDatetime != nil {
		return *b.patient.AdmissionDatetime
	}
	return b.invoice.IssueDate
}

// matchLineValue back-fills the consultation value from the invoice line
// sharing the same procedure code. No match is zero: a consultation billed at
// zero is a valid, reportable state.
func (b *Builder) matchLineValue(cupsCode string) decimal.Decimal {
	if cupsCode == "" {
		return decimal.Zero
	}
	for _, line := range b.invoice.Lines {
		if strings.TrimSpace(line.CUPSCode) == cupsCode {
			return lineValue(line)
		}
	}
	return decimal.Zero
}

func lineValue(line domain.InvoiceLine) decimal.Decimal {
	if !line.LineTotal.IsZero() {
		return line.LineTotal
	}
	return line.UnitPrice
}

// forceIdentity overrides the identity travelling in an annex entry with the
// resolved one whenever they disagree, keeping the entry value only when the
// resolved side is blank.
func forceIdentity(entryType, entryNumber, resolvedType, resolvedNumber string) (string, string) {
	if entryType == "" {
		entryType = resolvedType
	}
	if entryNumber == "" {
		entryNumber = resolvedNumber
	}
	if entryNumber != "" && resolvedNumber != "" && entryNumber != resolvedNumber {
		entryNumber = resolvedNumber
	}
	if entryType != "" && resolvedType != "" && entryType != resolvedType {
		entryType = resolvedType
	}
	return entryType, entryNumber
}

// splitFullName applies the arity heuristic: 1 token is a given name, 2 is
// surname+given, 3 is two surnames+given, 4 or more keeps the last two tokens
// as surnames and joins the middle as the second given name. Best-effort only.
func splitFullName(fullName string) (lastName, secondLastName, firstName, secondName string) {
	tokens := strings.Fields(fullName)
	switch len(tokens) {
	case 0:
		return "", "", "", ""
	case 1:
		return "", "", tokens[0], ""
	case 2:
		return tokens[1], "", tokens[0], ""
	case 3:
		return tokens[2], tokens[1], tokens[0], ""
	default:
		return tokens[len(tokens)-2], tokens[len(tokens)-1], tokens[0], strings.Join(tokens[1:len(tokens)-2], " ")
	}
}

// calculateAge uses whole-year arithmetic with a month/day cutoff. A birth
// date after the reference date yields no age rather than a negative one.
func calculateAge(birthDate, referenceDate time.Time) *int {
	if birthDate.After(referenceDate) {
		return nil
	}
	years := referenceDate.Year() - birthDate.Year()
	if referenceDate.Month() < birthDate.Month() ||
		(referenceDate.Month() == birthDate.Month() && referenceDate.Day() < birthDate.Day()) {
		years--
	}
	return &years
}
