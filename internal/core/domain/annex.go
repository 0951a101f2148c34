package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AnnexPatient is the machine-generated patient identity from the FEV annex.
// It ranks above free-text extraction in the identity precedence chain.
type AnnexPatient struct {
	DocumentType     string     `json:"document_type,omitempty"`
	DocumentNumber   string     `json:"document_number,omitempty"`
	FullName         string     `json:"full_name,omitempty"`
	Gender           string     `json:"gender,omitempty"`
	BirthDate        *time.Time `json:"birth_date,omitempty"`
	MunicipalityCode string     `json:"municipality_code,omitempty"`
	ResidenceZone    string     `json:"residence_zone,omitempty"`
}

// MedicationEntry is one dispensed medication from the annex.
type MedicationEntry struct {
	ProviderCode        string          `json:"provider_code"`
	DocumentType        string          `json:"document_type,omitempty"`
	DocumentNumber      string          `json:"document_number,omitempty"`
	AuthorizationNumber string          `json:"authorization_number,omitempty"`
	MedicationCode      string          `json:"medication_code"`
	MedicationName      string          `json:"medication_name,omitempty"`
	MedicationType      string          `json:"medication_type,omitempty"`
	UnitValue           decimal.Decimal `json:"unit_value"`
	TotalValue          decimal.Decimal `json:"total_value"`
	Quantity            decimal.Decimal `json:"quantity"`
	UnitMeasure         string          `json:"unit_measure,omitempty"`
	TreatmentDays       *int            `json:"treatment_days,omitempty"`
	DiagnosisCode       string          `json:"diagnosis_code,omitempty"`
	RelatedDiagnosis    string          `json:"related_diagnosis,omitempty"`
	MIPRESID            string          `json:"mipres_id,omitempty"`
	AdministrationDate  *time.Time      `json:"administration_date,omitempty"`
	PharmaceuticalForm  string          `json:"pharmaceutical_form,omitempty"`
	Concentration       string          `json:"concentration,omitempty"`
}

// OtherServiceEntry is one non-procedure, non-medication service from the annex.
type OtherServiceEntry struct {
	ProviderCode        string          `json:"provider_code"`
	DocumentType        string          `json:"document_type,omitempty"`
	DocumentNumber      string          `json:"document_number,omitempty"`
	AuthorizationNumber string          `json:"authorization_number,omitempty"`
	ServiceCode         string          `json:"service_code"`
	ServiceName         string          `json:"service_name,omitempty"`
	ServiceType         string          `json:"service_type,omitempty"`
	ServiceDate         *time.Time      `json:"service_date,omitempty"`
	UnitValue           decimal.Decimal `json:"unit_value"`
	TotalValue          decimal.Decimal `json:"total_value"`
	Quantity            decimal.Decimal `json:"quantity"`
	DiagnosisCode       string          `json:"diagnosis_code,omitempty"`
	RelatedDiagnosis    string          `json:"related_diagnosis,omitempty"`
	MIPRESID            string          `json:"mipres_id,omitempty"`
}

// Annex aggregates the parsed FEV annex content.
type Annex struct {
	Patient       AnnexPatient        `json:"patient"`
	Medications   []MedicationEntry   `json:"medications"`
	OtherServices []OtherServiceEntry `json:"other_services"`
}
