package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceRecord is the AF header row, one per invoice.
type InvoiceRecord struct {
	ProviderCode    string          `json:"provider_code"`
	ProviderName    string          `json:"provider_name,omitempty"`
	InvoiceNumber   string          `json:"invoice_number"`
	InvoiceDate     time.Time       `json:"invoice_date"`
	TotalValue      decimal.Decimal `json:"total_value"`
	DocumentType    string          `json:"document_type,omitempty"`
	DocumentNumber  string          `json:"document_number,omitempty"`
	ContractNumber  string          `json:"contract_number,omitempty"`
	PolicyNumber    string          `json:"policy_number,omitempty"`
	CopaymentValue  decimal.Decimal `json:"copayment_value"`
	CommissionValue decimal.Decimal `json:"commission_value"`
	DiscountValue   decimal.Decimal `json:"discount_value"`
}

// UserRecord is the US row. Absent entirely when no document number could be
// resolved from any source.
type UserRecord struct {
	DocumentType     string `json:"document_type"`
	DocumentNumber   string `json:"document_number"`
	LastName         string `json:"last_name,omitempty"`
	SecondLastName   string `json:"second_last_name,omitempty"`
	FirstName        string `json:"first_name,omitempty"`
	SecondName       string `json:"second_name,omitempty"`
	Age              *int   `json:"age,omitempty"`
	AgeUnit          string `json:"age_unit,omitempty"`
	Gender           string `json:"gender,omitempty"`
	DepartmentCode   string `json:"department_code,omitempty"`
	MunicipalityCode string `json:"municipality_code,omitempty"`
	ResidenceArea    string `json:"residence_area,omitempty"`
}

// ProcedureRecord is one AP row per invoice line.
type ProcedureRecord struct {
	ProviderCode        string          `json:"provider_code"`
	InvoiceNumber       string          `json:"invoice_number"`
	DocumentType        string          `json:"document_type"`
	DocumentNumber      string          `json:"document_number"`
	ServiceDate         time.Time       `json:"service_date"`
	AuthorizationNumber string          `json:"authorization_number,omitempty"`
	ServiceCode         string          `json:"service_code"`
	CUPSCode            string          `json:"cups_code"`
	DiagnosisCode       string          `json:"diagnosis_code,omitempty"`
	DiagnosisRelated    string          `json:"diagnosis_related,omitempty"`
	ServicePurposeCode  string          `json:"service_purpose_code,omitempty"`
	AttentionTypeCode   string          `json:"attention_type_code,omitempty"`
	CopaymentValue      decimal.Decimal `json:"copayment_value"`
	NetValue            decimal.Decimal `json:"net_value"`
	ModalityCode        string          `json:"modality_code,omitempty"`
}

// ConsultationRecord is one AC row per clinical consultation entry.
type ConsultationRecord struct {
	ProviderCode        string          `json:"provider_code"`
	InvoiceNumber       string          `json:"invoice_number"`
	DocumentType        string          `json:"document_type"`
	DocumentNumber      string          `json:"document_number"`
	ConsultationDate    time.Time       `json:"consultation_date"`
	AuthorizationNumber string          `json:"authorization_number,omitempty"`
	ConsultationCode    string          `json:"consultation_code"`
	ConsultationPurpose string          `json:"consultation_purpose,omitempty"`
	ExternalCause       string          `json:"external_cause,omitempty"`
	PrincipalDiagnosis  string          `json:"principal_diagnosis,omitempty"`
	RelatedDiagnosis1   string          `json:"related_diagnosis1,omitempty"`
	RelatedDiagnosis2   string          `json:"related_diagnosis2,omitempty"`
	RelatedDiagnosis3   string          `json:"related_diagnosis3,omitempty"`
	DiagnosisType       string          `json:"diagnosis_type,omitempty"`
	ConsultationValue   decimal.Decimal `json:"consultation_value"`
	CopaymentValue      decimal.Decimal `json:"copayment_value"`
	NetValue            decimal.Decimal `json:"net_value"`
}

// MedicationRecord is one AM row per annex medication entry.
type MedicationRecord struct {
	ProviderCode        string          `json:"provider_code"`
	InvoiceNumber       string          `json:"invoice_number"`
	DocumentType        string          `json:"document_type"`
	DocumentNumber      string          `json:"document_number"`
	AuthorizationNumber string          `json:"authorization_number,omitempty"`
	MedicationCode      string          `json:"medication_code"`
	MedicationName      string          `json:"medication_name,omitempty"`
	MedicationType      string          `json:"medication_type,omitempty"`
	PharmaceuticalForm  string          `json:"pharmaceutical_form,omitempty"`
	Concentration       string          `json:"concentration,omitempty"`
	UnitMeasure         string          `json:"unit_measure,omitempty"`
	TreatmentDays       *int            `json:"treatment_days,omitempty"`
	Quantity            decimal.Decimal `json:"quantity"`
	UnitValue           decimal.Decimal `json:"unit_value"`
	TotalValue          decimal.Decimal `json:"total_value"`
	MIPRESID            string          `json:"mipres_id,omitempty"`
	PrincipalDiagnosis  string          `json:"principal_diagnosis,omitempty"`
	RelatedDiagnosis    string          `json:"related_diagnosis,omitempty"`
	AdministrationDate  *time.Time      `json:"administration_date,omitempty"`
}

// OtherServiceRecord is one AT row per annex other-service entry.
type OtherServiceRecord struct {
	ProviderCode        string          `json:"provider_code"`
	InvoiceNumber       string          `json:"invoice_number"`
	DocumentType        string          `json:"document_type"`
	DocumentNumber      string          `json:"document_number"`
	AuthorizationNumber string          `json:"authorization_number,omitempty"`
	ServiceCode         string          `json:"service_code"`
	ServiceName         string          `json:"service_name,omitempty"`
	ServiceType         string          `json:"service_type,omitempty"`
	ServiceDate         *time.Time      `json:"service_date,omitempty"`
	Quantity            decimal.Decimal `json:"quantity"`
	UnitValue           decimal.Decimal `json:"unit_value"`
	TotalValue          decimal.Decimal `json:"total_value"`
	MIPRESID            string          `json:"mipres_id,omitempty"`
	PrincipalDiagnosis  string          `json:"principal_diagnosis,omitempty"`
	RelatedDiagnosis    string          `json:"related_diagnosis,omitempty"`
}

// RecordSet bundles the six record types produced for one invoice, plus the
// ordered validation messages.
type RecordSet struct {
	Invoice       InvoiceRecord        `json:"invoice"`
	User          *UserRecord          `json:"user,omitempty"`
	Procedures    []ProcedureRecord    `json:"procedures"`
	Consultations []ConsultationRecord `json:"consultations"`
	Medications   []MedicationRecord   `json:"medications"`
	OtherServices []OtherServiceRecord `json:"other_services"`
	Messages      []ValidationMessage  `json:"validation_messages"`
}
