package domain

import "time"

// Consultation is a single consultation entry recovered from the clinical
// history narrative.
type Consultation struct {
	Code                string     `json:"code"`
	Description         string     `json:"description,omitempty"`
	Datetime            *time.Time `json:"datetime,omitempty"`
	PurposeText         string     `json:"purpose_text,omitempty"`
	AuthorizationNumber string     `json:"authorization_number,omitempty"`
	DiagnosisType       string     `json:"diagnosis_type,omitempty"`
}

// Patient holds the identity and episode data extracted from the clinical
// history. All fields are optional; absence means the pattern did not match,
// not that the document is invalid.
type Patient struct {
	DocumentType            string         `json:"document_type,omitempty"`
	DocumentNumber          string         `json:"document_number,omitempty"`
	FullName                string         `json:"full_name,omitempty"`
	AdmissionDocumentType   string         `json:"admission_document_type,omitempty"`
	AdmissionDocumentNumber string         `json:"admission_document_number,omitempty"`
	AdmissionID             string         `json:"admission_id,omitempty"`
	AdmissionDatetime       *time.Time     `json:"admission_datetime,omitempty"`
	DischargeDatetime       *time.Time     `json:"discharge_datetime,omitempty"`
	ServiceType             string         `json:"service_type,omitempty"`
	EntryService            string         `json:"entry_service,omitempty"`
	PrincipalDiagnosis      string         `json:"principal_diagnosis,omitempty"`
	PrincipalDiagnosisCode  string         `json:"principal_diagnosis_code,omitempty"`
	ServicePurpose          string         `json:"service_purpose,omitempty"`
	TriageLevel             string         `json:"triage_level,omitempty"`
	Consultations           []Consultation `json:"consultations"`
}
