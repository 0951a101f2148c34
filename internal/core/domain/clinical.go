package domain

// ClinicalEntity is a diagnosis or procedure mention recognized in free text.
// Advisory only: it never feeds the record builder.
type ClinicalEntity struct {
	Label string   `json:"label"`
	Text  string   `json:"text"`
	Code  string   `json:"code,omitempty"`
	Score *float64 `json:"score,omitempty"`
}

// ClinicalExtraction partitions the recognized mentions for auditing.
type ClinicalExtraction struct {
	Diagnoses  []ClinicalEntity `json:"diagnoses"`
	Procedures []ClinicalEntity `json:"procedures"`
}
