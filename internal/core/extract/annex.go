package extract

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/factusalud/rips-engine/internal/core/domain"
)

// annexDate layouts, tried in order after normalizing slashes to dashes.
var annexDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000Z",
}

// flexString tolerates fields the FEV generator emits either as string or
// number (unit measures, concentrations).
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*f = flexString(asString)
		return nil
	}
	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err == nil {
		*f = flexString(asNumber.String())
		return nil
	}
	*f = ""
	return nil
}

// flexDecimal tolerates numeric fields emitted either as JSON number or as a
// string with thousands separators; anything unparseable is zero. The annex
// is machine-generated and high-trust, but not 100% reliable.
type flexDecimal struct {
	value decimal.Decimal
}

func (f *flexDecimal) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		f.value = decimal.Zero
		return nil
	}
	raw = strings.Trim(raw, `"`)
	raw = strings.ReplaceAll(raw, ",", "")
	parsed, err := decimal.NewFromString(raw)
	if err != nil {
		f.value = decimal.Zero
		return nil
	}
	f.value = parsed
	return nil
}

type annexUser struct {
	DocumentType     string        `json:"tipoDocumentoIdentificacion"`
	DocumentNumber   string        `json:"numDocumentoIdentificacion"`
	FullName         string        `json:"nombreUsuario"`
	Gender           string        `json:"codSexo"`
	BirthDate        string        `json:"fechaNacimiento"`
	MunicipalityCode string        `json:"codMunicipioResidencia"`
	ResidenceZone    string        `json:"codZonaTerritorialResidencia"`
	Services         annexServices `json:"servicios"`
}

type annexServices struct {
	Medications   []annexMedication   `json:"medicamentos"`
	OtherServices []annexOtherService `json:"otrosServicios"`
}

type annexMedication struct {
	ProviderCode        string      `json:"codPrestador"`
	DocumentType        string      `json:"tipoDocumentoIdentificacion"`
	DocumentNumber      string      `json:"numDocumentoIdentificacion"`
	AuthorizationNumber string      `json:"numAutorizacion"`
	MedicationCode      string      `json:"codTecnologiaSalud"`
	MedicationName      string      `json:"nomTecnologiaSalud"`
	MedicationType      string      `json:"tipoMedicamento"`
	UnitValue           flexDecimal `json:"vrUnitMedicamento"`
	TotalValue          flexDecimal `json:"vrServicio"`
	Quantity            flexDecimal `json:"cantidadMedicamento"`
	UnitMeasure         flexString  `json:"unidadMinDispensa"`
	TreatmentDays       *int        `json:"diasTratamiento"`
	DiagnosisCode       string      `json:"codDiagnosticoPrincipal"`
	RelatedDiagnosis    string      `json:"codDiagnosticoRelacionado"`
	MIPRESID            string      `json:"idMIPRES"`
	AdministrationDate  string      `json:"fechaDispensAdmon"`
	PharmaceuticalForm  string      `json:"formaFarmaceutica"`
	Concentration       flexString  `json:"concentracionMedicamento"`
}

type annexOtherService struct {
	ProviderCode        string      `json:"codPrestador"`
	DocumentType        string      `json:"tipoDocumentoIdentificacion"`
	DocumentNumber      string      `json:"numDocumentoIdentificacion"`
	AuthorizationNumber string      `json:"numAutorizacion"`
	ServiceCode         string      `json:"codTecnologiaSalud"`
	ServiceName         string      `json:"nomTecnologiaSalud"`
	ServiceType         string      `json:"tipoOS"`
	ServiceDate         string      `json:"fechaSuministroTecnologia"`
	UnitValue           flexDecimal `json:"vrUnitOS"`
	TotalValue          flexDecimal `json:"vrServicio"`
	Quantity            flexDecimal `json:"cantidadOS"`
	DiagnosisCode       string      `json:"codDiagnosticoPrincipal"`
	RelatedDiagnosis    string      `json:"codDiagnosticoRelacionado"`
	MIPRESID            string      `json:"idMIPRES"`
}

type annexDocument struct {
	Users []annexUser `json:"usuarios"`
}

// AnnexExtractor parses the FEV RIPS JSON annex. A malformed document is the
// one fatal condition; unparseable dates and values degrade to absent/zero.
type AnnexExtractor struct{}

func NewAnnexExtractor() *AnnexExtractor {
	return &AnnexExtractor{}
}

// Extract decodes the annex. Only the first user entry is consumed: the
// provider's invoices map to exactly one patient even though the format
// allows several.
func (e *AnnexExtractor) Extract(content []byte) (*domain.Annex, error) {
	var doc annexDocument
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, domain.WrapError(domain.ErrExtraction, "parse annex json", err)
	}
	if len(doc.Users) == 0 {
		return &domain.Annex{}, nil
	}

	user := doc.Users[0]
	annex := &domain.Annex{
		Patient: domain.AnnexPatient{
			DocumentType:     user.DocumentType,
			DocumentNumber:   user.DocumentNumber,
			FullName:         user.FullName,
			Gender:           user.Gender,
			BirthDate:        parseAnnexDate(user.BirthDate),
			MunicipalityCode: user.MunicipalityCode,
			ResidenceZone:    user.ResidenceZone,
		},
	}
	for _, med := range user.Services.Medications {
		annex.Medications = append(annex.Medications, domain.MedicationEntry{
			ProviderCode:        med.ProviderCode,
			DocumentType:        med.DocumentType,
			DocumentNumber:      med.DocumentNumber,
			AuthorizationNumber: med.AuthorizationNumber,
			MedicationCode:      med.MedicationCode,
			MedicationName:      med.MedicationName,
			MedicationType:      med.MedicationType,
			UnitValue:           med.UnitValue.value,
			TotalValue:          med.TotalValue.value,
			Quantity:            med.Quantity.value,
			UnitMeasure:         string(med.UnitMeasure),
			TreatmentDays:       med.TreatmentDays,
			DiagnosisCode:       med.DiagnosisCode,
			RelatedDiagnosis:    med.RelatedDiagnosis,
			MIPRESID:            med.MIPRESID,
			AdministrationDate:  parseAnnexDate(med.AdministrationDate),
			PharmaceuticalForm:  med.PharmaceuticalForm,
			Concentration:       string(med.Concentration),
		})
	}
	for _, svc := range user.Services.OtherServices {
		annex.OtherServices = append(annex.OtherServices, domain.OtherServiceEntry{
			ProviderCode:        svc.ProviderCode,
			DocumentType:        svc.DocumentType,
			DocumentNumber:      svc.DocumentNumber,
			AuthorizationNumber: svc.AuthorizationNumber,
			ServiceCode:         svc.ServiceCode,
			ServiceName:         svc.ServiceName,
			ServiceType:         svc.ServiceType,
			ServiceDate:         parseAnnexDate(svc.ServiceDate),
			UnitValue:           svc.UnitValue.value,
			TotalValue:          svc.TotalValue.value,
			Quantity:            svc.Quantity.value,
			DiagnosisCode:       svc.DiagnosisCode,
			RelatedDiagnosis:    svc.RelatedDiagnosis,
			MIPRESID:            svc.MIPRESID,
		})
	}
	return annex, nil
}

// parseAnnexDate walks the cascading layout list; any unparseable date is
// absent, never an error.
func parseAnnexDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	value = strings.ReplaceAll(value, "/", "-")
	for _, layout := range annexDateLayouts {
		candidate := value
		if len(candidate) > len(layout) {
			candidate = candidate[:len(layout)]
		}
		parsed, err := time.Parse(layout, candidate)
		if err == nil {
			return &parsed
		}
	}
	return nil
}
