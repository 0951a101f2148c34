package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/factusalud/rips-engine/internal/core/domain"
)

// Enumerated national document-type codes accepted by the identity patterns.
var documentTypes = []string{"CC", "TI", "RC", "CE", "PA", "NUIP", "MS"}

var (
	identityLabeledRe = regexp.MustCompile(`Identificación:\s*([A-Z]{1,4})\s*-?\s*([0-9A-Za-z-]+)`)
	identityTopRe     = regexp.MustCompile(`\b(CC|TI|RC|CE|PA|NUIP|MS)\s*-?\s*([0-9A-Za-z-]{4,})\s*-\s*[A-Z]`)
	identityGenericRe = regexp.MustCompile(`\b(CC|TI|RC|CE|PA|NUIP|MS)\s*-?\s*([0-9A-Za-z-]{4,})\b`)
	fullNameRe        = regexp.MustCompile(`Nombre:\s*([A-ZÁÉÍÓÚÑ0-9 .,'?-]+)`)

	admissionIDRe     = regexp.MustCompile(`(?i)Atención:\s*([0-9A-Za-z-]+)`)
	admissionDateRe   = regexp.MustCompile(`(?i)Fecha y Hora de Ingreso:\s*([0-9/: -]+)`)
	dischargeDateRe   = regexp.MustCompile(`(?i)Cierre Historia\s*Fecha y Hora:\s*([0-9/: -]+)`)
	serviceTypeRe     = regexp.MustCompile(`(?i)Servicio de ingreso:\s*([A-Za-zÁÉÍÓÚÑ/ ]+)`)
	servicePurposeRe  = regexp.MustCompile(`(?i)Finalidad:\s*([A-Za-zÁÉÍÓÚÑ ]+)`)
	triageRe          = regexp.MustCompile(`(?i)Triage\s*(I{1,3}|IV|V)`)
	diagnosisCodeRe   = regexp.MustCompile(`DXP:\s*([A-Z0-9]{3,6})`)
	diagnosisListRe   = regexp.MustCompile(`(?i)DX DIAGNOSTICOS:\s*([A-ZÁÉÍÓÚÑ0-9 ,./-]+)`)
	diagnosisLabelRe  = regexp.MustCompile(`(?i)Diagn[oó]stico(?: Principal)?:\s*([A-ZÁÉÍÓÚÑ0-9 ,./-]+)`)
	sectionDateRe     = regexp.MustCompile(`(?i)Fecha y Hora:\s*([0-9/: -]+)`)
	authorizationRe   = regexp.MustCompile(`(?i)Autorizaci[oó]n:\s*([A-Za-z0-9-]+)`)
	consultationRe    = regexp.MustCompile(`Tipo de Consulta:\s*\(([0-9A-Za-z]+)\)\s*([^\n]+)`)
	codedServiceRe    = regexp.MustCompile(`(?s)Cod:\s*([A-Z0-9]+)\s+Nomb:\s*(.+?)(?:\s+Cant:|\s+DXP:|\s+DXR:|\s+Descripción:)`)
	bulletSectionRe   = regexp.MustCompile(`•\s*`)
)

// HistoryExtractor turns clinical-history text into a Patient entity. Every
// pattern is best-effort; nothing here is fatal.
type HistoryExtractor struct{}

func NewHistoryExtractor() *HistoryExtractor {
	return &HistoryExtractor{}
}

func (e *HistoryExtractor) Extract(text string) *domain.Patient {
	lines := nonBlankLines(text)
	normalized := strings.Join(lines, "\n")

	docType, docNumber := extractDocumentIdentity(normalized)
	diagnosisCode, diagnosisText := extractDiagnosis(normalized)

	patient := &domain.Patient{
		DocumentType:           docType,
		DocumentNumber:         docNumber,
		FullName:               extractFullName(lines, normalized),
		AdmissionID:            firstMatch(normalized, admissionIDRe),
		AdmissionDatetime:      extractDatetime(normalized, admissionDateRe),
		DischargeDatetime:      extractDatetime(normalized, dischargeDateRe),
		ServiceType:            firstMatch(normalized, serviceTypeRe),
		PrincipalDiagnosis:     diagnosisText,
		PrincipalDiagnosisCode: diagnosisCode,
		ServicePurpose:         firstMatch(normalized, servicePurposeRe),
		TriageLevel:            firstMatch(normalized, triageRe),
		Consultations:          extractConsultations(normalized),
	}
	patient.EntryService = extractEntryService(lines, patient.ServiceType)
	return patient
}

// extractDocumentIdentity tries three pattern variants in priority order: the
// "Identificación:" label, the compact top-of-page form (code, number, then a
// name fragment), and a generic fallback anywhere in the text.
func extractDocumentIdentity(text string) (string, string) {
	if m := identityLabeledRe.FindStringSubmatch(text); m != nil {
		return m[1], m[2]
	}
	if m := identityTopRe.FindStringSubmatch(text); m != nil {
		return m[1], m[2]
	}
	if m := identityGenericRe.FindStringSubmatch(text); m != nil {
		return m[1], m[2]
	}
	return "", ""
}

func extractFullName(lines []string, text string) string {
	if m := fullNameRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	for _, line := range lines {
		for _, docType := range documentTypes {
			if strings.HasPrefix(line, docType+" ") && strings.Contains(line, " - ") {
				_, rest, _ := strings.Cut(line, " - ")
				return strings.TrimSpace(rest)
			}
		}
	}
	return ""
}

// extractEntryService scans the lines after the history-closure marker for an
// all-uppercase service name, falling back to the admission service type.
func extractEntryService(lines []string, fallback string) string {
	for idx, line := range lines {
		if !strings.HasPrefix(strings.ToLower(line), "cierre historia") {
			continue
		}
		for _, candidate := range window(lines, idx+1, idx+5) {
			if candidate != "" && candidate == strings.ToUpper(candidate) && candidate != strings.ToLower(candidate) {
				return candidate
			}
		}
		break
	}
	return fallback
}

// extractDiagnosis resolves the principal diagnosis code and its free-text
// description independently; they are not required to co-occur.
func extractDiagnosis(text string) (string, string) {
	code := ""
	if m := diagnosisCodeRe.FindStringSubmatch(text); m != nil {
		code = m[1]
	}
	description := firstMatch(text, diagnosisListRe)
	if description == "" {
		description = firstMatch(text, diagnosisLabelRe)
	}
	return code, description
}

type consultationKey struct {
	code     string
	datetime string
}

// extractConsultations splits the history into bullet-delimited sections and
// recognizes both explicit consultation entries and coded service entries.
// The (code, section datetime) key suppresses duplicates when both
// sub-patterns match the same service.
func extractConsultations(text string) []domain.Consultation {
	var consultations []domain.Consultation
	seen := make(map[consultationKey]bool)

	for _, rawSection := range bulletSectionRe.Split(text, -1) {
		section := strings.TrimSpace(rawSection)
		if section == "" {
			continue
		}
		sectionDatetime := extractDatetime(section, sectionDateRe)
		purposeText := firstMatch(section, servicePurposeRe)
		authorization := firstMatch(section, authorizationRe)

		appendEntry := func(code, description string) {
			key := consultationKey{code: code}
			if sectionDatetime != nil {
				key.datetime = sectionDatetime.Format(time.RFC3339)
			}
			if seen[key] {
				return
			}
			seen[key] = true
			consultations = append(consultations, domain.Consultation{
				Code:                code,
				Description:         description,
				Datetime:            sectionDatetime,
				PurposeText:         purposeText,
				AuthorizationNumber: authorization,
			})
		}

		for _, m := range consultationRe.FindAllStringSubmatch(section, -1) {
			appendEntry(m[1], strings.TrimSpace(m[2]))
		}
		for _, m := range codedServiceRe.FindAllStringSubmatch(section, -1) {
			appendEntry(m[1], collapseSpaces(m[2]))
		}
	}
	return consultations
}

func firstMatch(text string, pattern *regexp.Regexp) string {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func extractDatetime(text string, pattern *regexp.Regexp) *time.Time {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return parseClinicalDatetime(m[1])
}
