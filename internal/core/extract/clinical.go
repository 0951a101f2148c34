package extract

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/factusalud/rips-engine/internal/core/domain"
)

var (
	cieCodeRe  = regexp.MustCompile(`\b([A-TV-Z][0-9]{2}(?:\.[0-9A-Z])?)\b`)
	cupsCodeRe = regexp.MustCompile(`\b([0-9]{4,7}(?:-[0-9])?)\b`)
)

var procedureKeywords = []string{
	"procedimiento",
	"sutura",
	"curación",
	"infiltración",
	"aplicación",
	"vacunación",
	"consulta",
	"terapia",
}

// Annotator is an optional remote clinical-NER service.
type Annotator interface {
	Annotate(ctx context.Context, text string) (*domain.ClinicalExtraction, error)
}

// ClinicalEntityExtractor recognizes diagnosis and procedure mentions for
// cross-checking. When the remote annotator is unavailable or errors it falls
// back silently to CIE-10/CUPS heuristics: this output is advisory and never
// the record of truth.
type ClinicalEntityExtractor struct {
	annotator Annotator
	logger    *slog.Logger
}

func NewClinicalEntityExtractor(annotator Annotator, logger *slog.Logger) *ClinicalEntityExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClinicalEntityExtractor{annotator: annotator, logger: logger}
}

func (e *ClinicalEntityExtractor) Extract(ctx context.Context, text string) *domain.ClinicalExtraction {
	if e.annotator != nil {
		result, err := e.annotator.Annotate(ctx, text)
		if err == nil && result != nil {
			return result
		}
		if err != nil {
			e.logger.Warn("clinical annotator unavailable, using heuristics", "error", err)
		}
	}
	return e.extractWithHeuristics(text)
}

func (e *ClinicalEntityExtractor) extractWithHeuristics(text string) *domain.ClinicalExtraction {
	result := &domain.ClinicalExtraction{}

	seenCodes := make(map[string]bool)
	for _, m := range cieCodeRe.FindAllStringSubmatch(text, -1) {
		code := m[1]
		if seenCodes[code] {
			continue
		}
		seenCodes[code] = true
		result.Diagnoses = append(result.Diagnoses, domain.ClinicalEntity{
			Label: "DIAG_HEURISTIC",
			Text:  code,
			Code:  code,
		})
	}

	for _, loc := range cupsCodeRe.FindAllStringSubmatchIndex(text, -1) {
		code := text[loc[2]:loc[3]]
		start := loc[0] - 80
		if start < 0 {
			start = 0
		}
		end := loc[1] + 80
		if end > len(text) {
			end = len(text)
		}
		window := text[start:end]
		if !looksLikeProcedure(window) {
			continue
		}
		result.Procedures = append(result.Procedures, domain.ClinicalEntity{
			Label: "PROC_HEURISTIC",
			Text:  strings.TrimSpace(window),
			Code:  code,
		})
	}
	return result
}

func looksLikeProcedure(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range procedureKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// MatchCIECode returns the first CIE-10 code mentioned in text, or "".
func MatchCIECode(text string) string {
	if m := cieCodeRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// MatchCUPSCode returns the first CUPS code mentioned in text, or "".
func MatchCUPSCode(text string) string {
	if m := cupsCodeRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// LooksLikeProcedure reports whether text mentions a procedure keyword.
func LooksLikeProcedure(text string) bool {
	return looksLikeProcedure(text)
}
