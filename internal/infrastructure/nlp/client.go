package nlp

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/factusalud/rips-engine/internal/core/domain"
	"github.com/factusalud/rips-engine/internal/core/extract"
	"github.com/factusalud/rips-engine/internal/infrastructure/resilience"
)

// Client talks to the clinical NER annotator service. The service tags
// diagnosis and procedure spans in Spanish clinical narrative; this client
// maps its entity groups onto the advisory extraction result.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout  time.Duration
	Executor *resilience.Executor
}

func New(baseURL string) *Client {
	return NewWithOptions(baseURL, Options{})
}

func NewWithOptions(baseURL string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.Executor,
	}
}

type annotateRequest struct {
	Text string `json:"text"`
}

type annotatedEntity struct {
	EntityGroup string  `json:"entity_group"`
	Entity      string  `json:"entity"`
	Word        string  `json:"word"`
	Text        string  `json:"text"`
	Score       float64 `json:"score"`
}

type annotateResponse struct {
	Entities []annotatedEntity `json:"entities"`
}

func (c *Client) Annotate(ctx context.Context, text string) (*domain.ClinicalExtraction, error) {
	var response annotateResponse
	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/annotate", annotateRequest{Text: text}, &response, "annotate")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Do(ctx, call, classifyAnnotatorError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}
	return partitionEntities(response.Entities), nil
}

// partitionEntities sorts tagged spans into diagnoses and procedures. Spans
// the model left unlabeled are classified by content: a CIE-10 mention makes
// a diagnosis, a procedure keyword makes a procedure, anything else is
// dropped.
func partitionEntities(entities []annotatedEntity) *domain.ClinicalExtraction {
	result := &domain.ClinicalExtraction{}
	for _, ent := range entities {
		label := ent.EntityGroup
		if label == "" {
			label = ent.Entity
		}
		value := ent.Word
		if value == "" {
			value = ent.Text
		}
		if value == "" {
			continue
		}
		score := ent.Score

		upper := strings.ToUpper(label)
		switch {
		case strings.HasPrefix(upper, "DIAG"):
			result.Diagnoses = append(result.Diagnoses, entity(label, value, extract.MatchCIECode(value), score))
		case strings.HasPrefix(upper, "PRO") || strings.HasPrefix(upper, "ACT"):
			result.Procedures = append(result.Procedures, entity(label, value, extract.MatchCUPSCode(value), score))
		default:
			if code := extract.MatchCIECode(value); code != "" {
				result.Diagnoses = append(result.Diagnoses, entity(orDefault(label, "DIAG"), value, code, score))
			} else if extract.LooksLikeProcedure(value) {
				result.Procedures = append(result.Procedures, entity(orDefault(label, "PROC"), value, extract.MatchCUPSCode(value), score))
			}
		}
	}
	return result
}

func entity(label, text, code string, score float64) domain.ClinicalEntity {
	return domain.ClinicalEntity{Label: label, Text: text, Code: code, Score: &score}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
