package ports

import (
	"context"
	"io"

	"github.com/factusalud/rips-engine/internal/core/domain"
)

// RunRepository persists and reads run state.
type RunRepository interface {
	Create(ctx context.Context, run *domain.Run) error
	GetByID(ctx context.Context, id string) (*domain.Run, error)
	UpdateStatus(ctx context.Context, id string, status domain.RunStatus, errMessage string) error
	SaveResult(ctx context.Context, id string, result *domain.Result) error
}

// ObjectStorage stores the uploaded source documents between ingestion and
// processing.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue hands run ids from the API to the worker.
type MessageQueue interface {
	PublishRunCreated(ctx context.Context, runID string) error
	SubscribeRunCreated(ctx context.Context, handler func(context.Context, string) error) error
}

// StructuredText is the text plus the best-effort table grid recovered from a
// PDF page set.
type StructuredText struct {
	Text   string
	Tables [][][]string
}

// DocumentTextSource turns a stored PDF stream into extraction input.
type DocumentTextSource interface {
	ExtractStructuredText(ctx context.Context, data io.Reader) (*StructuredText, error)
}

// ClinicalAnnotator tags diagnoses and procedures in clinical narrative. A
// failing annotator is not fatal to a run.
type ClinicalAnnotator interface {
	Annotate(ctx context.Context, text string) (*domain.ClinicalExtraction, error)
}

// ResultExporter writes the flat files and the control report for a completed
// run.
type ResultExporter interface {
	Export(ctx context.Context, run *domain.Run, result *domain.Result) error
}
