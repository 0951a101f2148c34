package ports

import (
	"context"
	"io"

	"github.com/factusalud/rips-engine/internal/core/domain"
)

// RunDocuments carries the three source document streams for one run. Annex
// may be nil; the other two are mandatory.
type RunDocuments struct {
	Invoice io.Reader
	History io.Reader
	Annex   io.Reader
}

// RunIngestor is the inbound contract for accepting a document triple and
// scheduling its processing.
type RunIngestor interface {
	Ingest(ctx context.Context, docs RunDocuments) (*domain.Run, error)
}

// RunReader is the inbound read model for run state and results.
type RunReader interface {
	GetByID(ctx context.Context, id string) (*domain.Run, error)
}

// RunProcessor is the inbound contract for asynchronous run processing.
type RunProcessor interface {
	ProcessByID(ctx context.Context, runID string) error
}

// Generator is the inbound contract for synchronous, storage-free generation:
// documents in, RIPS result out.
type Generator interface {
	Generate(ctx context.Context, docs RunDocuments) (*domain.Result, error)
}
