package export

import (
	"context"
	"fmt"

	"github.com/factusalud/rips-engine/internal/core/domain"
	"github.com/factusalud/rips-engine/internal/core/ports"
)

// Multi fans one export out to several writers. The first failure stops the
// chain.
type Multi struct {
	exporters []ports.ResultExporter
}

func NewMulti(exporters ...ports.ResultExporter) *Multi {
	return &Multi{exporters: exporters}
}

func (m *Multi) Export(ctx context.Context, run *domain.Run, result *domain.Result) error {
	for _, e := range m.exporters {
		if err := e.Export(ctx, run, result); err != nil {
			return fmt.Errorf("export run %s: %w", run.ID, err)
		}
	}
	return nil
}
