package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/factusalud/rips-engine/internal/core/domain"
	"github.com/factusalud/rips-engine/internal/core/ports"
)

type ProcessRunUseCase struct {
	repo     ports.RunRepository
	storage  ports.ObjectStorage
	pipeline *GenerationPipeline
	exporter ports.ResultExporter
}

func NewProcessRunUseCase(
	repo ports.RunRepository,
	storage ports.ObjectStorage,
	pipeline *GenerationPipeline,
	exporter ports.ResultExporter,
) *ProcessRunUseCase {
	return &ProcessRunUseCase{
		repo:     repo,
		storage:  storage,
		pipeline: pipeline,
		exporter: exporter,
	}
}

// ProcessByID drives one run through the pipeline. Status moves to processing
// up front and ends at completed or failed; a failure to record the failed
// status itself is surfaced alongside the original error.
func (uc *ProcessRunUseCase) ProcessByID(ctx context.Context, runID string) error {
	if err := uc.markStatus(ctx, runID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	run, result, err := uc.processPipeline(ctx, runID)
	if err != nil {
		if failErr := uc.markFailed(ctx, runID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.persistResult(ctx, run, result); err != nil {
		if failErr := uc.markFailed(ctx, runID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, runID, domain.StatusCompleted, ""); err != nil {
		return fmt.Errorf("set status=completed: %w", err)
	}
	return nil
}

func (uc *ProcessRunUseCase) processPipeline(ctx context.Context, runID string) (*domain.Run, *domain.Result, error) {
	run, err := uc.repo.GetByID(ctx, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch run by id: %w", err)
	}

	docs, closeDocs, err := uc.openDocuments(ctx, run)
	if err != nil {
		return nil, nil, err
	}
	defer closeDocs()

	result, err := uc.pipeline.Run(ctx, docs)
	if err != nil {
		return nil, nil, err
	}
	return run, result, nil
}

func (uc *ProcessRunUseCase) openDocuments(ctx context.Context, run *domain.Run) (ports.RunDocuments, func(), error) {
	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	invoice, err := uc.storage.Open(ctx, run.InvoiceKey)
	if err != nil {
		return ports.RunDocuments{}, nil, fmt.Errorf("open invoice document: %w", err)
	}
	closers = append(closers, invoice)

	history, err := uc.storage.Open(ctx, run.HistoryKey)
	if err != nil {
		closeAll()
		return ports.RunDocuments{}, nil, fmt.Errorf("open history document: %w", err)
	}
	closers = append(closers, history)

	docs := ports.RunDocuments{Invoice: invoice, History: history}
	if run.AnnexKey != "" {
		annex, err := uc.storage.Open(ctx, run.AnnexKey)
		if err != nil {
			closeAll()
			return ports.RunDocuments{}, nil, fmt.Errorf("open annex document: %w", err)
		}
		closers = append(closers, annex)
		docs.Annex = annex
	}
	return docs, closeAll, nil
}

func (uc *ProcessRunUseCase) persistResult(ctx context.Context, run *domain.Run, result *domain.Result) error {
	if err := uc.repo.SaveResult(ctx, run.ID, result); err != nil {
		return fmt.Errorf("save run result: %w", err)
	}
	if uc.exporter != nil {
		if err := uc.exporter.Export(ctx, run, result); err != nil {
			return fmt.Errorf("export run result: %w", err)
		}
	}
	return nil
}

func (uc *ProcessRunUseCase) markStatus(ctx context.Context, runID string, status domain.RunStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, runID, status, errMessage)
}

func (uc *ProcessRunUseCase) markFailed(ctx context.Context, runID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, runID, domain.StatusFailed, processErr.Error())
}
