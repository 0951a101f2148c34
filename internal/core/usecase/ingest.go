package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/factusalud/rips-engine/internal/core/domain"
	"github.com/factusalud/rips-engine/internal/core/ports"
)

type IngestRunUseCase struct {
	repo    ports.RunRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestRunUseCase(
	repo ports.RunRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestRunUseCase {
	return &IngestRunUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

// Ingest stores the uploaded document triple, records the run and schedules
// it for processing. The annex is optional.
func (uc *IngestRunUseCase) Ingest(ctx context.Context, docs ports.RunDocuments) (*domain.Run, error) {
	if docs.Invoice == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest run", errors.New("missing invoice document"))
	}
	if docs.History == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest run", errors.New("missing clinical history document"))
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	run := &domain.Run{
		ID:         id,
		InvoiceKey: id + "/invoice.pdf",
		HistoryKey: id + "/history.pdf",
		Status:     domain.StatusReceived,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := uc.storage.Save(ctx, run.InvoiceKey, docs.Invoice); err != nil {
		return nil, fmt.Errorf("save invoice to object storage: %w", err)
	}
	if err := uc.storage.Save(ctx, run.HistoryKey, docs.History); err != nil {
		return nil, fmt.Errorf("save history to object storage: %w", err)
	}
	if docs.Annex != nil {
		run.AnnexKey = id + "/annex.json"
		if err := uc.storage.Save(ctx, run.AnnexKey, docs.Annex); err != nil {
			return nil, fmt.Errorf("save annex to object storage: %w", err)
		}
	}

	if err := uc.repo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run record: %w", err)
	}

	if err := uc.queue.PublishRunCreated(ctx, run.ID); err != nil {
		return nil, fmt.Errorf("publish run created event: %w", err)
	}

	return run, nil
}

// GetByID exposes run state to the API layer.
func (uc *IngestRunUseCase) GetByID(ctx context.Context, id string) (*domain.Run, error) {
	run, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch run by id: %w", err)
	}
	return run, nil
}
