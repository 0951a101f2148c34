package usecase

import (
	"context"

	"github.com/factusalud/rips-engine/internal/core/domain"
	"github.com/factusalud/rips-engine/internal/core/ports"
)

// GenerateUseCase is the synchronous path: documents in, result out, nothing
// persisted. It exists for callers that run their own storage.
type GenerateUseCase struct {
	pipeline *GenerationPipeline
}

func NewGenerateUseCase(pipeline *GenerationPipeline) *GenerateUseCase {
	return &GenerateUseCase{pipeline: pipeline}
}

func (uc *GenerateUseCase) Generate(ctx context.Context, docs ports.RunDocuments) (*domain.Result, error) {
	return uc.pipeline.Run(ctx, docs)
}
