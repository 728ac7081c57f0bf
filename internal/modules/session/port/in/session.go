package in

import (
	"context"

	"cadence/internal/modules/session/dto"
)

type Usecase interface {
	Initialize(ctx context.Context) error
	Start(ctx context.Context) (dto.SessionOutput, error)
	End(ctx context.Context, input dto.EndInput) (dto.SessionOutput, error)
	AddNote(ctx context.Context, input dto.NoteInput) (dto.SessionOutput, error)
	GetActive(ctx context.Context) (dto.SessionOutput, error)
	List(ctx context.Context) ([]dto.SessionOutput, error)
	Get(ctx context.Context, id string) (dto.SessionOutput, error)
	Stats(ctx context.Context) (dto.StatsOutput, error)
	Reindex(ctx context.Context) error
	Export(ctx context.Context, input dto.ExportInput) (dto.ExportOutput, error)
}
