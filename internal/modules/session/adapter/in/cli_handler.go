package in

import (
	"context"

	sessiondto "cadence/internal/modules/session/dto"
	sessionin "cadence/internal/modules/session/port/in"
)

type CLIHandler struct {
	usecase sessionin.Usecase
}

func NewCLIHandler(usecase sessionin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Start(ctx context.Context) (sessiondto.SessionOutput, error) {
	return h.usecase.Start(ctx)
}

func (h CLIHandler) End(ctx context.Context, sessionID string, clicks int, elapsedMs int64) (sessiondto.SessionOutput, error) {
	return h.usecase.End(ctx, sessiondto.EndInput{SessionID: sessionID, Clicks: clicks, ElapsedMs: elapsedMs})
}

func (h CLIHandler) EndWithMetrics(ctx context.Context, input sessiondto.EndInput) (sessiondto.SessionOutput, error) {
	return h.usecase.End(ctx, input)
}

func (h CLIHandler) Note(ctx context.Context, timestampMs int64, text string) (sessiondto.SessionOutput, error) {
	return h.usecase.AddNote(ctx, sessiondto.NoteInput{TimestampMs: timestampMs, Text: text})
}

func (h CLIHandler) GetActive(ctx context.Context) (sessiondto.SessionOutput, error) {
	return h.usecase.GetActive(ctx)
}

func (h CLIHandler) List(ctx context.Context) ([]sessiondto.SessionOutput, error) {
	return h.usecase.List(ctx)
}

func (h CLIHandler) Show(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error) {
	return h.usecase.Get(ctx, sessionID)
}

func (h CLIHandler) Stats(ctx context.Context) (sessiondto.StatsOutput, error) {
	return h.usecase.Stats(ctx)
}

func (h CLIHandler) Reindex(ctx context.Context) error {
	return h.usecase.Reindex(ctx)
}

func (h CLIHandler) Export(ctx context.Context, dir, sessionID string) (sessiondto.ExportOutput, error) {
	return h.usecase.Export(ctx, sessiondto.ExportInput{Dir: dir, SessionID: sessionID})
}
