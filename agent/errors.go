package agent

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cloudwego/eino/schema"

	"github.com/Twynzen/dymensisCDA-sub002/session"
)

var (
	ErrNoActiveFlow      = errors.New("no creation flow is active")
	ErrUnsupportedTarget = errors.New("unsupported target")
	ErrBusy              = errors.New("session is busy")
	ErrNoDraft           = errors.New("no draft to act on")
	ErrConfirmBlocked    = errors.New("confirmation blocked by validation errors")
	ErrPersistence       = errors.New("persistence failed")
	ErrGeneration        = errors.New("text generation failed")
	ErrStreaming         = errors.New("streaming failed")
	ErrNoPendingImage    = errors.New("no pending image")
	ErrInvalidImageSlot  = errors.New("image slot not valid for this flow")
	ErrInvalidImage      = errors.New("invalid image")
	ErrUniverseNotFound  = errors.New("universe not found")
)

// fail turns err into a visible assistant message and clears the busy and
// streaming flags. Messages already in the log are kept.
func (svc *Service) fail(ctx context.Context, s *session.Store, err error, message string) error {
	slog.WarnContext(ctx, "operation failed", "tracking_id", s.TrackingID(), "error", err)
	s.CancelStreaming()
	s.SetBusy(false)
	if message != "" {
		s.AddMessage(schema.Assistant, message)
	}
	svc.refresh(s)
	return err
}
