package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/callbacks"
	"github.com/oklog/ulid/v2"

	"github.com/Twynzen/dymensisCDA-sub002/action"
	"github.com/Twynzen/dymensisCDA-sub002/dialogue"
	"github.com/Twynzen/dymensisCDA-sub002/extract"
	"github.com/Twynzen/dymensisCDA-sub002/intent"
	"github.com/Twynzen/dymensisCDA-sub002/persist"
	"github.com/Twynzen/dymensisCDA-sub002/phase"
	"github.com/Twynzen/dymensisCDA-sub002/session"
)

// DefaultConfirmThreshold is the completeness at which a flow builds its draft
// without asking for more input.
const DefaultConfirmThreshold = phase.DefaultConfirmThreshold

// Service drives creation flows. It keeps no per-session state: every
// operation acts on the store it is given.
type Service struct {
	extractor     *extract.Engine
	phases        *phase.Engine
	generator     dialogue.Generator
	recognizer    intent.Recognizer
	repo          persist.Repository
	checkpoints   *session.CheckpointStore
	newTrackingID func() string
}

type Option func(*Service)

func WithGenerator(g dialogue.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.generator = g
		}
	}
}

func WithRecognizer(r intent.Recognizer) Option {
	return func(s *Service) {
		if r != nil {
			s.recognizer = r
		}
	}
}

func WithRepository(r persist.Repository) Option {
	return func(s *Service) {
		if r != nil {
			s.repo = r
		}
	}
}

// WithCheckpoints saves the session after every operation.
func WithCheckpoints(c *session.CheckpointStore) Option {
	return func(s *Service) {
		s.checkpoints = c
	}
}

func WithTrackingIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newTrackingID = fn
		}
	}
}

func NewService(extractor *extract.Engine, phases *phase.Engine, opts ...Option) *Service {
	svc := &Service{
		extractor:     extractor,
		phases:        phases,
		generator:     dialogue.NewLocalGenerator(),
		recognizer:    intent.NewLocalRecognizer(),
		repo:          persist.NewMemoryRepository(),
		newTrackingID: func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// NewDefaultService builds a service over the embedded rule and phase tables.
func NewDefaultService(opts ...Option) (*Service, error) {
	extractor, err := extract.NewDefaultEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to load extraction rules: %w", err)
	}
	table, err := phase.DefaultTable()
	if err != nil {
		return nil, fmt.Errorf("failed to load phase table: %w", err)
	}
	return NewService(extractor, phase.NewEngine(table, extractor), opts...), nil
}

func (svc *Service) Repository() persist.Repository {
	return svc.repo
}

// run wraps one operation in callbacks and checkpoints the session afterwards.
func (svc *Service) run(ctx context.Context, s *session.Store, op string, fn func(ctx context.Context) error) error {
	ctx = callbacks.EnsureRunInfo(ctx, op, "Agent")
	ctx = callbacks.OnStart(ctx, map[string]any{
		"operation":   op,
		"tracking_id": s.TrackingID(),
		"mode":        string(s.Mode()),
		"phase":       string(s.Phase()),
	})
	slog.DebugContext(ctx, "operation started", "operation", op, "tracking_id", s.TrackingID())

	err := fn(ctx)
	if err != nil {
		callbacks.OnError(ctx, err)
	} else {
		callbacks.OnEnd(ctx, map[string]any{
			"operation": op,
			"phase":     string(s.Phase()),
			"progress":  s.Progress(),
		})
	}
	svc.checkpoint(ctx, s)
	return err
}

func (svc *Service) checkpoint(ctx context.Context, s *session.Store) {
	if svc.checkpoints == nil || s.TrackingID() == "" {
		return
	}
	if err := svc.checkpoints.Save(ctx, s); err != nil {
		slog.WarnContext(ctx, "failed to save checkpoint", "tracking_id", s.TrackingID(), "error", err)
	}
}

// Resume restores the session checkpointed under trackingID.
func (svc *Service) Resume(ctx context.Context, trackingID string, opts ...session.Option) (*session.Store, error) {
	if svc.checkpoints == nil {
		return nil, fmt.Errorf("resume %s: checkpoints are not configured", trackingID)
	}
	s := session.New(opts...)
	if err := svc.checkpoints.Load(ctx, trackingID, s); err != nil {
		return nil, err
	}
	svc.refresh(s)
	return s, nil
}

// refresh recomputes everything derived from the collected fields.
func (svc *Service) refresh(s *session.Store) {
	target := s.Mode().Target()
	filled := s.Filled()
	st := svc.phases.Calculate(target, filled, s.PhaseIndex())
	s.SetPhaseState(st)
	s.SetProgress(st.Completeness)
	s.SetSuggestions(svc.phases.SmartSuggestions(target, st.CurrentPhaseID, filled, s.LastUserMessage(), s.Locale()))

	actx := action.BuildContext(s, st, s.Draft() != nil, s.Locale())
	s.SetVisibleActions(action.Visible(action.Catalog(s.Locale()), actx))
}
