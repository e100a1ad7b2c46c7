package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/Twynzen/dymensisCDA-sub002/entity"
	"github.com/Twynzen/dymensisCDA-sub002/persist"
	"github.com/Twynzen/dymensisCDA-sub002/session"
	"github.com/Twynzen/dymensisCDA-sub002/types"
)

func activeTarget(s *session.Store) (types.TargetType, error) {
	target := s.Mode().Target()
	if target == types.TargetUnknown {
		return target, ErrNoActiveFlow
	}
	return target, nil
}

// BuildDraft synthesises the entity draft from the collected fields.
func (svc *Service) BuildDraft(ctx context.Context, s *session.Store) error {
	return svc.run(ctx, s, "BuildDraft", func(ctx context.Context) error {
		_, err := svc.buildDraft(ctx, s)
		if err == nil {
			svc.refresh(s)
		}
		return err
	})
}

func (svc *Service) build(target types.TargetType, s *session.Store) (*entity.Draft, error) {
	return entity.Build(target, svc.extractor.WithDefaults(target, s.Collected()), s.SelectedUniverse())
}

func (svc *Service) buildDraft(ctx context.Context, s *session.Store) (*entity.Draft, error) {
	target, err := activeTarget(s)
	if err != nil {
		return nil, err
	}
	s.SetPhase(types.PhaseGenerating)
	draft, err := svc.build(target, s)
	if err != nil {
		return nil, err
	}
	s.SetDraft(draft)
	slog.DebugContext(ctx, "draft built", "tracking_id", s.TrackingID(), "target", target, "name", draft.Name())
	return draft, nil
}

// Validate runs a fresh validation pass over the draft and enters review.
func (svc *Service) Validate(ctx context.Context, s *session.Store) error {
	return svc.run(ctx, s, "Validate", func(ctx context.Context) error {
		if _, err := svc.validate(ctx, s); err != nil {
			return svc.fail(ctx, s, err, msgNoDraft.in(s.Locale()))
		}
		svc.refresh(s)
		return nil
	})
}

func (svc *Service) validate(ctx context.Context, s *session.Store) (types.Validation, error) {
	draft := s.Draft()
	if draft == nil {
		return types.Validation{}, ErrNoDraft
	}
	v := entity.Validate(draft, s.Locale())
	s.SetValidation(v)
	s.SetConfirmationMode(true)
	s.SetPhase(types.PhaseReviewing)
	slog.DebugContext(ctx, "draft validated", "tracking_id", s.TrackingID(), "errors", len(v.Errors), "warnings", len(v.Warnings))
	return v, nil
}

// prepareReview builds and validates the draft, then shows it for review.
func (svc *Service) prepareReview(ctx context.Context, s *session.Store) error {
	draft, err := svc.buildDraft(ctx, s)
	if err != nil {
		return svc.fail(ctx, s, err, msgGenerationFailed.in(s.Locale()))
	}
	v, err := svc.validate(ctx, s)
	if err != nil {
		return svc.fail(ctx, s, err, msgNoDraft.in(s.Locale()))
	}
	locale := s.Locale()
	parts := []string{msgReview.in(locale, targetNames[draft.Target].in(locale), draft.Name())}
	if v.Blocking() {
		parts = append(parts, bulletList(msgConfirmBlocked.in(locale), v.Errors))
	}
	if len(v.Warnings) > 0 {
		parts = append(parts, bulletList(msgReviewWarnings.in(locale), v.Warnings))
	}
	s.AddMessage(schema.Assistant, strings.Join(parts, "\n\n"))
	return nil
}

// Confirm persists the draft. Blocking validation errors reject the call
// before the repository is touched, and a failed save leaves the phase as is.
func (svc *Service) Confirm(ctx context.Context, s *session.Store) error {
	return svc.run(ctx, s, "Confirm", func(ctx context.Context) error {
		return svc.confirm(ctx, s)
	})
}

func (svc *Service) confirm(ctx context.Context, s *session.Store) error {
	locale := s.Locale()
	draft := s.Draft()
	if draft == nil {
		return svc.fail(ctx, s, ErrNoDraft, msgNoDraft.in(locale))
	}
	v := entity.Validate(draft, locale)
	s.SetValidation(v)
	if v.Blocking() {
		return svc.fail(ctx, s, fmt.Errorf("%w: %s", ErrConfirmBlocked, strings.Join(v.Errors, "; ")),
			bulletList(msgConfirmBlocked.in(locale), v.Errors))
	}

	s.SetBusy(true)
	id, updated, err := svc.save(ctx, s, draft)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrPersistence, err)
		return svc.fail(ctx, s, err, msgPersistenceFailed.in(locale, err.Error()))
	}

	s.SetCreatedID(id)
	s.SetPersisted(draft)
	s.SetPhase(types.PhaseConfirmed)
	s.SetConfirmationMode(false)
	s.SetPendingImage(nil)
	s.SetValidation(types.Validation{})
	s.SetBusy(false)

	msg := msgSaved
	if updated {
		msg = msgUpdated
	}
	s.AddMessage(schema.Assistant, msg.in(locale, targetNames[draft.Target].in(locale), draft.Name()))
	svc.refresh(s)
	slog.InfoContext(ctx, "entity saved", "tracking_id", s.TrackingID(), "id", id, "target", draft.Target, "updated", updated)
	return nil
}

// save creates the entity, or patches it when this session stored it before.
func (svc *Service) save(ctx context.Context, s *session.Store, draft *entity.Draft) (string, bool, error) {
	id := s.CreatedID()
	if id == "" {
		created, err := svc.repo.CreateEntity(ctx, draft)
		if err != nil {
			return "", false, err
		}
		if created == "" {
			return "", false, fmt.Errorf("repository returned no identifier")
		}
		return created, false, nil
	}
	patch, err := persist.MergePatch(s.Persisted(), draft)
	if err != nil {
		return "", false, err
	}
	if persist.IsEmptyPatch(patch) {
		return id, true, nil
	}
	if err := svc.repo.UpdateEntity(ctx, id, patch); err != nil {
		return "", false, err
	}
	return id, true, nil
}

// RequestAdjustment leaves review so the user can change fields.
func (svc *Service) RequestAdjustment(ctx context.Context, s *session.Store) error {
	return svc.run(ctx, s, "RequestAdjustment", func(ctx context.Context) error {
		if s.Draft() == nil {
			return svc.fail(ctx, s, ErrNoDraft, msgNoDraft.in(s.Locale()))
		}
		s.SetPhase(types.PhaseAdjusting)
		s.SetConfirmationMode(false)
		s.AddMessage(schema.Assistant, msgAdjust.in(s.Locale()))
		svc.refresh(s)
		return nil
	})
}

// Regenerate drops the draft and keeps the collected fields.
func (svc *Service) Regenerate(ctx context.Context, s *session.Store) error {
	return svc.run(ctx, s, "Regenerate", func(ctx context.Context) error {
		return svc.regenerate(ctx, s)
	})
}

func (svc *Service) regenerate(ctx context.Context, s *session.Store) error {
	if s.Draft() == nil {
		return svc.fail(ctx, s, ErrNoDraft, msgNoDraft.in(s.Locale()))
	}
	s.SetDraft(nil)
	s.SetValidation(types.Validation{})
	s.SetConfirmationMode(false)
	s.SetPhase(types.PhaseGathering)
	s.SetBusy(false)
	s.AddMessage(schema.Assistant, msgRegenerate.in(s.Locale()))
	svc.refresh(s)
	return nil
}

// DiscardDraft drops the draft together with everything collected so far.
func (svc *Service) DiscardDraft(ctx context.Context, s *session.Store) error {
	return svc.run(ctx, s, "DiscardDraft", func(ctx context.Context) error {
		return svc.discardDraft(ctx, s)
	})
}

func (svc *Service) discardDraft(ctx context.Context, s *session.Store) error {
	if _, err := activeTarget(s); err != nil {
		return svc.fail(ctx, s, err, msgWhatToCreate.in(s.Locale()))
	}
	s.SetDraft(nil)
	s.ClearCollected()
	s.SetValidation(types.Validation{})
	s.SetConfirmationMode(false)
	s.SetPendingImage(nil)
	s.SetPhase(types.PhaseGathering)
	s.SetPhaseIndex(0)
	s.SetBusy(false)
	s.AddMessage(schema.Assistant, msgDiscarded.in(s.Locale()))
	svc.refresh(s)
	return nil
}

// dropDraft answers a discard request made in conversation. It drops the
// draft but keeps the collected fields, so completeness never goes down
// inside a message sequence.
func (svc *Service) dropDraft(ctx context.Context, s *session.Store) error {
	if s.Draft() == nil {
		return svc.fail(ctx, s, ErrNoDraft, msgNoDraft.in(s.Locale()))
	}
	s.SetDraft(nil)
	s.SetValidation(types.Validation{})
	s.SetConfirmationMode(false)
	s.SetPhase(types.PhaseGathering)
	s.SetBusy(false)
	s.AddMessage(schema.Assistant, msgDraftDropped.in(s.Locale()))
	svc.refresh(s)
	return nil
}

// Cancel abandons the flow and returns the session to idle.
func (svc *Service) Cancel(ctx context.Context, s *session.Store) error {
	return svc.run(ctx, s, "Cancel", func(ctx context.Context) error {
		s.SetMode(types.ModeIdle)
		s.AddMessage(schema.Assistant, msgCancelled.in(s.Locale()))
		svc.refresh(s)
		return nil
	})
}
