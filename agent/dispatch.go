package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/Twynzen/dymensisCDA-sub002/action"
	"github.com/Twynzen/dymensisCDA-sub002/session"
	"github.com/Twynzen/dymensisCDA-sub002/types"
)

// AdvancePhase moves to the next phase of the flow.
func (svc *Service) AdvancePhase(ctx context.Context, s *session.Store) error {
	return svc.run(ctx, s, "AdvancePhase", func(ctx context.Context) error {
		return svc.movePhase(ctx, s, 1, msgLastPhase)
	})
}

// PreviousPhase moves back one phase.
func (svc *Service) PreviousPhase(ctx context.Context, s *session.Store) error {
	return svc.run(ctx, s, "PreviousPhase", func(ctx context.Context) error {
		return svc.movePhase(ctx, s, -1, msgFirstPhase)
	})
}

func (svc *Service) movePhase(ctx context.Context, s *session.Store, step int, atEdge text) error {
	target, err := activeTarget(s)
	if err != nil {
		return svc.fail(ctx, s, err, msgWhatToCreate.in(s.Locale()))
	}
	next := s.PhaseIndex() + step
	p, _, ok := svc.phases.Phase(target, next)
	if !ok || next < 0 || next >= len(svc.phases.Phases(target)) {
		s.AddMessage(schema.Assistant, atEdge.in(s.Locale()))
		svc.refresh(s)
		return nil
	}
	s.SetPhaseIndex(next)
	if s.Phase() == types.PhaseReviewing || s.Phase() == types.PhaseConfirmed {
		s.SetConfirmationMode(false)
		s.SetPhase(types.PhaseAdjusting)
	}
	s.AddMessage(schema.Assistant, types.Pick(p.Intro, s.Locale()))
	svc.refresh(s)
	return nil
}

// SkipToConfirmation builds the draft from whatever has been collected and
// opens the review.
func (svc *Service) SkipToConfirmation(ctx context.Context, s *session.Store) error {
	return svc.run(ctx, s, "SkipToConfirmation", func(ctx context.Context) error {
		if err := svc.prepareReview(ctx, s); err != nil {
			return err
		}
		svc.refresh(s)
		return nil
	})
}

// Help lists what the user can do right now.
func (svc *Service) Help(ctx context.Context, s *session.Store) error {
	return svc.run(ctx, s, "Help", func(ctx context.Context) error {
		svc.refresh(s)
		locale := s.Locale()
		if s.Mode().Target() == types.TargetUnknown {
			s.AddMessage(schema.Assistant, msgHelpIdle.in(locale))
			return nil
		}
		var labels []string
		for _, a := range s.VisibleActions() {
			if a.Type != action.TypeHelp && !a.Disabled {
				labels = append(labels, a.Label)
			}
		}
		labels = append(labels, s.Suggestions()...)
		s.AddMessage(schema.Assistant, bulletList(msgHelp.in(locale), labels))
		return nil
	})
}

// Dispatch executes an action from the catalog. arg carries the universe id
// for select_universe and is ignored otherwise.
func (svc *Service) Dispatch(ctx context.Context, s *session.Store, t action.Type, arg string) error {
	switch t {
	case action.TypeStartUniverse:
		return svc.StartCreation(ctx, s, types.TargetUniverse)
	case action.TypeStartCharacter:
		return svc.StartCreation(ctx, s, types.TargetCharacter)
	case action.TypeSelectUniverse:
		if arg == "" {
			return svc.run(ctx, s, "ListUniverses", func(ctx context.Context) error {
				svc.listUniverses(ctx, s)
				svc.refresh(s)
				return nil
			})
		}
		return svc.SelectUniverse(ctx, s, arg)
	case action.TypeAdvancePhase:
		return svc.AdvancePhase(ctx, s)
	case action.TypePreviousPhase:
		return svc.PreviousPhase(ctx, s)
	case action.TypeSkipToConfirmation:
		return svc.SkipToConfirmation(ctx, s)
	case action.TypeUploadImage:
		return svc.run(ctx, s, "UploadImage", func(ctx context.Context) error {
			s.AddMessage(schema.Assistant, msgAttachImage.in(s.Locale()))
			svc.refresh(s)
			return nil
		})
	case action.TypeClassifyCover:
		return svc.ClassifyImage(ctx, s, SlotCover)
	case action.TypeClassifyLocation:
		return svc.ClassifyImage(ctx, s, SlotLocation)
	case action.TypeClassifyAvatar:
		return svc.ClassifyImage(ctx, s, SlotAvatar)
	case action.TypeConfirm:
		return svc.Confirm(ctx, s)
	case action.TypeAdjust:
		return svc.RequestAdjustment(ctx, s)
	case action.TypeRegenerate:
		return svc.Regenerate(ctx, s)
	case action.TypeDiscard:
		return svc.DiscardDraft(ctx, s)
	case action.TypeCancel:
		return svc.Cancel(ctx, s)
	case action.TypeHelp:
		return svc.Help(ctx, s)
	}
	return fmt.Errorf("unknown action type %q", t)
}
