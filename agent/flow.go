package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/Twynzen/dymensisCDA-sub002/dialogue"
	"github.com/Twynzen/dymensisCDA-sub002/extract"
	"github.com/Twynzen/dymensisCDA-sub002/intent"
	"github.com/Twynzen/dymensisCDA-sub002/session"
	"github.com/Twynzen/dymensisCDA-sub002/types"
)

func modeFor(target types.TargetType) (types.Mode, error) {
	switch target {
	case types.TargetUniverse:
		return types.ModeUniverse, nil
	case types.TargetCharacter:
		return types.ModeCharacter, nil
	}
	return types.ModeIdle, fmt.Errorf("%w: %q", ErrUnsupportedTarget, target)
}

// StartCreation resets s and opens a new flow for target.
func (svc *Service) StartCreation(ctx context.Context, s *session.Store, target types.TargetType) error {
	return svc.run(ctx, s, "StartCreation", func(ctx context.Context) error {
		return svc.startCreation(ctx, s, target)
	})
}

func (svc *Service) startCreation(ctx context.Context, s *session.Store, target types.TargetType) error {
	mode, err := modeFor(target)
	if err != nil {
		return err
	}
	s.Reset()
	s.SetMode(mode)
	s.SetTrackingID(svc.newTrackingID())

	if p, _, ok := svc.phases.Phase(target, 0); ok {
		s.AddMessage(schema.Assistant, types.Pick(p.Intro, s.Locale()))
	}
	if target == types.TargetCharacter {
		svc.listUniverses(ctx, s)
	}
	svc.refresh(s)
	slog.InfoContext(ctx, "creation started", "tracking_id", s.TrackingID(), "target", target)
	return nil
}

// ProcessMessage handles one user utterance.
func (svc *Service) ProcessMessage(ctx context.Context, s *session.Store, utterance string) error {
	return svc.run(ctx, s, "ProcessMessage", func(ctx context.Context) error {
		return svc.processMessage(ctx, s, utterance)
	})
}

func (svc *Service) processMessage(ctx context.Context, s *session.Store, utterance string) error {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil
	}
	if s.Busy() {
		return ErrBusy
	}
	if s.Mode().Target() == types.TargetUnknown {
		detected := svc.extractor.DetectTarget(utterance, s.Locale())
		if detected == types.TargetUnknown {
			s.AddMessage(schema.User, utterance)
			s.AddMessage(schema.Assistant, msgWhatToCreate.in(s.Locale()))
			svc.refresh(s)
			return nil
		}
		if err := svc.startCreation(ctx, s, detected); err != nil {
			return err
		}
	}

	s.AddMessage(schema.User, utterance)
	s.SetBusy(true)

	target := s.Mode().Target()
	res := svc.extractor.Extract(utterance, target, s.Locale(), s.Collected())
	slog.DebugContext(ctx, "extracted fields",
		"tracking_id", s.TrackingID(),
		"fields", res.Extracted,
		"completeness", res.Completeness,
		"confidence", res.Confidence,
	)
	edited := changesCollected(s.Collected(), res.Values)
	s.MergeCollected(res.Values)

	// a message that edits fields is never read as a review command
	if s.Draft() != nil && s.Phase() == types.PhaseReviewing {
		if edited {
			s.SetPhase(types.PhaseAdjusting)
			s.SetConfirmationMode(false)
		} else {
			handled, err := svc.handleReviewIntent(ctx, s)
			if handled || err != nil {
				s.SetBusy(false)
				return err
			}
		}
	}

	if target == types.TargetCharacter && !s.HasSelectedUniverse() {
		svc.matchUniverse(ctx, s, utterance)
	}
	svc.refresh(s)

	// an adjustment waits for the edit before reviewing again
	waiting := s.Phase() == types.PhaseAdjusting && !edited
	if s.PhaseState().CanSkipToConfirmation && !waiting {
		if err := svc.prepareReview(ctx, s); err != nil {
			return err
		}
		s.SetBusy(false)
		svc.refresh(s)
		return nil
	}

	if next := svc.phases.SuggestNextPhase(target, s.PhaseIndex(), s.Filled()); next > s.PhaseIndex() {
		s.SetPhaseIndex(next)
		svc.refresh(s)
	}
	if err := svc.reply(ctx, s, res); err != nil {
		return err
	}
	s.SetBusy(false)
	svc.refresh(s)
	return nil
}

// handleReviewIntent dispatches a review command found in the last message.
// It reports false when the message should go through extraction.
func (svc *Service) handleReviewIntent(ctx context.Context, s *session.Store) (bool, error) {
	doc, _ := s.Draft().PromptDocument()
	req := &intent.Request{
		Locale:   s.Locale(),
		Target:   s.Mode().Target(),
		Messages: s.History(),
		Draft:    string(doc),
	}
	in, err := svc.recognizer.Recognize(ctx, req)
	if err != nil {
		slog.WarnContext(ctx, "intent recognition failed", "tracking_id", s.TrackingID(), "error", err)
		in = intent.None
	}
	slog.DebugContext(ctx, "recognized intent", "tracking_id", s.TrackingID(), "intent", in)

	switch in {
	case intent.Confirm:
		s.SetBusy(false)
		return true, svc.confirm(ctx, s)
	case intent.Regenerate:
		return true, svc.regenerate(ctx, s)
	case intent.Discard:
		return true, svc.dropDraft(ctx, s)
	case intent.Adjust:
		s.SetPhase(types.PhaseAdjusting)
		s.SetConfirmationMode(false)
		return false, nil
	default:
		return false, nil
	}
}

// changesCollected reports whether merging values would alter collected.
func changesCollected(collected, values map[string]any) bool {
	for k, v := range values {
		if !types.IsPresent(v) {
			continue
		}
		old, ok := collected[k]
		if !ok || !reflect.DeepEqual(old, v) {
			return true
		}
	}
	return false
}

// reply asks the generator for the next assistant turn and streams it into s.
func (svc *Service) reply(ctx context.Context, s *session.Store, res *extract.BulkExtraction) error {
	req := svc.dialogueRequest(s, res)
	text, err := svc.generate(ctx, s, req)
	if err != nil {
		message := msgGenerationFailed.in(s.Locale())
		if errors.Is(err, ErrStreaming) {
			message = msgStreamingFailed.in(s.Locale())
		}
		return svc.fail(ctx, s, err, message)
	}
	msg, ok := s.FinishStreaming()
	switch {
	case !ok && strings.TrimSpace(text) != "":
		s.AddMessage(schema.Assistant, text)
	case ok && text != "" && msg.Content != text:
		s.UpdateLastAssistantMessage(text)
	}
	return nil
}

func (svc *Service) generate(ctx context.Context, s *session.Store, req *dialogue.Request) (text string, err error) {
	s.StartStreaming()
	req.OnRetry = s.StartStreaming
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrStreaming, r)
		}
	}()
	text, err = svc.generator.Generate(ctx, req, s.AppendStreamingToken)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return text, nil
}

func (svc *Service) dialogueRequest(s *session.Store, res *extract.BulkExtraction) *dialogue.Request {
	target := s.Mode().Target()
	locale := s.Locale()
	st := s.PhaseState()
	req := &dialogue.Request{
		Target:       target,
		Locale:       locale,
		Phase:        s.Phase(),
		PhaseID:      st.CurrentPhaseID,
		Completeness: st.Completeness,
		Messages:     s.History(),
		Collected:    s.Collected(),
		Validation:   s.Validation(),
		Suggestions:  s.Suggestions(),
	}
	if p, _, ok := svc.phases.Phase(target, s.PhaseIndex()); ok {
		req.PhaseIntro = types.Pick(p.Intro, locale)
	}
	required, optional := svc.extractor.Missing(target, s.Filled())
	for _, key := range append(required, optional...) {
		if f, ok := svc.extractor.Field(target, key); ok {
			req.MissingFields = append(req.MissingFields, f.Info(locale))
		}
	}
	if res != nil {
		req.FollowUp = res.FollowUp
	}
	if req.FollowUp == "" {
		for _, key := range st.PendingFields {
			if f, ok := svc.extractor.Field(target, key); ok {
				req.FollowUp = types.Pick(f.Ask, locale)
				break
			}
		}
	}
	return req
}
