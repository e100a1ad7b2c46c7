package action

import (
	"sort"

	"github.com/Twynzen/dymensisCDA-sub002/types"
)

// Predicate decides whether a contextual action applies. Predicates must be
// pure functions of the context.
type Predicate func(Context) bool

const (
	PredIdle                  = "idle"
	PredInFlow                = "in_flow"
	PredHasDraft              = "has_draft"
	PredInReview              = "in_review"
	PredValidationBlocked     = "validation_blocked"
	PredCanSkip               = "can_skip"
	PredCanAdvance            = "can_advance"
	PredCanGoBack             = "can_go_back"
	PredMentionsImage         = "mentions_image"
	PredPendingUniverseImage  = "pending_universe_image"
	PredPendingCharacterImage = "pending_character_image"
	PredNeedsUniverse         = "needs_universe"
)

var predicates = map[string]Predicate{
	PredIdle: func(c Context) bool {
		return c.Mode == types.ModeIdle
	},
	PredInFlow: inFlow,
	PredHasDraft: func(c Context) bool {
		return c.HasDraft
	},
	PredInReview: func(c Context) bool {
		return c.HasDraft && c.ConfirmationMode
	},
	PredValidationBlocked: func(c Context) bool {
		return c.Validation.Blocking()
	},
	PredCanSkip: func(c Context) bool {
		return inFlow(c) && !c.HasDraft && c.CanSkipToConfirmation
	},
	PredCanAdvance: func(c Context) bool {
		return inFlow(c) && !c.HasDraft && c.CurrentPhaseIndex < c.TotalPhases-1
	},
	PredCanGoBack: func(c Context) bool {
		return inFlow(c) && !c.HasDraft && c.CurrentPhaseIndex > 0
	},
	PredMentionsImage: func(c Context) bool {
		return inFlow(c) && c.MentionsImage && !c.HasPendingImage
	},
	PredPendingUniverseImage: func(c Context) bool {
		return c.HasPendingImage && c.Mode == types.ModeUniverse
	},
	PredPendingCharacterImage: func(c Context) bool {
		return c.HasPendingImage && c.Mode == types.ModeCharacter
	},
	PredNeedsUniverse: func(c Context) bool {
		return c.Mode == types.ModeCharacter && !c.HasSelectedUniverse
	},
}

func inFlow(c Context) bool {
	return c.Mode == types.ModeUniverse || c.Mode == types.ModeCharacter
}

// Eval runs the named predicate. Unknown names evaluate to false.
func Eval(name string, c Context) bool {
	p, ok := predicates[name]
	if !ok {
		return false
	}
	return p(c)
}

// Predicates lists the registered predicate names in sorted order.
func Predicates() []string {
	names := make([]string, 0, len(predicates))
	for name := range predicates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
