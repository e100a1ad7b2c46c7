package action

import (
	"strings"

	"github.com/Twynzen/dymensisCDA-sub002/extract"
	"github.com/Twynzen/dymensisCDA-sub002/phase"
	"github.com/Twynzen/dymensisCDA-sub002/types"
)

// Context is the snapshot every predicate is evaluated against.
type Context struct {
	Mode                  types.Mode
	Phase                 types.Phase
	Locale                types.Locale
	Completeness          int
	FilledFields          types.FieldSet
	PendingFields         []string
	CurrentPhaseIndex     int
	TotalPhases           int
	CanSkipToConfirmation bool
	HasDraft              bool
	ConfirmationMode      bool
	Validation            types.Validation
	LastUserMessage       string
	MentionsImage         bool
	HasPendingImage       bool
	HasSelectedUniverse   bool
}

// SessionView is the read-only part of a session a context is built from.
type SessionView interface {
	Mode() types.Mode
	Phase() types.Phase
	ConfirmationMode() bool
	Validation() types.Validation
	LastUserMessage() string
	HasPendingImage() bool
	HasSelectedUniverse() bool
}

var imageKeywords = map[types.Locale][]string{
	types.LocaleES: {"imagen", "imágenes", "foto", "fotos", "portada", "avatar", "ilustración", "dibujo", "retrato"},
	types.LocaleEN: {"image", "images", "picture", "photo", "photos", "cover", "avatar", "illustration", "drawing", "portrait"},
}

// MentionsImage reports whether text refers to an image in locale.
func MentionsImage(text string, locale types.Locale) bool {
	text = strings.ToLower(text)
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, kw := range types.Pick(imageKeywords, locale) {
		if extract.ContainsKeyword(text, kw) {
			return true
		}
	}
	return false
}

func BuildContext(view SessionView, state phase.State, hasDraft bool, locale types.Locale) Context {
	last := view.LastUserMessage()
	return Context{
		Mode:                  view.Mode(),
		Phase:                 view.Phase(),
		Locale:                locale,
		Completeness:          state.Completeness,
		FilledFields:          types.NewFieldSet(state.FilledFields...),
		PendingFields:         append([]string(nil), state.PendingFields...),
		CurrentPhaseIndex:     state.CurrentPhaseIndex,
		TotalPhases:           state.TotalPhases,
		CanSkipToConfirmation: state.CanSkipToConfirmation,
		HasDraft:              hasDraft,
		ConfirmationMode:      view.ConfirmationMode(),
		Validation:            view.Validation(),
		LastUserMessage:       last,
		MentionsImage:         MentionsImage(last, locale),
		HasPendingImage:       view.HasPendingImage(),
		HasSelectedUniverse:   view.HasSelectedUniverse(),
	}
}
