package action

import (
	"fmt"
	"sort"

	"github.com/Twynzen/dymensisCDA-sub002/types"
)

// Type is the closed set of actions a session can dispatch.
type Type string

const (
	TypeStartUniverse      Type = "start_universe"
	TypeStartCharacter     Type = "start_character"
	TypeSelectUniverse     Type = "select_universe"
	TypeAdvancePhase       Type = "advance_phase"
	TypePreviousPhase      Type = "previous_phase"
	TypeSkipToConfirmation Type = "skip_to_confirmation"
	TypeUploadImage        Type = "upload_image"
	TypeClassifyCover      Type = "classify_cover"
	TypeClassifyLocation   Type = "classify_location"
	TypeClassifyAvatar     Type = "classify_avatar"
	TypeConfirm            Type = "confirm"
	TypeAdjust             Type = "adjust"
	TypeRegenerate         Type = "regenerate"
	TypeDiscard            Type = "discard"
	TypeCancel             Type = "cancel"
	TypeHelp               Type = "help"
)

var allTypes = []Type{
	TypeStartUniverse, TypeStartCharacter, TypeSelectUniverse, TypeAdvancePhase,
	TypePreviousPhase, TypeSkipToConfirmation, TypeUploadImage, TypeClassifyCover,
	TypeClassifyLocation, TypeClassifyAvatar, TypeConfirm, TypeAdjust, TypeRegenerate,
	TypeDiscard, TypeCancel, TypeHelp,
}

// ParseType validates an action type received from outside the process.
func ParseType(s string) (Type, error) {
	for _, t := range allTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown action type %q", s)
}

type Visibility string

const (
	VisibilityAlways     Visibility = "always"
	VisibilityContextual Visibility = "contextual"
	VisibilityHidden     Visibility = "hidden"
)

// Action is one entry of the catalog. When and DisableWhen name predicates
// in the registry; an empty name never matches.
type Action struct {
	ID          string     `json:"id"`
	Type        Type       `json:"type"`
	Label       string     `json:"label"`
	Visibility  Visibility `json:"visibility"`
	When        string     `json:"when,omitempty"`
	DisableWhen string     `json:"-"`
	Priority    int        `json:"priority"`
	Disabled    bool       `json:"disabled"`
}

type entry struct {
	typ         Type
	labels      map[types.Locale]string
	visibility  Visibility
	when        string
	disableWhen string
	priority    int
}

var catalog = []entry{
	{TypeConfirm, map[types.Locale]string{types.LocaleES: "Confirmar y guardar", types.LocaleEN: "Confirm and save"}, VisibilityContextual, PredInReview, PredValidationBlocked, 100},
	{TypeSkipToConfirmation, map[types.Locale]string{types.LocaleES: "Generar borrador", types.LocaleEN: "Generate draft"}, VisibilityContextual, PredCanSkip, "", 90},
	{TypeClassifyCover, map[types.Locale]string{types.LocaleES: "Usar como portada", types.LocaleEN: "Use as cover"}, VisibilityContextual, PredPendingUniverseImage, "", 85},
	{TypeClassifyLocation, map[types.Locale]string{types.LocaleES: "Usar como lugar", types.LocaleEN: "Use as location"}, VisibilityContextual, PredPendingUniverseImage, "", 84},
	{TypeClassifyAvatar, map[types.Locale]string{types.LocaleES: "Usar como avatar", types.LocaleEN: "Use as avatar"}, VisibilityContextual, PredPendingCharacterImage, "", 85},
	{TypeSelectUniverse, map[types.Locale]string{types.LocaleES: "Elegir universo", types.LocaleEN: "Choose universe"}, VisibilityContextual, PredNeedsUniverse, "", 80},
	{TypeAdjust, map[types.Locale]string{types.LocaleES: "Ajustar", types.LocaleEN: "Adjust"}, VisibilityContextual, PredHasDraft, "", 70},
	{TypeRegenerate, map[types.Locale]string{types.LocaleES: "Regenerar", types.LocaleEN: "Regenerate"}, VisibilityContextual, PredHasDraft, "", 60},
	{TypeUploadImage, map[types.Locale]string{types.LocaleES: "Subir imagen", types.LocaleEN: "Upload image"}, VisibilityContextual, PredMentionsImage, "", 55},
	{TypeAdvancePhase, map[types.Locale]string{types.LocaleES: "Siguiente fase", types.LocaleEN: "Next phase"}, VisibilityContextual, PredCanAdvance, "", 50},
	{TypePreviousPhase, map[types.Locale]string{types.LocaleES: "Fase anterior", types.LocaleEN: "Previous phase"}, VisibilityContextual, PredCanGoBack, "", 40},
	{TypeStartUniverse, map[types.Locale]string{types.LocaleES: "Crear universo", types.LocaleEN: "Create universe"}, VisibilityContextual, PredIdle, "", 30},
	{TypeStartCharacter, map[types.Locale]string{types.LocaleES: "Crear personaje", types.LocaleEN: "Create character"}, VisibilityContextual, PredIdle, "", 30},
	{TypeDiscard, map[types.Locale]string{types.LocaleES: "Descartar borrador", types.LocaleEN: "Discard draft"}, VisibilityContextual, PredHasDraft, "", 20},
	{TypeCancel, map[types.Locale]string{types.LocaleES: "Cancelar", types.LocaleEN: "Cancel"}, VisibilityContextual, PredInFlow, "", 10},
	{TypeHelp, map[types.Locale]string{types.LocaleES: "Ayuda", types.LocaleEN: "Help"}, VisibilityAlways, "", "", 0},
}

// Catalog returns the static action catalog with labels for locale.
func Catalog(locale types.Locale) []Action {
	out := make([]Action, 0, len(catalog))
	for _, e := range catalog {
		out = append(out, Action{
			ID:          string(e.typ),
			Type:        e.typ,
			Label:       types.Pick(e.labels, locale),
			Visibility:  e.visibility,
			When:        e.when,
			DisableWhen: e.disableWhen,
			Priority:    e.priority,
		})
	}
	return out
}

// Visible filters catalog against ctx and orders the result by descending
// priority. Ties keep catalog order.
func Visible(catalog []Action, ctx Context) []Action {
	out := make([]Action, 0, len(catalog))
	for _, a := range catalog {
		switch a.Visibility {
		case VisibilityHidden:
			continue
		case VisibilityContextual:
			if !Eval(a.When, ctx) {
				continue
			}
		case VisibilityAlways:
		default:
			continue
		}
		if a.DisableWhen != "" && Eval(a.DisableWhen, ctx) {
			a.Disabled = true
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// Find returns the visible action of type t.
func Find(actions []Action, t Type) (Action, bool) {
	for _, a := range actions {
		if a.Type == t {
			return a, true
		}
	}
	return Action{}, false
}
