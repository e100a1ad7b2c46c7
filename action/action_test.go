package action

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Twynzen/dymensisCDA-sub002/phase"
	"github.com/Twynzen/dymensisCDA-sub002/types"
)

type fakeView struct {
	mode         types.Mode
	phase        types.Phase
	confirmation bool
	validation   types.Validation
	last         string
	pendingImage bool
	universe     bool
}

func (v fakeView) Mode() types.Mode { return v.mode }
func (v fakeView) Phase() types.Phase { return v.phase }
func (v fakeView) ConfirmationMode() bool { return v.confirmation }
func (v fakeView) Validation() types.Validation { return v.validation }
func (v fakeView) LastUserMessage() string { return v.last }
func (v fakeView) HasPendingImage() bool { return v.pendingImage }
func (v fakeView) HasSelectedUniverse() bool { return v.universe }

func typesOf(actions []Action) []Type {
	out := make([]Type, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Type)
	}
	return out
}

func sampleContexts() []Context {
	return []Context{
		{Mode: types.ModeIdle},
		{Mode: types.ModeUniverse, TotalPhases: 4},
		{Mode: types.ModeUniverse, TotalPhases: 4, CurrentPhaseIndex: 2, CanSkipToConfirmation: true, MentionsImage: true},
		{Mode: types.ModeUniverse, HasDraft: true, ConfirmationMode: true},
		{Mode: types.ModeUniverse, HasDraft: true, ConfirmationMode: true, Validation: types.Validation{Errors: []string{"x"}}},
		{Mode: types.ModeCharacter, HasPendingImage: true},
	}
}

func TestVisibleInvariants(t *testing.T) {
	cat := append(Catalog(types.LocaleES), Action{ID: "secret", Type: TypeHelp, Visibility: VisibilityHidden, Priority: 1000})
	for _, ctx := range sampleContexts() {
		got := Visible(cat, ctx)
		for _, a := range got {
			assert.NotEqual(t, VisibilityHidden, a.Visibility)
		}
		for _, a := range cat {
			if a.Visibility == VisibilityAlways {
				_, ok := Find(got, a.Type)
				assert.True(t, ok, "always action %s missing", a.Type)
			}
		}
		assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool {
			return got[i].Priority > got[j].Priority
		}))
	}
}

func TestVisibleStableForTies(t *testing.T) {
	cat := []Action{
		{ID: "a", Type: TypeStartUniverse, Visibility: VisibilityAlways, Priority: 5},
		{ID: "b", Type: TypeStartCharacter, Visibility: VisibilityAlways, Priority: 5},
		{ID: "c", Type: TypeHelp, Visibility: VisibilityAlways, Priority: 9},
		{ID: "d", Type: TypeCancel, Visibility: VisibilityAlways, Priority: 5},
	}
	got := Visible(cat, Context{})
	ids := make([]string, 0, len(got))
	for _, a := range got {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"c", "a", "b", "d"}, ids)
}

func TestVisibleByContext(t *testing.T) {
	cat := Catalog(types.LocaleEN)

	idle := Visible(cat, Context{Mode: types.ModeIdle})
	assert.Equal(t, []Type{TypeStartUniverse, TypeStartCharacter, TypeHelp}, typesOf(idle))

	review := Visible(cat, Context{Mode: types.ModeUniverse, HasDraft: true, ConfirmationMode: true})
	require.NotEmpty(t, review)
	assert.Equal(t, TypeConfirm, review[0].Type)
	assert.False(t, review[0].Disabled)
	assert.Equal(t, "Confirm and save", review[0].Label)

	blocked := Visible(cat, Context{Mode: types.ModeUniverse, HasDraft: true, ConfirmationMode: true,
		Validation: types.Validation{Errors: []string{"missing name"}}})
	confirm, ok := Find(blocked, TypeConfirm)
	require.True(t, ok)
	assert.True(t, confirm.Disabled)

	character := Visible(cat, Context{Mode: types.ModeCharacter, HasPendingImage: true, TotalPhases: 4})
	_, ok = Find(character, TypeClassifyAvatar)
	assert.True(t, ok)
	_, ok = Find(character, TypeClassifyCover)
	assert.False(t, ok)
	_, ok = Find(character, TypeSelectUniverse)
	assert.True(t, ok)
	_, ok = Find(character, TypePreviousPhase)
	assert.False(t, ok)
}

func TestBuildContext(t *testing.T) {
	view := fakeView{mode: types.ModeUniverse, phase: types.PhaseGathering, last: "Quiero subir una imagen de portada"}
	state := phase.State{CurrentPhaseIndex: 1, TotalPhases: 4, Completeness: 42, FilledFields: []string{"name"}, CanSkipToConfirmation: false}

	ctx := BuildContext(view, state, false, types.LocaleES)
	assert.True(t, ctx.MentionsImage)
	assert.Equal(t, 42, ctx.Completeness)
	assert.True(t, ctx.FilledFields.Has("name"))

	got := Visible(Catalog(types.LocaleES), ctx)
	_, ok := Find(got, TypeUploadImage)
	assert.True(t, ok)
}

func TestMentionsImage(t *testing.T) {
	assert.True(t, MentionsImage("here is a PICTURE of the map", types.LocaleEN))
	assert.False(t, MentionsImage("imaginary friends", types.LocaleEN))
	assert.False(t, MentionsImage("", types.LocaleES))
	assert.True(t, MentionsImage("tengo una ilustración", types.LocaleES))
}

func TestParseType(t *testing.T) {
	got, err := ParseType("confirm")
	require.NoError(t, err)
	assert.Equal(t, TypeConfirm, got)

	_, err = ParseType("launch_missiles")
	assert.Error(t, err)
}

func TestCatalogPredicatesRegistered(t *testing.T) {
	names := Predicates()
	assert.True(t, sort.StringsAreSorted(names))
	assert.Equal(t, names, Predicates())
	for _, a := range Catalog(types.LocaleES) {
		if a.When != "" {
			assert.Contains(t, names, a.When)
		}
		if a.DisableWhen != "" {
			assert.Contains(t, names, a.DisableWhen)
		}
	}
	assert.False(t, Eval("nope", Context{}))
}
