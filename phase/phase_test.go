package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Twynzen/dymensisCDA-sub002/extract"
	"github.com/Twynzen/dymensisCDA-sub002/types"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	table, err := DefaultTable()
	require.NoError(t, err)
	scorer, err := extract.NewDefaultEngine()
	require.NoError(t, err)
	return NewEngine(table, scorer)
}

func TestCalculateEmpty(t *testing.T) {
	engine := newTestEngine(t)
	state := engine.Calculate(types.TargetUniverse, types.FieldSet{}, 0)

	assert.Equal(t, "concept", state.CurrentPhaseID)
	assert.Equal(t, 4, state.TotalPhases)
	assert.Equal(t, 0, state.Completeness)
	assert.False(t, state.CanSkipToConfirmation)
	assert.Equal(t, []string{"name", "theme", "description"}, state.PendingFields)
	assert.Equal(t, "statistics", state.SuggestedNextPhase)
	// review has no required fields
	assert.Equal(t, []string{"review"}, state.SkippablePhases)
}

func TestCalculateCanSkip(t *testing.T) {
	engine := newTestEngine(t)
	filled := types.NewFieldSet("name", "theme", "statNames", "statCount")
	state := engine.Calculate(types.TargetUniverse, filled, 0)

	assert.Equal(t, 74, state.Completeness)
	assert.True(t, state.CanSkipToConfirmation)
	assert.Equal(t, []string{"concept", "statistics", "review"}, state.SkippablePhases)
	assert.Equal(t, "rank-system", state.SuggestedNextPhase)
}

func TestCalculateMissingRequiredBlocksSkip(t *testing.T) {
	engine := newTestEngine(t)
	filled := types.NewFieldSet("name", "statNames", "statCount", "levels", "initialPoints", "description", "coverImage")
	state := engine.Calculate(types.TargetUniverse, filled, 0)

	assert.GreaterOrEqual(t, state.Completeness, 70)
	assert.False(t, state.CanSkipToConfirmation)
}

func TestCalculateAllSatisfied(t *testing.T) {
	engine := newTestEngine(t)
	filled := types.NewFieldSet("name", "theme", "statNames", "levels")
	state := engine.Calculate(types.TargetUniverse, filled, 1)

	assert.Empty(t, state.SuggestedNextPhase)
	assert.Len(t, state.SkippablePhases, 4)
}

func TestCalculateClampsIndex(t *testing.T) {
	engine := newTestEngine(t)
	state := engine.Calculate(types.TargetCharacter, types.FieldSet{}, 42)
	assert.Equal(t, "review", state.CurrentPhaseID)
	assert.Equal(t, 3, state.CurrentPhaseIndex)

	state = engine.Calculate(types.TargetUnknown, types.FieldSet{}, 0)
	assert.Zero(t, state.TotalPhases)
}

func TestSuggestNextPhase(t *testing.T) {
	engine := newTestEngine(t)
	tests := []struct {
		name    string
		filled  types.FieldSet
		current int
		want    int
	}{
		{"nothing filled", types.FieldSet{}, 0, 0},
		{"concept done", types.NewFieldSet("name", "theme"), 0, 1},
		{"later data volunteered early", types.NewFieldSet("name", "theme", "statNames", "levels"), 0, 3},
		{"gap stops progress", types.NewFieldSet("name", "theme", "levels"), 0, 1},
		{"never moves backward", types.FieldSet{}, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.SuggestNextPhase(types.TargetUniverse, tt.current, tt.filled)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, tt.current)
		})
	}
}

func TestSmartSuggestions(t *testing.T) {
	engine := newTestEngine(t)

	got := engine.SmartSuggestions(types.TargetUniverse, "concept", types.FieldSet{}, "", types.LocaleES)
	assert.Equal(t, []string{"Se llama Eldoria", "Se llama Neo-Tokio 2099"}, got)

	got = engine.SmartSuggestions(types.TargetUniverse, "concept", types.NewFieldSet("name"), "", types.LocaleEN)
	assert.Equal(t, []string{"It is dark fantasy", "It is science fiction"}, got)

	got = engine.SmartSuggestions(types.TargetUniverse, "concept", types.NewFieldSet("name"), "es de fantasía oscura", types.LocaleES)
	assert.Equal(t, []string{"Es de ciencia ficción"}, got)

	got = engine.SmartSuggestions(types.TargetUniverse, "concept", types.NewFieldSet("name", "theme", "description"), "", types.LocaleES)
	assert.Empty(t, got)

	assert.Empty(t, engine.SmartSuggestions(types.TargetUniverse, "missing", types.FieldSet{}, "", types.LocaleES))
}

func TestParseTableRejectsDuplicates(t *testing.T) {
	_, err := ParseTable([]byte("targets:\n  universe:\n    - id: a\n    - id: a\n"))
	assert.Error(t, err)

	_, err = ParseTable([]byte("targets: {}"))
	assert.Error(t, err)
}
