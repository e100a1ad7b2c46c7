package phase

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Twynzen/dymensisCDA-sub002/types"
)

//go:embed phases.yaml
var defaultTable []byte

// DefaultConfirmThreshold is the completeness at which a flow may skip straight to confirmation.
const DefaultConfirmThreshold = 70

const maxSuggestions = 3

// Phase is one ordered step of a guided flow.
type Phase struct {
	ID          string                                `yaml:"id"`
	Fields      []string                              `yaml:"fields"`
	Required    []string                              `yaml:"required"`
	Intro       map[types.Locale]string               `yaml:"intro"`
	Suggestions map[string]map[types.Locale][]string `yaml:"suggestions"`
}

type Table struct {
	Targets map[types.TargetType][]*Phase `yaml:"targets"`
}

func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing phase table: %w", err)
	}
	if len(t.Targets) == 0 {
		return nil, fmt.Errorf("parsing phase table: no targets defined")
	}
	for target, phases := range t.Targets {
		if len(phases) == 0 {
			return nil, fmt.Errorf("parsing phase table: target %s has no phases", target)
		}
		seen := make(map[string]struct{}, len(phases))
		for i, p := range phases {
			if strings.TrimSpace(p.ID) == "" {
				return nil, fmt.Errorf("parsing phase table: target %s phase %d id is required", target, i)
			}
			if _, dup := seen[p.ID]; dup {
				return nil, fmt.Errorf("parsing phase table: target %s duplicate phase %s", target, p.ID)
			}
			seen[p.ID] = struct{}{}
		}
	}
	return &t, nil
}

func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading phase table: %w", err)
	}
	return ParseTable(data)
}

func DefaultTable() (*Table, error) {
	return ParseTable(defaultTable)
}

// Scorer supplies completeness and required-field knowledge for a target.
type Scorer interface {
	Completeness(target types.TargetType, filled types.FieldSet) int
	MissingRequired(target types.TargetType, filled types.FieldSet) []string
}

// State is the derived view of where a flow stands.
type State struct {
	CurrentPhaseID        string   `json:"current_phase_id"`
	CurrentPhaseIndex     int      `json:"current_phase_index"`
	TotalPhases           int      `json:"total_phases"`
	Completeness          int      `json:"completeness"`
	FilledFields          []string `json:"filled_fields"`
	PendingFields         []string `json:"pending_fields"`
	CanSkipToConfirmation bool     `json:"can_skip_to_confirmation"`
	// SuggestedNextPhase is empty when every later phase is satisfied.
	SuggestedNextPhase string   `json:"suggested_next_phase,omitempty"`
	SkippablePhases    []string `json:"skippable_phases"`
}

type Engine struct {
	table     *Table
	scorer    Scorer
	threshold int
}

type Option func(*Engine)

func WithConfirmThreshold(threshold int) Option {
	return func(e *Engine) {
		if threshold > 0 && threshold <= 100 {
			e.threshold = threshold
		}
	}
}

func NewEngine(table *Table, scorer Scorer, opts ...Option) *Engine {
	e := &Engine{table: table, scorer: scorer, threshold: DefaultConfirmThreshold}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Threshold() int {
	return e.threshold
}

func (e *Engine) Phases(target types.TargetType) []*Phase {
	return e.table.Targets[target]
}

// Phase returns the phase at index, clamped into the table.
func (e *Engine) Phase(target types.TargetType, index int) (*Phase, int, bool) {
	phases := e.Phases(target)
	if len(phases) == 0 {
		return nil, 0, false
	}
	index = min(max(index, 0), len(phases)-1)
	return phases[index], index, true
}

func (e *Engine) satisfied(p *Phase, filled types.FieldSet) bool {
	return filled.HasAll(p.Required)
}

// Calculate derives the phase state of target from the filled fields.
func (e *Engine) Calculate(target types.TargetType, filled types.FieldSet, current int) State {
	state := State{
		FilledFields:    filled.Keys(),
		PendingFields:   []string{},
		SkippablePhases: []string{},
	}
	phases := e.Phases(target)
	p, index, ok := e.Phase(target, current)
	if !ok {
		return state
	}
	state.CurrentPhaseID = p.ID
	state.CurrentPhaseIndex = index
	state.TotalPhases = len(phases)
	state.Completeness = e.scorer.Completeness(target, filled)
	state.CanSkipToConfirmation = state.Completeness >= e.threshold &&
		len(e.scorer.MissingRequired(target, filled)) == 0

	for _, key := range p.Fields {
		if !filled.Has(key) {
			state.PendingFields = append(state.PendingFields, key)
		}
	}
	for _, ph := range phases {
		if e.satisfied(ph, filled) {
			state.SkippablePhases = append(state.SkippablePhases, ph.ID)
		}
	}
	for _, ph := range phases[index+1:] {
		if !e.satisfied(ph, filled) {
			state.SuggestedNextPhase = ph.ID
			break
		}
	}
	return state
}

// SuggestNextPhase returns the furthest phase reachable from current without
// passing an unsatisfied phase. It never returns an index below current.
func (e *Engine) SuggestNextPhase(target types.TargetType, current int, filled types.FieldSet) int {
	phases := e.Phases(target)
	if len(phases) == 0 {
		return current
	}
	_, index, _ := e.Phase(target, current)
	for index+1 < len(phases) && e.satisfied(phases[index], filled) {
		index++
	}
	return max(index, current)
}

// SmartSuggestions proposes short prompts for the next unmet field of a phase,
// leaving out any the user has just typed.
func (e *Engine) SmartSuggestions(target types.TargetType, phaseID string, filled types.FieldSet, lastMessage string, locale types.Locale) []string {
	var p *Phase
	for _, ph := range e.Phases(target) {
		if ph.ID == phaseID {
			p = ph
			break
		}
	}
	if p == nil {
		return []string{}
	}
	next := ""
	for _, key := range append(append([]string{}, p.Required...), p.Fields...) {
		if !filled.Has(key) {
			next = key
			break
		}
	}
	if next == "" {
		return []string{}
	}
	candidates := types.Pick(p.Suggestions[next], locale)
	last := strings.ToLower(strings.TrimSpace(lastMessage))
	out := make([]string, 0, maxSuggestions)
	for _, s := range candidates {
		if last != "" && strings.Contains(last, strings.ToLower(s)) {
			continue
		}
		out = append(out, s)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}
