package session

import (
	"fmt"
	"slices"

	"github.com/bytedance/sonic"

	"github.com/Twynzen/dymensisCDA-sub002/action"
	"github.com/Twynzen/dymensisCDA-sub002/entity"
	"github.com/Twynzen/dymensisCDA-sub002/phase"
	"github.com/Twynzen/dymensisCDA-sub002/types"
)

// Snapshot is the read-only view handed to the presentation layer.
type Snapshot struct {
	TrackingID       string           `json:"tracking_id"`
	Locale           types.Locale     `json:"locale"`
	Mode             types.Mode       `json:"mode"`
	Phase            types.Phase      `json:"phase"`
	PhaseIndex       int              `json:"phase_index"`
	Messages         []types.Message  `json:"messages"`
	Draft            *entity.Draft    `json:"draft,omitempty"`
	ConfirmationMode bool             `json:"confirmation_mode"`
	Validation       types.Validation `json:"validation"`
	Collected        map[string]any   `json:"collected"`
	FilledFields     []string         `json:"filled_fields"`
	Progress         int              `json:"progress"`
	PhaseState       phase.State      `json:"phase_state"`
	VisibleActions   []action.Action  `json:"visible_actions"`
	Suggestions      []string         `json:"suggestions"`
	SelectedUniverse *entity.Universe `json:"selected_universe,omitempty"`
	PendingImage     *Image           `json:"pending_image,omitempty"`
	Busy             bool             `json:"busy"`
	CreatedID        string           `json:"created_id,omitempty"`
	Streaming        Streaming        `json:"streaming"`
}

// Snapshot returns a deep copy of the observable state.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		TrackingID:       s.trackingID,
		Locale:           s.locale,
		Mode:             s.mode,
		Phase:            s.phase,
		PhaseIndex:       s.phaseIndex,
		Messages:         s.Messages(),
		Draft:            s.draft.Clone(),
		ConfirmationMode: s.confirmationMode,
		Validation:       s.Validation(),
		Collected:        cloneCollected(s.collected),
		FilledFields:     s.filled.Keys(),
		Progress:         s.progress,
		PhaseState:       s.phaseState,
		VisibleActions:   s.VisibleActions(),
		Suggestions:      s.Suggestions(),
		Busy:             s.busy,
		CreatedID:        s.createdID,
		Streaming:        s.streaming,
	}
	snap.PhaseState.FilledFields = append([]string{}, s.phaseState.FilledFields...)
	snap.PhaseState.PendingFields = append([]string{}, s.phaseState.PendingFields...)
	snap.PhaseState.SkippablePhases = append([]string{}, s.phaseState.SkippablePhases...)
	snap.SelectedUniverse = s.selectedUniverse.Clone()
	if s.pendingImage != nil {
		img := *s.pendingImage
		snap.PendingImage = &img
	}
	return snap
}

func cloneCollected(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return slices.Clone(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		return cloneCollected(t)
	}
	return v
}

type checkpoint struct {
	Snapshot
	Persisted *entity.Draft `json:"persisted,omitempty"`
}

// Checkpoint serialises the full session so it can be restored later.
func (s *Store) Checkpoint() ([]byte, error) {
	data, err := sonic.Marshal(checkpoint{Snapshot: s.Snapshot(), Persisted: s.persisted})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session checkpoint: %w", err)
	}
	return data, nil
}

// Restore replaces the session state with a checkpoint. The clock and id
// generator are kept.
func (s *Store) Restore(data []byte) error {
	var cp checkpoint
	if err := sonic.Unmarshal(data, &cp); err != nil {
		return fmt.Errorf("failed to unmarshal session checkpoint: %w", err)
	}
	s.Reset()
	s.trackingID = cp.TrackingID
	if cp.Locale != "" {
		s.locale = cp.Locale
	}
	if cp.Mode != "" {
		s.mode = cp.Mode
	}
	if cp.Phase != "" {
		s.phase = cp.Phase
	}
	s.phaseIndex = cp.PhaseIndex
	if cp.Messages != nil {
		s.messages = cp.Messages
	}
	s.draft = cp.Draft
	s.confirmationMode = cp.ConfirmationMode
	s.SetValidation(cp.Validation)
	s.MergeCollected(cp.Collected)
	s.progress = cp.Progress
	s.phaseState = cp.PhaseState
	s.SetVisibleActions(cp.VisibleActions)
	s.SetSuggestions(cp.Suggestions)
	s.selectedUniverse = cp.SelectedUniverse
	s.pendingImage = cp.PendingImage
	s.busy = false
	s.createdID = cp.CreatedID
	s.persisted = cp.Persisted
	// an interrupted stream cannot resume
	s.streaming = Streaming{}
	return nil
}
