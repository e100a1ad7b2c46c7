package session

import (
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/Twynzen/dymensisCDA-sub002/action"
	"github.com/Twynzen/dymensisCDA-sub002/entity"
	"github.com/Twynzen/dymensisCDA-sub002/phase"
	"github.com/Twynzen/dymensisCDA-sub002/types"
)

const throughputEvery = 10

// Image is an uploaded image that has not been assigned to a slot yet.
type Image struct {
	Ref      string `json:"ref"`
	MimeType string `json:"mime_type"`
	Size     int    `json:"size"`
}

// Streaming is the state of an in-flight assistant reply.
type Streaming struct {
	Active          bool      `json:"active"`
	Buffer          string    `json:"buffer"`
	TokenCount      int       `json:"token_count"`
	StartedAt       time.Time `json:"started_at"`
	TokensPerSecond float64   `json:"tokens_per_second"`
}

// Store is the state of one creation flow. It is not safe for concurrent
// use; callers serialise access per session.
type Store struct {
	now   func() time.Time
	newID func() string

	trackingID       string
	locale           types.Locale
	mode             types.Mode
	phase            types.Phase
	phaseIndex       int
	messages         []types.Message
	draft            *entity.Draft
	confirmationMode bool
	validation       types.Validation
	collected        map[string]any
	filled           types.FieldSet
	progress         int
	phaseState       phase.State
	visibleActions   []action.Action
	suggestions      []string
	selectedUniverse *entity.Universe
	pendingImage     *Image
	busy             bool
	createdID        string
	persisted        *entity.Draft
	streaming        Streaming
}

type Option func(*Store)

// WithClock replaces the wall clock used for timestamps and throughput.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func WithLocale(locale types.Locale) Option {
	return func(s *Store) {
		if locale != "" {
			s.locale = locale
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		now:    time.Now,
		newID:  uuid.NewString,
		locale: types.LocaleES,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

// Reset returns every slot except the locale and the injected clock and id
// generator to its initial value.
func (s *Store) Reset() {
	s.trackingID = ""
	s.mode = types.ModeIdle
	s.phase = types.PhaseGathering
	s.phaseIndex = 0
	s.messages = []types.Message{}
	s.draft = nil
	s.confirmationMode = false
	s.validation = types.Validation{Errors: []string{}, Warnings: []string{}}
	s.collected = map[string]any{}
	s.filled = types.FieldSet{}
	s.progress = 0
	s.phaseState = phase.State{FilledFields: []string{}, PendingFields: []string{}, SkippablePhases: []string{}}
	s.visibleActions = []action.Action{}
	s.suggestions = []string{}
	s.selectedUniverse = nil
	s.pendingImage = nil
	s.busy = false
	s.createdID = ""
	s.persisted = nil
	s.streaming = Streaming{}
}

// AddMessage appends a message with a fresh id and the current time.
func (s *Store) AddMessage(role schema.RoleType, content string) types.Message {
	msg := types.Message{
		ID:        s.newID(),
		Role:      role,
		Content:   content,
		CreatedAt: s.now(),
	}
	messages := make([]types.Message, len(s.messages), len(s.messages)+1)
	copy(messages, s.messages)
	s.messages = append(messages, msg)
	return msg
}

// UpdateLastAssistantMessage replaces the content of the last message when it
// is an assistant message. It is a no-op otherwise.
func (s *Store) UpdateLastAssistantMessage(content string) bool {
	n := len(s.messages)
	if n == 0 || s.messages[n-1].Role != schema.Assistant {
		return false
	}
	messages := make([]types.Message, n)
	copy(messages, s.messages)
	messages[n-1].Content = content
	s.messages = messages
	return true
}

func (s *Store) StartStreaming() {
	s.streaming = Streaming{Active: true, StartedAt: s.now()}
}

// AppendStreamingToken adds tok to the buffer. Tokens arriving after the
// stream was finished or cancelled are dropped.
func (s *Store) AppendStreamingToken(tok string) {
	if !s.streaming.Active {
		return
	}
	st := s.streaming
	st.Buffer += tok
	st.TokenCount++
	if st.TokenCount%throughputEvery == 0 {
		if elapsed := s.now().Sub(st.StartedAt).Seconds(); elapsed > 0 {
			st.TokensPerSecond = float64(st.TokenCount) / elapsed
		}
	}
	s.streaming = st
}

// FinishStreaming turns a non-empty buffer into one assistant message and
// clears the stream. Calling it again is a no-op.
func (s *Store) FinishStreaming() (types.Message, bool) {
	buf := s.streaming.Buffer
	s.streaming = Streaming{}
	if buf == "" {
		return types.Message{}, false
	}
	return s.AddMessage(schema.Assistant, buf), true
}

// CancelStreaming discards the buffer without producing a message.
func (s *Store) CancelStreaming() {
	s.streaming = Streaming{}
}

// SetMode switches the flow kind. Switching to idle resets the session.
func (s *Store) SetMode(mode types.Mode) {
	if mode == types.ModeIdle {
		s.Reset()
		return
	}
	s.mode = mode
}

func (s *Store) SetTrackingID(id string) { s.trackingID = id }
func (s *Store) SetPhase(p types.Phase) { s.phase = p }
func (s *Store) SetPhaseIndex(i int) { s.phaseIndex = max(i, 0) }
func (s *Store) SetConfirmationMode(on bool) { s.confirmationMode = on }
func (s *Store) SetBusy(on bool) { s.busy = on }
func (s *Store) SetProgress(p int) { s.progress = min(max(p, 0), 100) }
func (s *Store) SetCreatedID(id string) { s.createdID = id }
func (s *Store) SetPendingImage(img *Image) { s.pendingImage = img }
func (s *Store) SetPhaseState(st phase.State) { s.phaseState = st }

func (s *Store) SetDraft(d *entity.Draft) {
	s.draft = d
}

// SetPersisted records the draft as last stored under the created id.
func (s *Store) SetPersisted(d *entity.Draft) {
	s.persisted = d.Clone()
}

func (s *Store) SetValidation(v types.Validation) {
	s.validation = types.Validation{
		Errors:   append([]string{}, v.Errors...),
		Warnings: append([]string{}, v.Warnings...),
	}
}

func (s *Store) SetVisibleActions(actions []action.Action) {
	s.visibleActions = append([]action.Action{}, actions...)
}

func (s *Store) SetSuggestions(suggestions []string) {
	s.suggestions = append([]string{}, suggestions...)
}

func (s *Store) SetSelectedUniverse(u *entity.Universe) {
	s.selectedUniverse = u
}

// MergeCollected overwrites collected fields with values. Keys are never
// removed, so the filled set only grows.
func (s *Store) MergeCollected(values map[string]any) {
	collected := make(map[string]any, len(s.collected)+len(values))
	for k, v := range s.collected {
		collected[k] = v
	}
	for k, v := range values {
		if types.IsPresent(v) {
			collected[k] = v
		}
	}
	s.collected = collected
	s.filled = types.FilledFields(collected)
}

// ClearCollected drops all collected fields.
func (s *Store) ClearCollected() {
	s.collected = map[string]any{}
	s.filled = types.FieldSet{}
	s.progress = 0
}

func (s *Store) TrackingID() string { return s.trackingID }
func (s *Store) Locale() types.Locale { return s.locale }
func (s *Store) Mode() types.Mode { return s.mode }
func (s *Store) Phase() types.Phase { return s.phase }
func (s *Store) PhaseIndex() int { return s.phaseIndex }
func (s *Store) Draft() *entity.Draft { return s.draft }
func (s *Store) Persisted() *entity.Draft { return s.persisted }
func (s *Store) ConfirmationMode() bool { return s.confirmationMode }
func (s *Store) Progress() int { return s.progress }
func (s *Store) PhaseState() phase.State { return s.phaseState }
func (s *Store) SelectedUniverse() *entity.Universe { return s.selectedUniverse }
func (s *Store) PendingImage() *Image { return s.pendingImage }
func (s *Store) Busy() bool { return s.busy }
func (s *Store) CreatedID() string { return s.createdID }
func (s *Store) Streaming() Streaming { return s.streaming }
func (s *Store) HasPendingImage() bool { return s.pendingImage != nil }
func (s *Store) HasSelectedUniverse() bool { return s.selectedUniverse != nil }

func (s *Store) Messages() []types.Message {
	return append([]types.Message{}, s.messages...)
}

func (s *Store) Validation() types.Validation {
	return types.Validation{
		Errors:   append([]string{}, s.validation.Errors...),
		Warnings: append([]string{}, s.validation.Warnings...),
	}
}

func (s *Store) Collected() map[string]any {
	out := make(map[string]any, len(s.collected))
	for k, v := range s.collected {
		out[k] = v
	}
	return out
}

func (s *Store) Filled() types.FieldSet {
	out := make(types.FieldSet, len(s.filled))
	for k := range s.filled {
		out[k] = struct{}{}
	}
	return out
}

func (s *Store) VisibleActions() []action.Action {
	return append([]action.Action{}, s.visibleActions...)
}

func (s *Store) Suggestions() []string {
	return append([]string{}, s.suggestions...)
}

// LastUserMessage returns the content of the most recent user message.
func (s *Store) LastUserMessage() string {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == schema.User {
			return s.messages[i].Content
		}
	}
	return ""
}

// History returns the message log in model form.
func (s *Store) History() []*schema.Message {
	out := make([]*schema.Message, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, m.ToSchema())
	}
	return out
}

var _ action.SessionView = (*Store)(nil)
