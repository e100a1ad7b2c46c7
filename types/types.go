package types

import (
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
)

// Mode is the kind of creation flow a session is running.
type Mode string

const (
	ModeIdle      Mode = "idle"
	ModeUniverse  Mode = "universe"
	ModeCharacter Mode = "character"
	ModeAction    Mode = "action"
)

// Target returns the entity type built by the mode, or TargetUnknown.
func (m Mode) Target() TargetType {
	switch m {
	case ModeUniverse:
		return TargetUniverse
	case ModeCharacter:
		return TargetCharacter
	default:
		return TargetUnknown
	}
}

type Phase string

const (
	PhaseGathering  Phase = "gathering"
	PhaseGenerating Phase = "generating"
	PhaseReviewing  Phase = "reviewing"
	PhaseAdjusting  Phase = "adjusting"
	PhaseConfirmed  Phase = "confirmed"
)

type TargetType string

const (
	TargetUniverse  TargetType = "universe"
	TargetCharacter TargetType = "character"
	TargetUnknown   TargetType = "unknown"
)

type Locale string

const (
	LocaleES Locale = "es"
	LocaleEN Locale = "en"
)

// Pick returns the entry for the locale, falling back to Spanish and then to any entry.
func Pick[V any](m map[Locale]V, locale Locale) V {
	if v, ok := m[locale]; ok {
		return v
	}
	if v, ok := m[LocaleES]; ok {
		return v
	}
	var zero V
	for _, v := range m {
		return v
	}
	return zero
}

// Message is one entry of the session log.
type Message struct {
	ID        string          `json:"id"`
	Role      schema.RoleType `json:"role"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}

func (m Message) ToSchema() *schema.Message {
	return &schema.Message{Role: m.Role, Content: m.Content}
}

type FieldInfo struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// Validation holds the result of a draft validation pass.
type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v Validation) Blocking() bool {
	return len(v.Errors) > 0
}

// FieldSet is the set of field keys with a present value.
type FieldSet map[string]struct{}

func NewFieldSet(keys ...string) FieldSet {
	s := make(FieldSet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// FilledFields returns the keys of collected whose value is present.
func FilledFields(collected map[string]any) FieldSet {
	s := make(FieldSet, len(collected))
	for k, v := range collected {
		if IsPresent(v) {
			s[k] = struct{}{}
		}
	}
	return s
}

func (s FieldSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

func (s FieldSet) HasAll(keys []string) bool {
	for _, k := range keys {
		if !s.Has(k) {
			return false
		}
	}
	return true
}

// Keys returns the keys in lexical order.
func (s FieldSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsPresent reports whether a collected value counts as filled.
// Blank strings and empty collections are absent; numbers and booleans are always present.
func IsPresent(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(val) != ""
	case []string:
		return len(val) > 0
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
