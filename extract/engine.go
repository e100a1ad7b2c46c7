package extract

import (
	"log/slog"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Twynzen/dymensisCDA-sub002/types"
)

const (
	keywordConfidence    = 1.0
	unanchoredConfidence = 0.6
)

// BulkExtraction is the outcome of mining one utterance.
type BulkExtraction struct {
	Values          map[string]any   `json:"values"`
	Completeness    int              `json:"completeness"`
	Extracted       []string         `json:"extracted"`
	MissingRequired []string         `json:"missing_required"`
	MissingOptional []string         `json:"missing_optional"`
	Confidence      float64          `json:"confidence"`
	DetectedTarget  types.TargetType `json:"detected_target"`
	FollowUp        string           `json:"follow_up,omitempty"`
}

// Engine extracts fields from free text. It holds compiled tables only and
// never mutates them, so one Engine can serve any number of sessions.
type Engine struct {
	rules *RuleSet
}

func NewEngine(rules *RuleSet) *Engine {
	return &Engine{rules: rules}
}

// NewDefaultEngine builds an Engine over the embedded tables.
func NewDefaultEngine() (*Engine, error) {
	rs, err := DefaultRules()
	if err != nil {
		return nil, err
	}
	return NewEngine(rs), nil
}

// Fields returns the field table of a target in declaration order.
func (e *Engine) Fields(target types.TargetType) []*Field {
	tr, ok := e.rules.Targets[target]
	if !ok {
		return nil
	}
	return tr.Fields
}

func (e *Engine) Field(target types.TargetType, key string) (*Field, bool) {
	for _, f := range e.Fields(target) {
		if f.Key == key {
			return f, true
		}
	}
	return nil, false
}

// WithDefaults returns collected completed with the table defaults of the
// fields it lacks. collected is not modified.
func (e *Engine) WithDefaults(target types.TargetType, collected map[string]any) map[string]any {
	out := make(map[string]any, len(collected))
	for k, v := range collected {
		out[k] = v
	}
	for _, f := range e.Fields(target) {
		if f.Default == nil {
			continue
		}
		if _, ok := out[f.Key]; !ok {
			out[f.Key] = f.Default
		}
	}
	return out
}

// Extract mines utterance for the fields of target and scores the result
// against the union of collected and the newly extracted values.
func (e *Engine) Extract(utterance string, target types.TargetType, locale types.Locale, collected map[string]any) *BulkExtraction {
	res := &BulkExtraction{
		Values:          map[string]any{},
		Extracted:       []string{},
		MissingRequired: []string{},
		MissingOptional: []string{},
		DetectedTarget:  e.DetectTarget(utterance, locale),
	}
	fields := e.Fields(target)
	if len(fields) == 0 {
		return res
	}

	lowered := strings.ToLower(utterance)
	var confidence float64
	for _, f := range fields {
		v, ok := f.match(utterance)
		if !ok {
			continue
		}
		res.Values[f.Key] = v
		res.Extracted = append(res.Extracted, f.Key)
		if f.mentioned(lowered, locale) {
			confidence += keywordConfidence
		} else {
			confidence += unanchoredConfidence
		}
	}
	if len(res.Extracted) > 0 {
		res.Confidence = math.Round(confidence/float64(len(res.Extracted))*100) / 100
	}

	union := make(map[string]any, len(collected)+len(res.Values))
	for k, v := range collected {
		union[k] = v
	}
	for k, v := range res.Values {
		union[k] = v
	}
	filled := types.FilledFields(union)
	res.Completeness = e.Completeness(target, filled)
	res.MissingRequired, res.MissingOptional = e.Missing(target, filled)
	if len(res.MissingRequired) > 0 {
		if f, ok := e.Field(target, res.MissingRequired[0]); ok {
			res.FollowUp = types.Pick(f.Ask, locale)
		}
	}
	return res
}

// Completeness is the weighted share of filled fields, rounded to [0,100].
func (e *Engine) Completeness(target types.TargetType, filled types.FieldSet) int {
	var total, have float64
	for _, f := range e.Fields(target) {
		total += f.Weight
		if filled.Has(f.Key) {
			have += f.Weight
		}
	}
	if total == 0 {
		return 0
	}
	score := int(math.Round(100 * have / total))
	return min(max(score, 0), 100)
}

// Missing partitions unfilled fields into required and optional, in table order.
func (e *Engine) Missing(target types.TargetType, filled types.FieldSet) (required, optional []string) {
	required, optional = []string{}, []string{}
	for _, f := range e.Fields(target) {
		if filled.Has(f.Key) {
			continue
		}
		if f.Required {
			required = append(required, f.Key)
		} else {
			optional = append(optional, f.Key)
		}
	}
	return required, optional
}

// MissingRequired lists the required fields of target not in filled.
func (e *Engine) MissingRequired(target types.TargetType, filled types.FieldSet) []string {
	required, _ := e.Missing(target, filled)
	return required
}

// DetectTarget counts per-target keyword hits; ties and zero hits are unknown.
func (e *Engine) DetectTarget(utterance string, locale types.Locale) types.TargetType {
	lowered := strings.ToLower(utterance)
	best, bestHits, tie := types.TargetUnknown, 0, false
	for _, target := range []types.TargetType{types.TargetUniverse, types.TargetCharacter} {
		tr, ok := e.rules.Targets[target]
		if !ok {
			continue
		}
		hits := 0
		for _, kw := range types.Pick(tr.Keywords, locale) {
			if ContainsKeyword(lowered, kw) {
				hits++
			}
		}
		switch {
		case hits > bestHits:
			best, bestHits, tie = target, hits, false
		case hits == bestHits && hits > 0:
			tie = true
		}
	}
	if tie || bestHits == 0 {
		return types.TargetUnknown
	}
	return best
}

func (f *Field) match(utterance string) (any, bool) {
	for _, re := range f.compiled {
		m := re.FindStringSubmatch(utterance)
		if m == nil {
			continue
		}
		raw := m[0]
		for _, group := range m[1:] {
			if group != "" {
				raw = group
				break
			}
		}
		v, err := transforms[f.Transform](raw)
		if err == nil {
			err = f.check(v)
		}
		if err != nil {
			slog.Debug("Field rejected", "field", f.Key, "raw", raw, "error", err)
			return nil, false
		}
		return v, true
	}
	return nil, false
}

func (f *Field) mentioned(lowered string, locale types.Locale) bool {
	for _, kw := range types.Pick(f.Keywords, locale) {
		if ContainsKeyword(lowered, kw) {
			return true
		}
	}
	return false
}

// ContainsKeyword reports whether keyword occurs in text delimited by non-letters.
// Both arguments are expected in lower case.
func ContainsKeyword(text, keyword string) bool {
	if keyword == "" {
		return false
	}
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], keyword)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(keyword)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
