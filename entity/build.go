package entity

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/Twynzen/dymensisCDA-sub002/types"
)

// DefaultInitialPoints is the stat point pool of a universe that never mentions one.
const DefaultInitialPoints = 60

const (
	firstThreshold  = 50
	thresholdGrowth = 1.8
	statMaxValue    = 999
)

// Palette is assigned to stats round-robin by their position in the list.
var Palette = []struct {
	Color string
	Icon  string
}{
	{"#EF4444", "barbell"},
	{"#22C55E", "flash"},
	{"#3B82F6", "heart"},
	{"#A855F7", "bulb"},
	{"#F59E0B", "eye"},
	{"#EC4899", "sparkles"},
	{"#14B8A6", "shield"},
	{"#F97316", "flame"},
}

var accentFold = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
	"Á", "a", "É", "e", "Í", "i", "Ó", "o", "Ú", "u", "Ü", "u", "Ñ", "n",
)

// Build synthesises a draft for target from the collected fields. The result
// depends only on its inputs.
func Build(target types.TargetType, collected map[string]any, universe *Universe) (*Draft, error) {
	switch target {
	case types.TargetUniverse:
		return &Draft{Target: target, Universe: BuildUniverse(collected)}, nil
	case types.TargetCharacter:
		return &Draft{Target: target, Character: BuildCharacter(collected, universe)}, nil
	}
	return nil, fmt.Errorf("cannot build a draft for target %q", target)
}

func BuildUniverse(collected map[string]any) *Universe {
	u := &Universe{
		Name:            stringValue(collected, "name"),
		Theme:           stringValue(collected, "theme"),
		Description:     stringValue(collected, "description"),
		CoverImage:      stringValue(collected, "coverImage"),
		Locations:       listValue(collected, "locations"),
		StatDefinitions: StatDefinitions(listValue(collected, "statNames")),
		Levels:          listValue(collected, "levels"),
		InitialPoints:   DefaultInitialPoints,
	}
	if points, ok := intValue(collected, "initialPoints"); ok && points > 0 {
		u.InitialPoints = points
	}
	if u.Levels == nil {
		u.Levels = []string{}
	}
	u.Thresholds = Thresholds(len(u.Levels))
	return u
}

// StatDefinitions turns stat names into records with round-robin color and icon.
func StatDefinitions(names []string) []StatDefinition {
	defs := make([]StatDefinition, 0, len(names))
	for i, name := range names {
		p := Palette[i%len(Palette)]
		defs = append(defs, StatDefinition{
			Key:          statKey(name),
			Name:         name,
			Abbreviation: abbreviation(name),
			Color:        p.Color,
			Icon:         p.Icon,
			MinValue:     0,
			MaxValue:     statMaxValue,
		})
	}
	return defs
}

// Thresholds returns n rank thresholds: 0, 50, then each previous value times 1.8, rounded.
func Thresholds(n int) []int {
	out := make([]int, 0, max(n, 0))
	for i := 0; i < n; i++ {
		switch i {
		case 0:
			out = append(out, 0)
		case 1:
			out = append(out, firstThreshold)
		default:
			out = append(out, int(math.Round(float64(out[i-1])*thresholdGrowth)))
		}
	}
	return out
}

// BuildCharacter allocates the universe's point pool evenly across its stats
// with floor division.
func BuildCharacter(collected map[string]any, universe *Universe) *Character {
	c := &Character{
		Name:        stringValue(collected, "name"),
		UniverseID:  stringValue(collected, "universeId"),
		Class:       stringValue(collected, "class"),
		Race:        stringValue(collected, "race"),
		Backstory:   stringValue(collected, "backstory"),
		Personality: listValue(collected, "personality"),
		Avatar:      stringValue(collected, "avatar"),
		Stats:       map[string]int{},
	}
	if age, ok := intValue(collected, "age"); ok {
		c.Age = age
	}
	if universe == nil {
		return c
	}
	if c.UniverseID == "" {
		c.UniverseID = universe.ID
	}
	if n := len(universe.StatDefinitions); n > 0 {
		per := universe.InitialPoints / n
		for _, def := range universe.StatDefinitions {
			c.Stats[def.Key] = per
		}
	}
	if len(universe.Levels) > 0 {
		c.Level = universe.Levels[0]
	}
	return c
}

func statKey(name string) string {
	folded := accentFold.Replace(strings.ToLower(strings.TrimSpace(name)))
	var sb strings.Builder
	underscore := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && sb.Len() > 0 {
			sb.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(sb.String(), "_")
}

func abbreviation(name string) string {
	runes := []rune(strings.ToUpper(accentFold.Replace(strings.TrimSpace(name))))
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return strings.ToUpper(string(runes))
}

func stringValue(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return v.String()
	}
	return ""
}

func intValue(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func listValue(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(v) != "" {
			return []string{v}
		}
	}
	return nil
}
