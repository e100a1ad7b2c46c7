package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// TransformFunc turns a captured fragment into a typed value.
type TransformFunc func(raw string) (any, error)

var errEmpty = errors.New("empty value")

var transforms = map[string]TransformFunc{
	"trim":  transformTrim,
	"lower": transformLower,
	"int":   transformInt,
	"list":  transformList,
	"span":  transformSpan,
	"bool":  transformBool,
}

var numberWords = map[string]int{
	"cero": 0, "uno": 1, "una": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
	"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10, "once": 11, "doce": 12,
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
}

var listSeparator = regexp.MustCompile(`(?i)\s*(?:,|;|/|\||\s+y\s+|\s+e\s+|\s+and\s+|\s+&\s+)\s*`)

// rankLadder is the canonical ordering used to expand spans like "E a S".
var rankLadder = []string{"F", "E", "D", "C", "B", "A", "S", "SS", "SSS"}

var spanSeparator = regexp.MustCompile(`(?i)\s+(?:a|to|hasta)\s+`)

func cleanFragment(raw string) string {
	return strings.Trim(strings.TrimSpace(raw), " \t\"'“”«».,;:!?¡¿")
}

func transformTrim(raw string) (any, error) {
	s := cleanFragment(raw)
	if s == "" {
		return nil, errEmpty
	}
	return s, nil
}

func transformLower(raw string) (any, error) {
	s := strings.ToLower(cleanFragment(raw))
	if s == "" {
		return nil, errEmpty
	}
	return strings.Join(strings.Fields(s), " "), nil
}

func transformInt(raw string) (any, error) {
	s := strings.ToLower(cleanFragment(raw))
	if n, ok := numberWords[s]; ok {
		return n, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("not an integer: %q", raw)
	}
	return n, nil
}

func transformBool(raw string) (any, error) {
	switch strings.ToLower(cleanFragment(raw)) {
	case "si", "sí", "yes", "true", "verdadero":
		return true, nil
	case "no", "false", "falso":
		return false, nil
	}
	return nil, fmt.Errorf("not a boolean: %q", raw)
}

func transformList(raw string) (any, error) {
	if span, err := transformSpan(raw); err == nil {
		return span, nil
	}
	parts := listSeparator.Split(strings.TrimSpace(raw), -1)
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = cleanFragment(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, errEmpty
	}
	return out, nil
}

func transformSpan(raw string) (any, error) {
	ends := spanSeparator.Split(cleanFragment(raw), 2)
	if len(ends) != 2 {
		return nil, fmt.Errorf("not a rank span: %q", raw)
	}
	from, to := ladderIndex(ends[0]), ladderIndex(ends[1])
	if from < 0 || to < 0 {
		return nil, fmt.Errorf("unknown rank in span: %q", raw)
	}
	if from > to {
		from, to = to, from
	}
	return append([]string(nil), rankLadder[from:to+1]...), nil
}

func ladderIndex(rank string) int {
	rank = strings.ToUpper(strings.TrimSpace(rank))
	for i, r := range rankLadder {
		if r == rank {
			return i
		}
	}
	return -1
}

// check applies the field rules and the declared type to a transformed value.
func (f *Field) check(v any) error {
	var size float64
	switch val := v.(type) {
	case string:
		if f.Type != TypeString {
			return fmt.Errorf("field %s expects %s, got string", f.Key, f.Type)
		}
		size = float64(utf8.RuneCountInString(val))
	case int:
		if f.Type != TypeNumber {
			return fmt.Errorf("field %s expects %s, got number", f.Key, f.Type)
		}
		size = float64(val)
	case []string:
		if f.Type != TypeArray {
			return fmt.Errorf("field %s expects %s, got array", f.Key, f.Type)
		}
		size = float64(len(val))
	case bool:
		if f.Type != TypeBool {
			return fmt.Errorf("field %s expects %s, got bool", f.Key, f.Type)
		}
		return nil
	default:
		return fmt.Errorf("field %s unsupported value %T", f.Key, v)
	}
	if f.Rules.Min != nil && size < *f.Rules.Min {
		return fmt.Errorf("field %s below minimum %v", f.Key, *f.Rules.Min)
	}
	if f.Rules.Max != nil && size > *f.Rules.Max {
		return fmt.Errorf("field %s above maximum %v", f.Key, *f.Rules.Max)
	}
	return nil
}
