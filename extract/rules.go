package extract

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Twynzen/dymensisCDA-sub002/types"
)

//go:embed rules.yaml
var defaultRules []byte

type ValueType string

const (
	TypeString ValueType = "string"
	TypeNumber ValueType = "number"
	TypeBool   ValueType = "bool"
	TypeArray  ValueType = "array"
	TypeObject ValueType = "object"
)

// Rules bound a transformed value: numbers by value, arrays by length, strings by rune count.
type Rules struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

// Field describes how one field of a target type is found in free text.
type Field struct {
	Key       string                    `yaml:"key"`
	Display   map[types.Locale]string   `yaml:"display"`
	Required  bool                      `yaml:"required"`
	Type      ValueType                 `yaml:"type"`
	Patterns  []string                  `yaml:"patterns"`
	Keywords  map[types.Locale][]string `yaml:"keywords"`
	Transform string                    `yaml:"transform"`
	Rules     Rules                     `yaml:"rules"`
	Default   any                       `yaml:"default"`
	Weight    float64                   `yaml:"weight"`
	Ask       map[types.Locale]string   `yaml:"ask"`

	compiled []*regexp.Regexp
}

func (f *Field) DisplayName(locale types.Locale) string {
	if name := types.Pick(f.Display, locale); name != "" {
		return name
	}
	return f.Key
}

func (f *Field) Info(locale types.Locale) types.FieldInfo {
	return types.FieldInfo{
		Key:         f.Key,
		DisplayName: f.DisplayName(locale),
		Description: types.Pick(f.Ask, locale),
		Required:    f.Required,
	}
}

type TargetRules struct {
	Keywords map[types.Locale][]string `yaml:"keywords"`
	Fields   []*Field                  `yaml:"fields"`
}

type RuleSet struct {
	Targets map[types.TargetType]*TargetRules `yaml:"targets"`
}

// ParseRules decodes a YAML rule table.
func ParseRules(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parsing extraction rules: %w", err)
	}
	if err := rs.compile(); err != nil {
		return nil, fmt.Errorf("parsing extraction rules: %w", err)
	}
	return &rs, nil
}

// LoadRules reads a YAML rule table from disk.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading extraction rules: %w", err)
	}
	return ParseRules(data)
}

// DefaultRules returns the rule table compiled into the binary.
func DefaultRules() (*RuleSet, error) {
	return ParseRules(defaultRules)
}

func (rs *RuleSet) compile() error {
	if len(rs.Targets) == 0 {
		return fmt.Errorf("no targets defined")
	}
	for target, tr := range rs.Targets {
		if tr == nil || len(tr.Fields) == 0 {
			return fmt.Errorf("target %s has no fields", target)
		}
		seen := make(map[string]struct{}, len(tr.Fields))
		for i, f := range tr.Fields {
			if strings.TrimSpace(f.Key) == "" {
				return fmt.Errorf("target %s field %d key is required", target, i)
			}
			if _, dup := seen[f.Key]; dup {
				return fmt.Errorf("target %s duplicate field %s", target, f.Key)
			}
			seen[f.Key] = struct{}{}
			if f.Weight <= 0 {
				return fmt.Errorf("target %s field %s weight must be positive", target, f.Key)
			}
			if f.Type == "" {
				f.Type = TypeString
			}
			if f.Transform == "" {
				f.Transform = defaultTransform(f.Type)
			}
			if _, ok := transforms[f.Transform]; !ok {
				return fmt.Errorf("target %s field %s unknown transform %q", target, f.Key, f.Transform)
			}
			f.compiled = make([]*regexp.Regexp, 0, len(f.Patterns))
			for j, p := range f.Patterns {
				re, err := regexp.Compile(p)
				if err != nil {
					return fmt.Errorf("target %s field %s pattern %d: %w", target, f.Key, j, err)
				}
				f.compiled = append(f.compiled, re)
			}
		}
	}
	return nil
}

func defaultTransform(t ValueType) string {
	switch t {
	case TypeNumber:
		return "int"
	case TypeArray:
		return "list"
	case TypeBool:
		return "bool"
	default:
		return "trim"
	}
}
