package entity

import (
	"fmt"
	"slices"

	"github.com/bytedance/sonic"
	"github.com/eino-contrib/jsonschema"

	"github.com/Twynzen/dymensisCDA-sub002/types"
)

type StatDefinition struct {
	Key          string `json:"key" jsonschema:"description=Stable identifier of the stat"`
	Name         string `json:"name" jsonschema:"description=Display name of the stat"`
	Abbreviation string `json:"abbreviation" jsonschema:"description=Three letter abbreviation"`
	Color        string `json:"color" jsonschema:"description=Hex color used to render the stat"`
	Icon         string `json:"icon" jsonschema:"description=Icon name used to render the stat"`
	MinValue     int    `json:"min_value"`
	MaxValue     int    `json:"max_value"`
}

type Universe struct {
	ID              string           `json:"id,omitempty"`
	Name            string           `json:"name" jsonschema:"description=Name of the universe"`
	Theme           string           `json:"theme" jsonschema:"description=Genre or theme such as fantasy or cyberpunk"`
	Description     string           `json:"description,omitempty" jsonschema:"description=Short synopsis"`
	StatDefinitions []StatDefinition `json:"stat_definitions" jsonschema:"description=Stats every character of the universe has"`
	Levels          []string         `json:"levels" jsonschema:"description=Ordered rank names from lowest to highest"`
	Thresholds      []int            `json:"thresholds" jsonschema:"description=Experience needed for each rank"`
	InitialPoints   int              `json:"initial_points" jsonschema:"description=Stat points a new character distributes"`
	CoverImage      string           `json:"cover_image,omitempty"`
	Locations       []string         `json:"locations,omitempty"`
}

type Character struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name" jsonschema:"description=Name of the character"`
	UniverseID  string         `json:"universe_id" jsonschema:"description=Universe the character belongs to"`
	Class       string         `json:"class,omitempty"`
	Race        string         `json:"race,omitempty"`
	Age         int            `json:"age,omitempty"`
	Backstory   string         `json:"backstory,omitempty"`
	Personality []string       `json:"personality,omitempty"`
	Avatar      string         `json:"avatar,omitempty"`
	Stats       map[string]int `json:"stats" jsonschema:"description=Allocated points per stat key"`
	Level       string         `json:"level,omitempty"`
}

// Draft is the entity under construction in a session. Exactly one of
// Universe and Character is set, matching Target.
type Draft struct {
	Target    types.TargetType `json:"target"`
	Universe  *Universe        `json:"universe,omitempty"`
	Character *Character       `json:"character,omitempty"`
}

func (d *Draft) Name() string {
	switch {
	case d == nil:
		return ""
	case d.Universe != nil:
		return d.Universe.Name
	case d.Character != nil:
		return d.Character.Name
	}
	return ""
}

// Document returns the JSON body of the drafted entity.
func (d *Draft) Document() ([]byte, error) {
	switch d.Target {
	case types.TargetUniverse:
		return sonic.Marshal(d.Universe)
	case types.TargetCharacter:
		return sonic.Marshal(d.Character)
	}
	return nil, fmt.Errorf("draft has unsupported target %q", d.Target)
}

// Clone returns a copy that shares no slices with u.
func (u *Universe) Clone() *Universe {
	if u == nil {
		return nil
	}
	out := *u
	out.StatDefinitions = slices.Clone(u.StatDefinitions)
	out.Levels = slices.Clone(u.Levels)
	out.Thresholds = slices.Clone(u.Thresholds)
	out.Locations = slices.Clone(u.Locations)
	return &out
}

// Clone returns a deep copy through the JSON form.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	data, err := sonic.Marshal(d)
	if err != nil {
		return nil
	}
	var out Draft
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil
	}
	return &out
}

// JSONSchema describes the entity built for target.
func JSONSchema(target types.TargetType) (string, error) {
	var s *jsonschema.Schema
	switch target {
	case types.TargetUniverse:
		s = jsonschema.Reflect(&Universe{})
		s.Title = "Universe"
		s.Description = "A role-playing universe with its stats and rank system."
	case types.TargetCharacter:
		s = jsonschema.Reflect(&Character{})
		s.Title = "Character"
		s.Description = "A character living in one universe, with stats allocated from its point pool."
	default:
		return "", fmt.Errorf("no schema for target %q", target)
	}
	data, err := sonic.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON schema: %w", err)
	}
	return string(data), nil
}
