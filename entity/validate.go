package entity

import (
	"github.com/Twynzen/dymensisCDA-sub002/types"
)

type localized map[types.Locale]string

var (
	msgUniverseName = localized{
		types.LocaleES: `Falta el nombre del universo. Escribe, por ejemplo: "se llama Eldoria".`,
		types.LocaleEN: `The universe needs a name. Try: "it is called Eldoria".`,
	}
	msgUniverseTheme = localized{
		types.LocaleES: `Falta la temática del universo. Escribe, por ejemplo: "es de fantasía".`,
		types.LocaleEN: `The universe needs a theme. Try: "it is a fantasy universe".`,
	}
	msgCharacterName = localized{
		types.LocaleES: `Falta el nombre del personaje. Escribe, por ejemplo: "se llama Kael".`,
		types.LocaleEN: `The character needs a name. Try: "their name is Kael".`,
	}
	msgCharacterUniverse = localized{
		types.LocaleES: "El personaje no pertenece a ningún universo. Selecciona uno antes de guardar.",
		types.LocaleEN: "The character does not belong to a universe. Select one before saving.",
	}
	msgNoDraft = localized{
		types.LocaleES: "No hay ningún borrador que validar.",
		types.LocaleEN: "There is no draft to validate.",
	}

	warnNoStats = localized{
		types.LocaleES: "El universo no define estadísticas; los personajes no tendrán puntos que repartir.",
		types.LocaleEN: "The universe defines no stats; characters will have no points to spend.",
	}
	warnNoLevels = localized{
		types.LocaleES: "El universo no tiene sistema de rangos.",
		types.LocaleEN: "The universe has no rank system.",
	}
	warnNoCover = localized{
		types.LocaleES: "El universo no tiene imagen de portada.",
		types.LocaleEN: "The universe has no cover image.",
	}
	warnNoCharacterStats = localized{
		types.LocaleES: "El universo del personaje no define estadísticas.",
		types.LocaleEN: "The character's universe defines no stats.",
	}
	warnNoBackstory = localized{
		types.LocaleES: "El personaje no tiene historia.",
		types.LocaleEN: "The character has no backstory.",
	}
	warnNoAvatar = localized{
		types.LocaleES: "El personaje no tiene avatar.",
		types.LocaleEN: "The character has no avatar.",
	}
)

// Validate reports missing required fields as errors and missing enrichments
// as warnings, worded for locale.
func Validate(d *Draft, locale types.Locale) types.Validation {
	v := types.Validation{Errors: []string{}, Warnings: []string{}}
	errorf := func(m localized) { v.Errors = append(v.Errors, types.Pick(m, locale)) }
	warnf := func(m localized) { v.Warnings = append(v.Warnings, types.Pick(m, locale)) }

	switch {
	case d == nil:
		errorf(msgNoDraft)
	case d.Universe != nil:
		u := d.Universe
		if u.Name == "" {
			errorf(msgUniverseName)
		}
		if u.Theme == "" {
			errorf(msgUniverseTheme)
		}
		if len(u.StatDefinitions) == 0 {
			warnf(warnNoStats)
		}
		if len(u.Levels) == 0 {
			warnf(warnNoLevels)
		}
		if u.CoverImage == "" {
			warnf(warnNoCover)
		}
	case d.Character != nil:
		c := d.Character
		if c.Name == "" {
			errorf(msgCharacterName)
		}
		if c.UniverseID == "" {
			errorf(msgCharacterUniverse)
		}
		if len(c.Stats) == 0 {
			warnf(warnNoCharacterStats)
		}
		if c.Backstory == "" {
			warnf(warnNoBackstory)
		}
		if c.Avatar == "" {
			warnf(warnNoAvatar)
		}
	default:
		errorf(msgNoDraft)
	}
	return v
}
