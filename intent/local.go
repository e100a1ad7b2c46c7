package intent

import (
	"context"
	"strings"

	"github.com/Twynzen/dymensisCDA-sub002/extract"
	"github.com/Twynzen/dymensisCDA-sub002/types"
)

// Keywords maps each intent to the phrases that trigger it in one locale.
type Keywords map[Intent][]string

// LocalRecognizer matches keyword phrases. Intents are checked in order, so
// "discard" wins over "confirm" when both appear.
type LocalRecognizer struct {
	Order     []Intent
	Keywords  map[types.Locale]Keywords
	Negations map[types.Locale][]string
}

func NewLocalRecognizer() *LocalRecognizer {
	return &LocalRecognizer{
		Order: []Intent{Discard, Regenerate, Adjust, Confirm},
		Keywords: map[types.Locale]Keywords{
			types.LocaleES: {
				Discard:    {"descartar", "descarta", "descártalo", "borrar", "bórralo", "olvídalo", "empezar de cero"},
				Regenerate: {"regenerar", "regenera", "otra versión", "otra vez", "de nuevo", "rehacer", "rehazlo"},
				Adjust:     {"ajustar", "ajusta", "cambiar", "cambia", "modificar", "modifica", "corregir", "corrige", "editar"},
				Confirm:    {"confirmar", "confirmo", "confírmalo", "guardar", "guárdalo", "guarda", "sí", "perfecto", "listo", "adelante", "me gusta"},
			},
			types.LocaleEN: {
				Discard:    {"discard", "delete", "throw it away", "forget it", "start over"},
				Regenerate: {"regenerate", "another version", "try again", "redo"},
				Adjust:     {"adjust", "change", "modify", "edit", "fix"},
				Confirm:    {"confirm", "save", "save it", "yes", "looks good", "perfect", "go ahead", "i like it"},
			},
		},
		Negations: map[types.Locale][]string{
			types.LocaleES: {"no", "nunca", "todavía no", "aún no"},
			types.LocaleEN: {"no", "not", "don't", "do not", "never"},
		},
	}
}

func (r *LocalRecognizer) Recognize(ctx context.Context, req *Request) (Intent, error) {
	_, answer := req.LastExchange()
	text := strings.ToLower(strings.TrimSpace(answer))
	if text == "" {
		return None, nil
	}
	negated := r.matches(text, types.Pick(r.Negations, req.Locale))
	keywords := types.Pick(r.Keywords, req.Locale)
	for _, in := range r.Order {
		if !r.matches(text, keywords[in]) {
			continue
		}
		if in == Confirm && negated {
			return None, nil
		}
		return in, nil
	}
	return None, nil
}

func (r *LocalRecognizer) matches(text string, phrases []string) bool {
	for _, p := range phrases {
		if extract.ContainsKeyword(text, p) {
			return true
		}
	}
	return false
}

// FailbackRecognizer asks each recognizer in order and returns the first
// answer that is not an error.
type FailbackRecognizer struct {
	recognizers []Recognizer
}

func NewFailbackRecognizer(recognizers ...Recognizer) *FailbackRecognizer {
	return &FailbackRecognizer{recognizers: recognizers}
}

func (r *FailbackRecognizer) Recognize(ctx context.Context, req *Request) (Intent, error) {
	var lastErr error
	for _, rec := range r.recognizers {
		in, err := rec.Recognize(ctx, req)
		if err == nil {
			return in, nil
		}
		lastErr = err
	}
	return None, lastErr
}

var (
	_ Recognizer = (*LocalRecognizer)(nil)
	_ Recognizer = (*FailbackRecognizer)(nil)
)
