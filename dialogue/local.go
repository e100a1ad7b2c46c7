package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/Twynzen/dymensisCDA-sub002/types"
)

var (
	askFieldTemplate = map[types.Locale]string{
		types.LocaleES: "¿Me cuentas %s?",
		types.LocaleEN: "Could you tell me the %s?",
	}
	noted = map[types.Locale]string{
		types.LocaleES: "¡Anotado!",
		types.LocaleEN: "Got it!",
	}
	keepGoing = map[types.Locale]string{
		types.LocaleES: "Sigue contándome más detalles.",
		types.LocaleEN: "Keep telling me more details.",
	}
	fixErrors = map[types.Locale]string{
		types.LocaleES: "Antes de guardar hay que corregir esto:",
		types.LocaleEN: "Before saving, please fix this:",
	}
	progressTemplate = map[types.Locale]string{
		types.LocaleES: "(%d%% completado)",
		types.LocaleEN: "(%d%% complete)",
	}
)

// LocalGenerator writes follow-up questions from the request alone, without a
// model. Tokens are emitted word by word.
type LocalGenerator struct{}

func NewLocalGenerator() *LocalGenerator {
	return &LocalGenerator{}
}

func (g *LocalGenerator) Generate(ctx context.Context, req *Request, onToken TokenFunc) (string, error) {
	text := g.compose(req)
	for _, tok := range strings.SplitAfter(text, " ") {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if onToken != nil && tok != "" {
			onToken(tok)
		}
	}
	return text, nil
}

func (g *LocalGenerator) compose(req *Request) string {
	loc := req.Locale
	var parts []string
	if len(req.Validation.Errors) > 0 {
		parts = append(parts, types.Pick(fixErrors, loc))
		parts = append(parts, req.Validation.Errors[0])
		return strings.Join(parts, " ")
	}
	if len(req.Collected) > 0 && req.LastUserInput() != "" {
		parts = append(parts, types.Pick(noted, loc))
	}
	switch {
	case req.FollowUp != "":
		parts = append(parts, req.FollowUp)
	case len(req.MissingFields) > 0:
		f := req.MissingFields[0]
		if f.Description != "" {
			parts = append(parts, f.Description)
		} else {
			parts = append(parts, fmt.Sprintf(types.Pick(askFieldTemplate, loc), strings.ToLower(f.DisplayName)))
		}
	case req.PhaseIntro != "":
		parts = append(parts, req.PhaseIntro)
	default:
		parts = append(parts, types.Pick(keepGoing, loc))
	}
	if req.Completeness > 0 {
		parts = append(parts, fmt.Sprintf(types.Pick(progressTemplate, loc), req.Completeness))
	}
	return strings.Join(parts, " ")
}

// FailbackGenerator tries each generator in order and returns the first success.
type FailbackGenerator struct {
	generators []Generator
}

func NewFailbackGenerator(generators ...Generator) *FailbackGenerator {
	return &FailbackGenerator{generators: generators}
}

func (g *FailbackGenerator) Generate(ctx context.Context, req *Request, onToken TokenFunc) (string, error) {
	var lastErr error
	for i, generator := range g.generators {
		if i > 0 && req.OnRetry != nil {
			req.OnRetry()
		}
		text, err := generator.Generate(ctx, req, onToken)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no generators configured")
	}
	return "", fmt.Errorf("all dialogue generators failed: %w", lastErr)
}

var (
	_ Generator = (*LocalGenerator)(nil)
	_ Generator = (*FailbackGenerator)(nil)
)
