package dialogue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Twynzen/dymensisCDA-sub002/types"
)

// DefaultSystemPromptTemplate may contain a single "%s" placeholder for the language.
const DefaultSystemPromptTemplate = `You are a creative assistant helping a user design content for a role-playing game: universes with their own stats and rank systems, and the characters who live in them.

Talk like a game master sitting next to the player:
- Acknowledge what the user just told you in one short sentence.
- Ask for at most one or two missing fields at a time, starting with required ones.
- If there are validation errors, explain how to fix them in plain words.
- Offer the example answers when the user seems stuck, but never invent values on their behalf.
- Keep the reply short and avoid bullet lists.
- Reply in %s.
`

const defaultHistoryLimit = 12

var languageNames = map[types.Locale]string{
	types.LocaleES: "Spanish",
	types.LocaleEN: "English",
}

type generatorOptions struct {
	systemPrompt         string
	systemPromptTemplate string
	trimmer              Trimmer
}

type GeneratorOption func(*generatorOptions)

// WithSystemPrompt overrides the system prompt entirely.
func WithSystemPrompt(systemPrompt string) GeneratorOption {
	return func(o *generatorOptions) {
		o.systemPrompt = systemPrompt
	}
}

func WithSystemPromptTemplate(tpl string) GeneratorOption {
	return func(o *generatorOptions) {
		o.systemPromptTemplate = tpl
	}
}

// WithTrimmer bounds how much of the conversation is sent to the model.
func WithTrimmer(trimmer Trimmer) GeneratorOption {
	return func(o *generatorOptions) {
		o.trimmer = trimmer
	}
}

// ChatModelGenerator streams replies from a chat model.
type ChatModelGenerator struct {
	chatModel model.BaseChatModel
	opts      generatorOptions
}

func NewChatModelGenerator(chatModel model.BaseChatModel, opts ...GeneratorOption) *ChatModelGenerator {
	options := generatorOptions{
		systemPromptTemplate: DefaultSystemPromptTemplate,
		trimmer:              KeepSystemLastNTrimmer{N: defaultHistoryLimit},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return &ChatModelGenerator{chatModel: chatModel, opts: options}
}

func (g *ChatModelGenerator) Generate(ctx context.Context, req *Request, onToken TokenFunc) (string, error) {
	messages, err := g.buildPrompt(req)
	if err != nil {
		return "", fmt.Errorf("build dialogue prompt: %w", err)
	}

	stream, err := g.chatModel.Stream(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("LLM stream call failed: %w", err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("LLM stream receive failed: %w", err)
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		sb.WriteString(chunk.Content)
		if onToken != nil {
			onToken(chunk.Content)
		}
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("LLM returned an empty reply")
	}
	slog.Debug("dialogue generated", "target", req.Target, "phase", req.PhaseID, "chars", len(text))
	return text, nil
}

func (g *ChatModelGenerator) systemPrompt(locale types.Locale) string {
	if g.opts.systemPrompt != "" {
		return g.opts.systemPrompt
	}
	tpl := g.opts.systemPromptTemplate
	if tpl == "" {
		tpl = DefaultSystemPromptTemplate
	}
	if strings.Contains(tpl, "%s") {
		return fmt.Sprintf(tpl, types.Pick(languageNames, locale))
	}
	return tpl
}

func (g *ChatModelGenerator) buildPrompt(req *Request) ([]*schema.Message, error) {
	state, err := FormatRequest(req)
	if err != nil {
		return nil, err
	}
	history := req.Messages
	if g.opts.trimmer != nil {
		history = g.opts.trimmer.Trim(history)
	}
	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(g.systemPrompt(req.Locale)), schema.SystemMessage(state))
	for _, m := range history {
		if m != nil && m.Role != schema.System {
			messages = append(messages, m)
		}
	}
	return messages, nil
}

var _ Generator = (*ChatModelGenerator)(nil)
