package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Twynzen/dymensisCDA-sub002/structured"
)

const (
	recognizeToolName        = "recognize_intent"
	recognizeToolDescription = "Decide what the user wants to do with the draft under review: confirm, adjust, regenerate, discard or none."
)

// DefaultSystemPromptTemplate may contain a single "%s" placeholder for the tool name.
const DefaultSystemPromptTemplate = `
You help a role-playing content builder understand its user while a generated draft (a universe or a character) is shown for review.

Read the assistant's last message together with the user's answer. Judge the pair, not isolated words.

Choose one intent:
- confirm: the user explicitly accepts the draft and wants it saved ("save it", "looks good, confirm").
- adjust: the user wants to change specific parts of the draft, or gives new values for its fields.
- regenerate: the user wants a different version built from the same information.
- discard: the user wants to throw the draft away.
- none: small talk, questions about the draft, or anything else.

A bare "yes" or "ok" is confirm only when the assistant just asked whether to save.

Call the '%s' tool with the result.
`

type recognizeOutput struct {
	Intent Intent `json:"intent" jsonschema:"required,enum=confirm,enum=adjust,enum=regenerate,enum=discard,enum=none,description=What the user wants done with the draft"`
}

type toolOptions struct {
	systemPromptTemplate string
}

type ToolOption func(*toolOptions)

func WithSystemPromptTemplate(tpl string) ToolOption {
	return func(o *toolOptions) {
		o.systemPromptTemplate = tpl
	}
}

// ToolBasedRecognizer asks a chat model for the intent through a forced tool call.
type ToolBasedRecognizer struct {
	chain *structured.Chain[*Request, recognizeOutput]
}

func NewToolBasedRecognizer(chatModel model.ToolCallingChatModel, opts ...ToolOption) (*ToolBasedRecognizer, error) {
	options := toolOptions{systemPromptTemplate: DefaultSystemPromptTemplate}
	for _, opt := range opts {
		opt(&options)
	}
	systemPrompt := options.systemPromptTemplate
	if strings.Contains(systemPrompt, "%s") {
		systemPrompt = fmt.Sprintf(systemPrompt, recognizeToolName)
	}
	chain, err := structured.NewChain[*Request, recognizeOutput](
		chatModel,
		func(ctx context.Context, req *Request) ([]*schema.Message, error) {
			return []*schema.Message{
				schema.SystemMessage(systemPrompt),
				schema.UserMessage(formatRequest(req)),
			}, nil
		},
		recognizeToolName,
		recognizeToolDescription,
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedRecognizer{chain: chain}, nil
}

func (r *ToolBasedRecognizer) Recognize(ctx context.Context, req *Request) (Intent, error) {
	out, err := r.chain.Invoke(ctx, req)
	if err != nil {
		return None, err
	}
	switch out.Intent {
	case Confirm, Adjust, Regenerate, Discard, None:
		return out.Intent, nil
	}
	return None, fmt.Errorf("unexpected intent %q returned by %s", out.Intent, recognizeToolName)
}

func formatRequest(req *Request) string {
	question, answer := req.LastExchange()
	sections := []string{fmt.Sprintf("# Draft type:\n%s", req.Target)}
	if req.Draft != "" {
		sections = append(sections, fmt.Sprintf("# Draft JSON:\n```json\n%s\n```", req.Draft))
	}
	sections = append(sections, "# Latest Dialogue:")
	if question != "" {
		sections = append(sections, fmt.Sprintf("## Assistant:\n%s", question))
	}
	sections = append(sections, fmt.Sprintf("## User:\n%s", answer))
	return strings.Join(sections, "\n\n")
}

var _ Recognizer = (*ToolBasedRecognizer)(nil)
