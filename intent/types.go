package intent

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/Twynzen/dymensisCDA-sub002/types"
)

// Intent is what the user wants done with a draft under review.
type Intent string

const (
	Confirm    Intent = "confirm"
	Adjust     Intent = "adjust"
	Regenerate Intent = "regenerate"
	Discard    Intent = "discard"
	None       Intent = "none"
)

type Request struct {
	Locale types.Locale
	Target types.TargetType
	// Messages holds the recent conversation, oldest first.
	Messages []*schema.Message
	// Draft is the JSON document of the draft under review.
	Draft string
}

// LastExchange returns the newest user message and the assistant message before it.
func (r *Request) LastExchange() (question, answer string) {
	i := len(r.Messages) - 1
	for ; i >= 0; i-- {
		if m := r.Messages[i]; m != nil && m.Role == schema.User {
			answer = m.Content
			break
		}
	}
	for i--; i >= 0; i-- {
		if m := r.Messages[i]; m != nil && m.Role == schema.Assistant {
			question = m.Content
			break
		}
	}
	return question, answer
}

type Recognizer interface {
	Recognize(ctx context.Context, req *Request) (Intent, error)
}
