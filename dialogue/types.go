package dialogue

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/Twynzen/dymensisCDA-sub002/types"
)

// TokenFunc receives each chunk of a reply as it is produced.
type TokenFunc func(token string)

// Request is everything a generator may use to write the next assistant turn.
type Request struct {
	Target       types.TargetType
	Locale       types.Locale
	Phase        types.Phase
	PhaseID      string
	PhaseIntro   string
	Completeness int

	// Messages is the role-tagged conversation so far, oldest first.
	Messages      []*schema.Message
	Collected     map[string]any
	MissingFields []types.FieldInfo
	Validation    types.Validation
	FollowUp      string
	Suggestions   []string

	// OnRetry runs before a fallback generator starts, so partial output of
	// the failed one can be discarded.
	OnRetry func()
}

// LastUserInput returns the content of the newest user message.
func (r *Request) LastUserInput() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if m := r.Messages[i]; m != nil && m.Role == schema.User {
			return m.Content
		}
	}
	return ""
}

type Generator interface {
	Generate(ctx context.Context, req *Request, onToken TokenFunc) (string, error)
}
