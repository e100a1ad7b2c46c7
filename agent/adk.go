package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"

	"github.com/Twynzen/dymensisCDA-sub002/session"
)

var _ adk.Agent = (*Agent)(nil)

// Agent exposes one session of a Service as an adk.Agent. Runs on the same
// Agent are serialised.
type Agent struct {
	name        string
	description string
	svc         *Service

	mu    sync.Mutex
	store *session.Store
}

func NewAgent(name, description string, svc *Service, store *session.Store) *Agent {
	return &Agent{
		name:        name,
		description: description,
		svc:         svc,
		store:       store,
	}
}

func (a *Agent) Name(ctx context.Context) string {
	return a.name
}

func (a *Agent) Description(ctx context.Context) string {
	return a.description
}

func (a *Agent) Store() *session.Store {
	return a.store
}

func (a *Agent) Run(ctx context.Context, input *adk.AgentInput, options ...adk.AgentRunOption) *adk.AsyncIterator[*adk.AgentEvent] {
	iter, gen := adk.NewAsyncIteratorPair[*adk.AgentEvent]()
	go func() {
		defer func() {
			e := recover()
			if e != nil {
				gen.Send(&adk.AgentEvent{
					AgentName: a.name,
					Err:       fmt.Errorf("recover from panic: %v", e),
				})
			}
			gen.Close()
		}()
		if input == nil || len(input.Messages) == 0 {
			gen.Send(&adk.AgentEvent{
				AgentName: a.name,
				Err:       fmt.Errorf("no messages in input"),
			})
			return
		}

		a.mu.Lock()
		defer a.mu.Unlock()

		lastID := ""
		if msgs := a.store.Messages(); len(msgs) > 0 {
			lastID = msgs[len(msgs)-1].ID
		}
		err := a.svc.ProcessMessage(ctx, a.store, input.Messages[len(input.Messages)-1].Content)
		// a message that starts a new flow resets the log, so lastID may be gone
		msgs := a.store.Messages()
		start := 0
		for i, m := range msgs {
			if m.ID == lastID {
				start = i + 1
			}
		}
		sent := 0
		for _, m := range msgs[start:] {
			if m.Role != schema.Assistant {
				continue
			}
			gen.Send(&adk.AgentEvent{
				AgentName: a.name,
				Output: &adk.AgentOutput{
					MessageOutput: &adk.MessageVariant{
						IsStreaming: false,
						Message:     m.ToSchema(),
						Role:        schema.Assistant,
					},
				},
			})
			sent++
		}
		if err != nil && sent == 0 {
			gen.Send(&adk.AgentEvent{
				AgentName: a.name,
				Err:       fmt.Errorf("process message failed: %w", err),
			})
		}
	}()
	return iter
}
