package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Twynzen/dymensisCDA-sub002/types"
)

func reqWith(locale types.Locale, answer string) *Request {
	return &Request{
		Locale: locale,
		Target: types.TargetUniverse,
		Messages: []*schema.Message{
			schema.AssistantMessage("¿Lo guardo?", nil),
			schema.UserMessage(answer),
		},
	}
}

func TestLocalRecognizer(t *testing.T) {
	r := NewLocalRecognizer()
	tests := []struct {
		locale types.Locale
		input  string
		want   Intent
	}{
		{types.LocaleES, "Sí, guárdalo", Confirm},
		{types.LocaleES, "perfecto", Confirm},
		{types.LocaleES, "no lo guardes todavía", None},
		{types.LocaleES, "cambia el nombre a Eldoria", Adjust},
		{types.LocaleES, "hazlo de nuevo", Regenerate},
		{types.LocaleES, "descarta esto y guarda nada", Discard},
		{types.LocaleES, "¿qué significa vitalidad?", None},
		{types.LocaleES, "un mundo donde si mueres renaces como sombra", None},
		{types.LocaleEN, "Looks good, save it", Confirm},
		{types.LocaleEN, "please don't save", None},
		{types.LocaleEN, "fix the theme", Adjust},
		{types.LocaleEN, "yesterday I slept", None},
		{types.LocaleEN, "", None},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := r.Recognize(context.Background(), reqWith(tt.locale, tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLastExchange(t *testing.T) {
	req := &Request{Messages: []*schema.Message{
		schema.AssistantMessage("q1", nil),
		schema.UserMessage("a1"),
		schema.AssistantMessage("q2", nil),
		schema.UserMessage("a2"),
	}}
	q, a := req.LastExchange()
	assert.Equal(t, "q2", q)
	assert.Equal(t, "a2", a)

	q, a = (&Request{}).LastExchange()
	assert.Empty(t, q)
	assert.Empty(t, a)
}

type fakeToolModel struct {
	args string
	err  error
}

func (m *fakeToolModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &schema.Message{
		Role:      schema.Assistant,
		ToolCalls: []schema.ToolCall{{Function: schema.FunctionCall{Name: recognizeToolName, Arguments: m.args}}},
	}, nil
}

func (m *fakeToolModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func (m *fakeToolModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func TestToolBasedRecognizer(t *testing.T) {
	r, err := NewToolBasedRecognizer(&fakeToolModel{args: `{"intent":"regenerate"}`})
	require.NoError(t, err)
	got, err := r.Recognize(context.Background(), reqWith(types.LocaleEN, "another one please"))
	require.NoError(t, err)
	assert.Equal(t, Regenerate, got)

	r, err = NewToolBasedRecognizer(&fakeToolModel{args: `{"intent":"launch"}`})
	require.NoError(t, err)
	_, err = r.Recognize(context.Background(), reqWith(types.LocaleEN, "x"))
	assert.Error(t, err)
}

func TestFailbackRecognizer(t *testing.T) {
	broken, err := NewToolBasedRecognizer(&fakeToolModel{err: errors.New("down")})
	require.NoError(t, err)

	r := NewFailbackRecognizer(broken, NewLocalRecognizer())
	got, err := r.Recognize(context.Background(), reqWith(types.LocaleES, "confirmo"))
	require.NoError(t, err)
	assert.Equal(t, Confirm, got)

	got, err = NewFailbackRecognizer(broken).Recognize(context.Background(), reqWith(types.LocaleES, "confirmo"))
	assert.Error(t, err)
	assert.Equal(t, None, got)
}

func TestFormatRequest(t *testing.T) {
	req := reqWith(types.LocaleES, "sí")
	req.Draft = `{"name":"Shadowrealm"}`
	out := formatRequest(req)
	assert.Contains(t, out, "## Assistant:\n¿Lo guardo?")
	assert.Contains(t, out, "## User:\nsí")
	assert.Contains(t, out, "Shadowrealm")
}
