package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/eino/adk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Twynzen/dymensisCDA-sub002/agent"
	"github.com/Twynzen/dymensisCDA-sub002/session"
	"github.com/Twynzen/dymensisCDA-sub002/types"
)

func newTestChat(t *testing.T) (*chat, *bytes.Buffer) {
	t.Helper()
	svc, err := agent.NewDefaultService()
	require.NoError(t, err)
	var out bytes.Buffer
	c := &chat{
		svc:   svc,
		agent: agent.NewAgent("Dymensis", "test", svc, session.New(session.WithLocale(types.LocaleES))),
		out:   &out,
	}
	c.runner = adk.NewRunner(context.Background(), adk.RunnerConfig{Agent: c.agent})
	return c, &out
}

func TestChatLoop(t *testing.T) {
	c, out := newTestChat(t)
	input := strings.Join([]string{
		"/start universe",
		"Quiero un universo de fantasía llamado Shadowrealm con 6 stats: fuerza, agilidad, vitalidad, inteligencia, percepción y carisma",
		"/status",
		"/do confirm",
		"/quit",
		"never read",
	}, "\n")
	require.NoError(t, c.loop(context.Background(), strings.NewReader(input)))

	snap := c.agent.Store().Snapshot()
	assert.Equal(t, types.PhaseConfirmed, snap.Phase)
	assert.NotEmpty(t, snap.CreatedID)
	assert.Contains(t, out.String(), "reviewing")
	assert.Contains(t, out.String(), "Dymensis:")
}

func TestChatCommandErrors(t *testing.T) {
	c, _ := newTestChat(t)
	ctx := context.Background()

	for _, line := range []string{"/start", "/do", "/do fly", "/image", "/image x.png roof", "/dance"} {
		_, err := c.command(ctx, line)
		assert.Error(t, err, line)
	}
	quit, err := c.command(ctx, "/exit")
	require.NoError(t, err)
	assert.True(t, quit)
}
