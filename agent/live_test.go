package agent

import (
	"context"
	"os"
	"testing"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Twynzen/dymensisCDA-sub002/config"
	"github.com/Twynzen/dymensisCDA-sub002/dialogue"
	"github.com/Twynzen/dymensisCDA-sub002/intent"
	"github.com/Twynzen/dymensisCDA-sub002/types"
)

// newLiveService wires the configured chat model. It reads the config file
// named by DYMENSIS_CONFIG plus the usual DYMENSIS_* overrides.
func newLiveService(t *testing.T) *Service {
	t.Helper()
	if os.Getenv("DYMENSIS_RUN_LIVE_TESTS") != "1" {
		t.Skip("set DYMENSIS_RUN_LIVE_TESTS=1 to run live LLM tests")
	}
	cfg, err := config.Load(os.Getenv("DYMENSIS_CONFIG"))
	if err != nil {
		t.Skipf("failed to load config: %v", err)
	}
	if !cfg.UseModel() {
		t.Skip("model api_key is empty")
	}
	ctx := context.Background()
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.Model.APIKey,
		Model:   cfg.Model.Model,
		BaseURL: cfg.Model.BaseURL,
	})
	require.NoError(t, err)
	recognizer, err := intent.NewToolBasedRecognizer(cm)
	require.NoError(t, err)
	return newTestService(t,
		WithGenerator(dialogue.NewChatModelGenerator(cm, dialogue.WithTrimmer(dialogue.KeepSystemLastNTrimmer{N: cfg.HistoryLimit}))),
		WithRecognizer(recognizer),
	)
}

func TestLiveUniverseFlow(t *testing.T) {
	t.Parallel()
	svc := newLiveService(t)
	ctx := context.Background()
	s := startUniverse(t, svc)

	require.NoError(t, svc.ProcessMessage(ctx, s, "Quiero un universo de terror llamado Nocturnia"))
	assert.Equal(t, types.ModeUniverse, s.Mode())
	reply := lastMessage(t, s)
	assert.NotEmpty(t, reply.Content)
	assert.False(t, s.Busy())
	t.Logf("reply: %s", reply.Content)

	require.NoError(t, svc.ProcessMessage(ctx, s, "Tendrá 5 stats: fuerza, agilidad, vitalidad, inteligencia y cordura"))
	require.NoError(t, svc.SkipToConfirmation(ctx, s))
	require.NotNil(t, s.Draft())
	assert.Equal(t, "Nocturnia", s.Draft().Name())
	assert.Equal(t, types.PhaseReviewing, s.Phase())

	require.NoError(t, svc.ProcessMessage(ctx, s, "perfecto, guárdalo así"))
	assert.Equal(t, types.PhaseConfirmed, s.Phase())
	assert.NotEmpty(t, s.CreatedID())
}

func TestLiveReviewAdjustment(t *testing.T) {
	t.Parallel()
	svc := newLiveService(t)
	ctx := context.Background()
	s := reviewShadowrealm(t, svc)

	require.NoError(t, svc.ProcessMessage(ctx, s, "mejor quiero cambiar algunas cosas"))
	assert.Equal(t, types.PhaseAdjusting, s.Phase())
	assert.False(t, s.ConfirmationMode())
	t.Logf("reply: %s", lastMessage(t, s).Content)
}
