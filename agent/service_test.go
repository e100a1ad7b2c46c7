package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Twynzen/dymensisCDA-sub002/action"
	"github.com/Twynzen/dymensisCDA-sub002/dialogue"
	"github.com/Twynzen/dymensisCDA-sub002/entity"
	"github.com/Twynzen/dymensisCDA-sub002/extract"
	"github.com/Twynzen/dymensisCDA-sub002/intent"
	"github.com/Twynzen/dymensisCDA-sub002/persist"
	"github.com/Twynzen/dymensisCDA-sub002/phase"
	"github.com/Twynzen/dymensisCDA-sub002/session"
	"github.com/Twynzen/dymensisCDA-sub002/types"
)

const shadowrealm = "Quiero un universo de fantasía llamado Shadowrealm con 6 stats: fuerza, agilidad, vitalidad, inteligencia, percepción y carisma"

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeRepo struct {
	*persist.MemoryRepository
	createErr error
	creates   int
	updates   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{MemoryRepository: persist.NewMemoryRepository()}
}

func (r *fakeRepo) CreateEntity(ctx context.Context, draft *entity.Draft) (string, error) {
	r.creates++
	if r.createErr != nil {
		return "", r.createErr
	}
	return r.MemoryRepository.CreateEntity(ctx, draft)
}

func (r *fakeRepo) UpdateEntity(ctx context.Context, id string, patch []byte) error {
	r.updates++
	return r.MemoryRepository.UpdateEntity(ctx, id, patch)
}

type failingGenerator struct{}

func (failingGenerator) Generate(ctx context.Context, req *dialogue.Request, onToken dialogue.TokenFunc) (string, error) {
	onToken("Hola ")
	return "", errors.New("model unavailable")
}

type recordingGenerator struct {
	prompts []string
}

func (g *recordingGenerator) Generate(ctx context.Context, req *dialogue.Request, onToken dialogue.TokenFunc) (string, error) {
	prompt, err := dialogue.FormatRequest(req)
	if err != nil {
		return "", err
	}
	g.prompts = append(g.prompts, prompt)
	return "¿Algo más?", nil
}

type recordingRecognizer struct {
	drafts []string
}

func (r *recordingRecognizer) Recognize(ctx context.Context, req *intent.Request) (intent.Intent, error) {
	r.drafts = append(r.drafts, req.Draft)
	return intent.None, nil
}

type panickingGenerator struct{}

func (panickingGenerator) Generate(ctx context.Context, req *dialogue.Request, onToken dialogue.TokenFunc) (string, error) {
	onToken("Hola ")
	panic("stream closed")
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithTrackingIDGenerator(func() string { return "trk-1" })}, opts...)
	svc, err := NewDefaultService(opts...)
	require.NoError(t, err)
	return svc
}

func lastMessage(t *testing.T, s *session.Store) types.Message {
	t.Helper()
	msgs := s.Messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

func startUniverse(t *testing.T, svc *Service) *session.Store {
	t.Helper()
	s := session.New()
	require.NoError(t, svc.StartCreation(context.Background(), s, types.TargetUniverse))
	return s
}

func reviewShadowrealm(t *testing.T, svc *Service) *session.Store {
	t.Helper()
	s := startUniverse(t, svc)
	require.NoError(t, svc.ProcessMessage(context.Background(), s, shadowrealm))
	require.Equal(t, types.PhaseReviewing, s.Phase())
	return s
}

func TestStartCreation(t *testing.T) {
	svc := newTestService(t)
	s := startUniverse(t, svc)

	assert.Equal(t, types.ModeUniverse, s.Mode())
	assert.Equal(t, types.PhaseGathering, s.Phase())
	assert.Equal(t, "trk-1", s.TrackingID())
	assert.Equal(t, 0, s.PhaseIndex())
	require.Len(t, s.Messages(), 1)
	assert.Equal(t, schema.Assistant, s.Messages()[0].Role)
	assert.Contains(t, s.Messages()[0].Content, "universo")
	assert.NotEmpty(t, s.Suggestions())

	_, ok := action.Find(s.VisibleActions(), action.TypeAdvancePhase)
	assert.True(t, ok)
	_, ok = action.Find(s.VisibleActions(), action.TypeStartUniverse)
	assert.False(t, ok)

	err := svc.StartCreation(context.Background(), s, types.TargetUnknown)
	assert.ErrorIs(t, err, ErrUnsupportedTarget)
}

func TestShadowrealmGoesStraightToReview(t *testing.T) {
	svc := newTestService(t)
	s := reviewShadowrealm(t, svc)

	assert.True(t, s.ConfirmationMode())
	assert.False(t, s.Busy())
	assert.GreaterOrEqual(t, s.Progress(), DefaultConfirmThreshold)

	draft := s.Draft()
	require.NotNil(t, draft)
	require.NotNil(t, draft.Universe)
	assert.Equal(t, "Shadowrealm", draft.Universe.Name)
	assert.Equal(t, "fantasía", draft.Universe.Theme)
	assert.Len(t, draft.Universe.StatDefinitions, 6)
	assert.Equal(t, entity.DefaultInitialPoints, draft.Universe.InitialPoints)
	assert.False(t, s.Validation().Blocking())

	// user message then the review, no clarifying question in between
	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Contains(t, msgs[2].Content, "Shadowrealm")

	confirm, ok := action.Find(s.VisibleActions(), action.TypeConfirm)
	require.True(t, ok)
	assert.False(t, confirm.Disabled)
	assert.Equal(t, action.TypeConfirm, s.VisibleActions()[0].Type)
}

func TestProcessMessageFromIdle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	s := session.New()

	require.NoError(t, svc.ProcessMessage(ctx, s, "hola"))
	assert.Equal(t, types.ModeIdle, s.Mode())
	assert.Equal(t, msgWhatToCreate.in(types.LocaleES), lastMessage(t, s).Content)

	require.NoError(t, svc.ProcessMessage(ctx, s, shadowrealm))
	assert.Equal(t, types.ModeUniverse, s.Mode())
	assert.Equal(t, types.PhaseReviewing, s.Phase())
	assert.NotNil(t, s.Draft())
}

func TestDraftUsesFieldDefaults(t *testing.T) {
	ext, err := extract.NewDefaultEngine()
	require.NoError(t, err)
	f, ok := ext.Field(types.TargetUniverse, "initialPoints")
	require.True(t, ok)
	f.Default = 80
	table, err := phase.DefaultTable()
	require.NoError(t, err)
	svc := NewService(ext, phase.NewEngine(table, ext))

	s := reviewShadowrealm(t, svc)
	require.NotNil(t, s.Draft())
	assert.Equal(t, 80, s.Draft().Universe.InitialPoints)
	assert.NotContains(t, s.Collected(), "initialPoints")
}

func TestCompletenessIsMonotonic(t *testing.T) {
	svc := newTestService(t)
	s := startUniverse(t, svc)
	inputs := []string{
		"se llama Eldoria",
		"no sé todavía",
		"la temática es terror",
		"stats: fuerza, agilidad, vitalidad",
		"rangos: E, D, C, B, A, S",
		"hmm",
		shadowrealm,
		"descarta",
		"regenera",
		"todavía no",
	}
	prev := s.Progress()
	for _, in := range inputs {
		require.NoError(t, svc.ProcessMessage(context.Background(), s, in))
		assert.GreaterOrEqual(t, s.Progress(), prev, "after %q", in)
		prev = s.Progress()
	}
	assert.Equal(t, "Shadowrealm", s.Collected()["name"])
	assert.Equal(t, []string{"E", "D", "C", "B", "A", "S"}, s.Collected()["levels"])
}

func TestProcessMessageRepliesAndAdvances(t *testing.T) {
	svc := newTestService(t)
	s := startUniverse(t, svc)

	require.NoError(t, svc.ProcessMessage(context.Background(), s, "se llama Eldoria y es de ciencia ficción"))

	assert.Equal(t, types.PhaseGathering, s.Phase())
	assert.Equal(t, 1, s.PhaseIndex())
	assert.Equal(t, "statistics", s.PhaseState().CurrentPhaseID)
	last := lastMessage(t, s)
	assert.Equal(t, schema.Assistant, last.Role)
	assert.Contains(t, last.Content, "completado")
	assert.False(t, s.Streaming().Active)
	assert.False(t, s.Busy())
}

func TestProcessMessageRejectsBusySession(t *testing.T) {
	svc := newTestService(t)
	s := startUniverse(t, svc)
	s.SetBusy(true)
	n := len(s.Messages())

	err := svc.ProcessMessage(context.Background(), s, "se llama Eldoria")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Len(t, s.Messages(), n)
}

func TestGenerationFailureKeepsSessionUsable(t *testing.T) {
	svc := newTestService(t, WithGenerator(failingGenerator{}))
	s := startUniverse(t, svc)

	err := svc.ProcessMessage(context.Background(), s, "la temática es terror")
	assert.ErrorIs(t, err, ErrGeneration)
	assert.False(t, s.Busy())
	assert.False(t, s.Streaming().Active)
	assert.Equal(t, "terror", s.Collected()["theme"])

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "la temática es terror", msgs[1].Content)
	assert.Equal(t, msgGenerationFailed.in(types.LocaleES), msgs[2].Content)

	// still usable
	require.NoError(t, svc.ProcessMessage(context.Background(), s, shadowrealm))
	assert.Equal(t, types.PhaseReviewing, s.Phase())
}

func TestGenerationPanicIsStreamingFailure(t *testing.T) {
	svc := newTestService(t, WithGenerator(panickingGenerator{}))
	s := startUniverse(t, svc)

	err := svc.ProcessMessage(context.Background(), s, "la temática es terror")
	assert.ErrorIs(t, err, ErrStreaming)
	assert.False(t, s.Busy())
	assert.False(t, s.Streaming().Active)
	assert.Equal(t, msgStreamingFailed.in(types.LocaleES), lastMessage(t, s).Content)
}

func TestConfirmBlockedNeverPersists(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, WithRepository(repo))
	ctx := context.Background()
	s := startUniverse(t, svc)

	require.NoError(t, svc.ProcessMessage(ctx, s, "la temática es terror"))
	require.NoError(t, svc.SkipToConfirmation(ctx, s))
	require.Equal(t, types.PhaseReviewing, s.Phase())
	require.True(t, s.Validation().Blocking())

	confirm, ok := action.Find(s.VisibleActions(), action.TypeConfirm)
	require.True(t, ok)
	assert.True(t, confirm.Disabled)

	err := svc.Confirm(ctx, s)
	assert.ErrorIs(t, err, ErrConfirmBlocked)
	assert.Equal(t, 0, repo.creates)
	assert.Equal(t, types.PhaseReviewing, s.Phase())
	assert.Empty(t, s.CreatedID())
	assert.False(t, s.Busy())
	assert.Contains(t, lastMessage(t, s).Content, "nombre")
}

func TestConfirmPersistenceFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("connection refused")
	svc := newTestService(t, WithRepository(repo))
	ctx := context.Background()
	s := reviewShadowrealm(t, svc)

	err := svc.Confirm(ctx, s)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, types.PhaseReviewing, s.Phase())
	assert.True(t, s.ConfirmationMode())
	assert.NotNil(t, s.Draft())
	assert.Empty(t, s.CreatedID())
	assert.False(t, s.Busy())
	assert.Contains(t, lastMessage(t, s).Content, "connection refused")

	repo.createErr = nil
	require.NoError(t, svc.Confirm(ctx, s))
	assert.Equal(t, types.PhaseConfirmed, s.Phase())
	assert.Equal(t, 2, repo.creates)
}

func TestConfirmThenUpdate(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, WithRepository(repo))
	ctx := context.Background()
	s := reviewShadowrealm(t, svc)

	require.NoError(t, svc.Confirm(ctx, s))
	assert.Equal(t, types.PhaseConfirmed, s.Phase())
	assert.False(t, s.ConfirmationMode())
	require.NotEmpty(t, s.CreatedID())
	assert.Contains(t, lastMessage(t, s).Content, "Shadowrealm")

	u, err := repo.GetUniverse(ctx, s.CreatedID())
	require.NoError(t, err)
	assert.Equal(t, "Shadowrealm", u.Name)

	// a second confirm with no changes does not touch the store
	require.NoError(t, svc.Confirm(ctx, s))
	assert.Equal(t, 1, repo.creates)
	assert.Equal(t, 0, repo.updates)

	require.NoError(t, svc.UploadImage(ctx, s, pngHeader, "image/png"))
	require.NoError(t, svc.ClassifyImage(ctx, s, SlotCover))
	assert.Equal(t, 1, repo.updates)

	u, err = repo.GetUniverse(ctx, s.CreatedID())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u.CoverImage, "data:image/png;base64,"))
	assert.Equal(t, "Shadowrealm", u.Name)
}

func TestReviewIntents(t *testing.T) {
	ctx := context.Background()

	t.Run("confirm", func(t *testing.T) {
		svc := newTestService(t)
		s := reviewShadowrealm(t, svc)
		require.NoError(t, svc.ProcessMessage(ctx, s, "sí, guárdalo"))
		assert.Equal(t, types.PhaseConfirmed, s.Phase())
		assert.NotEmpty(t, s.CreatedID())
		assert.False(t, s.Busy())
	})

	t.Run("negated confirm is extraction", func(t *testing.T) {
		svc := newTestService(t)
		s := reviewShadowrealm(t, svc)
		require.NoError(t, svc.ProcessMessage(ctx, s, "todavía no"))
		assert.Equal(t, types.PhaseReviewing, s.Phase())
		assert.Empty(t, s.CreatedID())
	})

	t.Run("regenerate", func(t *testing.T) {
		svc := newTestService(t)
		s := reviewShadowrealm(t, svc)
		require.NoError(t, svc.ProcessMessage(ctx, s, "regenera"))
		assert.Nil(t, s.Draft())
		assert.Equal(t, types.PhaseGathering, s.Phase())
		assert.Equal(t, "Shadowrealm", s.Collected()["name"])
	})

	t.Run("discard keeps collected fields", func(t *testing.T) {
		svc := newTestService(t)
		s := reviewShadowrealm(t, svc)
		progress := s.Progress()
		require.NoError(t, svc.ProcessMessage(ctx, s, "descártalo"))
		assert.Nil(t, s.Draft())
		assert.Equal(t, types.PhaseGathering, s.Phase())
		assert.Equal(t, "Shadowrealm", s.Collected()["name"])
		assert.Equal(t, progress, s.Progress())
	})

	t.Run("adjust", func(t *testing.T) {
		svc := newTestService(t)
		s := reviewShadowrealm(t, svc)
		require.NoError(t, svc.ProcessMessage(ctx, s, "cambia, se llama Lightrealm"))
		assert.Equal(t, types.PhaseReviewing, s.Phase())
		require.NotNil(t, s.Draft())
		assert.Equal(t, "Lightrealm", s.Draft().Name())
	})

	t.Run("adjust without edits waits", func(t *testing.T) {
		svc := newTestService(t)
		s := reviewShadowrealm(t, svc)
		require.NoError(t, svc.ProcessMessage(ctx, s, "quiero cambiar algo"))
		assert.Equal(t, types.PhaseAdjusting, s.Phase())
		assert.False(t, s.ConfirmationMode())
		require.NotNil(t, s.Draft())
		assert.Equal(t, schema.Assistant, lastMessage(t, s).Role)
	})

	t.Run("edit containing a confirm word is extracted", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(t, WithRepository(repo))
		s := reviewShadowrealm(t, svc)
		require.NoError(t, svc.ProcessMessage(ctx, s, "Descripción: un mundo donde si mueres renaces como sombra"))
		assert.Equal(t, 0, repo.creates)
		assert.Empty(t, s.CreatedID())
		assert.Equal(t, "un mundo donde si mueres renaces como sombra", s.Collected()["description"])
		assert.Equal(t, types.PhaseReviewing, s.Phase())
		require.NotNil(t, s.Draft())
		assert.Equal(t, "un mundo donde si mueres renaces como sombra", s.Draft().Universe.Description)
	})

	t.Run("repeated value does not hide a confirm", func(t *testing.T) {
		svc := newTestService(t)
		s := reviewShadowrealm(t, svc)
		require.NoError(t, svc.ProcessMessage(ctx, s, "se llama Shadowrealm, sí, guárdalo"))
		assert.Equal(t, types.PhaseConfirmed, s.Phase())
	})
}

func TestRegenerateAndDiscard(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	s := startUniverse(t, svc)
	assert.ErrorIs(t, svc.Regenerate(ctx, s), ErrNoDraft)
	assert.ErrorIs(t, svc.RequestAdjustment(ctx, s), ErrNoDraft)

	s = reviewShadowrealm(t, svc)
	require.NoError(t, svc.RequestAdjustment(ctx, s))
	assert.Equal(t, types.PhaseAdjusting, s.Phase())
	assert.False(t, s.ConfirmationMode())

	progress := s.Progress()
	require.NoError(t, svc.Regenerate(ctx, s))
	assert.Nil(t, s.Draft())
	assert.Equal(t, types.PhaseGathering, s.Phase())
	assert.Equal(t, progress, s.Progress())
	assert.Len(t, s.Collected()["statNames"], 6)

	require.NoError(t, svc.BuildDraft(ctx, s))
	require.NoError(t, svc.Validate(ctx, s))
	assert.Equal(t, types.PhaseReviewing, s.Phase())
	assert.True(t, s.ConfirmationMode())

	require.NoError(t, svc.DiscardDraft(ctx, s))
	assert.Nil(t, s.Draft())
	assert.Empty(t, s.Collected())
	assert.Equal(t, types.PhaseGathering, s.Phase())
	assert.Equal(t, 0, s.PhaseIndex())
	assert.Equal(t, types.ModeUniverse, s.Mode())
}

func TestImageFlow(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	s := startUniverse(t, svc)

	err := svc.UploadImage(ctx, s, []byte("hello"), "text/plain")
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.False(t, s.HasPendingImage())

	require.NoError(t, svc.UploadImage(ctx, s, pngHeader, "image/png"))
	require.True(t, s.HasPendingImage())
	assert.NotContains(t, s.Collected(), "coverImage")
	_, ok := action.Find(s.VisibleActions(), action.TypeClassifyCover)
	assert.True(t, ok)
	_, ok = action.Find(s.VisibleActions(), action.TypeClassifyAvatar)
	assert.False(t, ok)

	err = svc.ClassifyImage(ctx, s, SlotAvatar)
	assert.ErrorIs(t, err, ErrInvalidImageSlot)
	assert.True(t, s.HasPendingImage())

	require.NoError(t, svc.ClassifyImage(ctx, s, SlotLocation))
	assert.False(t, s.HasPendingImage())
	require.Len(t, s.Collected()["locations"], 1)

	err = svc.ClassifyImage(ctx, s, SlotCover)
	assert.ErrorIs(t, err, ErrNoPendingImage)

	require.NoError(t, svc.UploadImage(ctx, s, pngHeader, ""))
	require.NoError(t, svc.Dispatch(ctx, s, action.TypeClassifyCover, ""))
	cover, _ := s.Collected()["coverImage"].(string)
	assert.True(t, strings.HasPrefix(cover, "data:image/png;base64,"))
}

func TestImagesStayOutOfPrompts(t *testing.T) {
	ctx := context.Background()
	gen := &recordingGenerator{}
	rec := &recordingRecognizer{}
	svc := newTestService(t, WithGenerator(gen), WithRecognizer(rec))
	s := startUniverse(t, svc)

	big := append(append([]byte{}, pngHeader...), make([]byte, 512<<10)...)
	require.NoError(t, svc.UploadImage(ctx, s, big, "image/png"))
	require.NoError(t, svc.ClassifyImage(ctx, s, SlotCover))
	require.NoError(t, svc.ProcessMessage(ctx, s, "se llama Eldoria"))

	require.NotEmpty(t, gen.prompts)
	prompt := gen.prompts[len(gen.prompts)-1]
	assert.NotContains(t, prompt, "base64")
	assert.Contains(t, prompt, "[image image/png")
	assert.Less(t, len(prompt), 64<<10)

	require.NoError(t, svc.ProcessMessage(ctx, s, shadowrealm))
	require.Equal(t, types.PhaseReviewing, s.Phase())
	require.NoError(t, svc.ProcessMessage(ctx, s, "hmm"))
	require.NotEmpty(t, rec.drafts)
	assert.NotContains(t, rec.drafts[0], "base64")
	assert.Contains(t, rec.drafts[0], "[image image/png")
	cover, _ := s.Collected()["coverImage"].(string)
	assert.True(t, strings.HasPrefix(cover, "data:image/png;base64,"))
}

func TestCharacterFlow(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := newTestService(t, WithRepository(repo))

	universe := reviewShadowrealm(t, svc)
	require.NoError(t, svc.Confirm(ctx, universe))
	universeID := universe.CreatedID()

	s := session.New()
	require.NoError(t, svc.StartCreation(ctx, s, types.TargetCharacter))
	assert.Contains(t, lastMessage(t, s).Content, "Shadowrealm")
	_, ok := action.Find(s.VisibleActions(), action.TypeSelectUniverse)
	assert.True(t, ok)

	err := svc.SelectUniverse(ctx, s, "missing")
	assert.ErrorIs(t, err, ErrUniverseNotFound)
	assert.False(t, s.HasSelectedUniverse())

	require.NoError(t, svc.ProcessMessage(ctx, s, "Mi personaje se llama Kael y vive en Shadowrealm"))
	require.True(t, s.HasSelectedUniverse())
	assert.Equal(t, universeID, s.Collected()["universeId"])
	assert.Equal(t, "Kael", s.Collected()["name"])

	require.NoError(t, svc.BuildDraft(ctx, s))
	c := s.Draft().Character
	require.NotNil(t, c)
	assert.Equal(t, universeID, c.UniverseID)
	require.Len(t, c.Stats, 6)
	for _, points := range c.Stats {
		assert.Equal(t, 10, points)
	}

	err = svc.SelectUniverse(ctx, universe, universeID)
	assert.ErrorIs(t, err, ErrUnsupportedTarget)
}

func TestPhaseNavigationAndDispatch(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	s := session.New()

	require.NoError(t, svc.Dispatch(ctx, s, action.TypeStartUniverse, ""))
	assert.Equal(t, types.ModeUniverse, s.Mode())

	require.NoError(t, svc.PreviousPhase(ctx, s))
	assert.Equal(t, 0, s.PhaseIndex())
	assert.Equal(t, msgFirstPhase.in(types.LocaleES), lastMessage(t, s).Content)

	require.NoError(t, svc.Dispatch(ctx, s, action.TypeAdvancePhase, ""))
	assert.Equal(t, 1, s.PhaseIndex())
	assert.Equal(t, "statistics", s.PhaseState().CurrentPhaseID)

	require.NoError(t, svc.Dispatch(ctx, s, action.TypePreviousPhase, ""))
	assert.Equal(t, 0, s.PhaseIndex())

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.AdvancePhase(ctx, s))
	}
	assert.Equal(t, 3, s.PhaseIndex())
	assert.Equal(t, msgLastPhase.in(types.LocaleES), lastMessage(t, s).Content)

	require.NoError(t, svc.Dispatch(ctx, s, action.TypeHelp, ""))
	assert.Contains(t, lastMessage(t, s).Content, msgHelp.in(types.LocaleES))

	require.NoError(t, svc.Dispatch(ctx, s, action.TypeUploadImage, ""))
	assert.Equal(t, msgAttachImage.in(types.LocaleES), lastMessage(t, s).Content)

	assert.Error(t, svc.Dispatch(ctx, s, action.Type("fly"), ""))

	require.NoError(t, svc.Dispatch(ctx, s, action.TypeCancel, ""))
	assert.Equal(t, types.ModeIdle, s.Mode())
	assert.Empty(t, s.TrackingID())
	_, ok := action.Find(s.VisibleActions(), action.TypeStartCharacter)
	assert.True(t, ok)
}

func TestResumeFromCheckpoint(t *testing.T) {
	ctx := context.Background()
	checkpoints := session.NewMemoryCheckpointStore()
	svc := newTestService(t, WithCheckpoints(checkpoints))

	s := startUniverse(t, svc)
	require.NoError(t, svc.ProcessMessage(ctx, s, "la temática es terror"))

	resumed, err := svc.Resume(ctx, "trk-1")
	require.NoError(t, err)
	require.Len(t, resumed.Messages(), len(s.Messages()))
	for i, m := range s.Messages() {
		assert.Equal(t, m.ID, resumed.Messages()[i].ID)
		assert.Equal(t, m.Content, resumed.Messages()[i].Content)
	}
	assert.Equal(t, s.Collected(), resumed.Collected())
	assert.Equal(t, s.Progress(), resumed.Progress())
	assert.Equal(t, types.ModeUniverse, resumed.Mode())

	_, err = svc.Resume(ctx, "unknown")
	assert.ErrorIs(t, err, session.ErrNoCheckpoint)

	_, err = newTestService(t).Resume(ctx, "trk-1")
	assert.Error(t, err)
}
