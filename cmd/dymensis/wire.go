package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cloudwego/eino-ext/components/model/openai"

	"github.com/Twynzen/dymensisCDA-sub002/agent"
	"github.com/Twynzen/dymensisCDA-sub002/config"
	"github.com/Twynzen/dymensisCDA-sub002/dialogue"
	"github.com/Twynzen/dymensisCDA-sub002/extract"
	"github.com/Twynzen/dymensisCDA-sub002/intent"
	"github.com/Twynzen/dymensisCDA-sub002/persist"
	"github.com/Twynzen/dymensisCDA-sub002/phase"
	"github.com/Twynzen/dymensisCDA-sub002/session"
)

func setupLogger(cfg *config.Config) {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// buildService wires the collaborators selected by cfg. The returned cleanup
// closes every opened connection.
func buildService(ctx context.Context, cfg *config.Config) (*agent.Service, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	extractor, err := loadExtractor(cfg)
	if err != nil {
		return nil, nil, err
	}
	table := phase.DefaultTable
	if cfg.Rules.Phases != "" {
		table = func() (*phase.Table, error) { return phase.LoadTable(cfg.Rules.Phases) }
	}
	phases, err := table()
	if err != nil {
		return nil, nil, err
	}

	opts := []agent.Option{}
	if cfg.UseModel() {
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:  cfg.Model.APIKey,
			Model:   cfg.Model.Model,
			BaseURL: cfg.Model.BaseURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init chat model: %w", err)
		}
		recognizer, err := intent.NewToolBasedRecognizer(cm)
		if err != nil {
			return nil, nil, fmt.Errorf("init intent recognizer: %w", err)
		}
		opts = append(opts,
			agent.WithGenerator(dialogue.NewFailbackGenerator(
				dialogue.NewChatModelGenerator(cm, dialogue.WithTrimmer(dialogue.KeepSystemLastNTrimmer{N: cfg.HistoryLimit})),
				dialogue.NewLocalGenerator(),
			)),
			agent.WithRecognizer(intent.NewFailbackRecognizer(recognizer, intent.NewLocalRecognizer())),
		)
		slog.Info("using chat model", "model", cfg.Model.Model, "base_url", cfg.Model.BaseURL)
	}

	switch cfg.Storage.Backend {
	case "postgres":
		repo, err := persist.NewPostgresRepository(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, repo.Close)
		if err := repo.EnsureSchema(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts, agent.WithRepository(repo))
	default:
		opts = append(opts, agent.WithRepository(persist.NewMemoryRepository()))
	}

	switch cfg.Cache.Backend {
	case "redis":
		cache, err := session.NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.TTL)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() {
			if err := cache.Close(); err != nil {
				slog.Warn("failed to close redis client", "error", err)
			}
		})
		opts = append(opts, agent.WithCheckpoints(session.NewCheckpointStore(cache, "")))
	default:
		opts = append(opts, agent.WithCheckpoints(session.NewMemoryCheckpointStore()))
	}

	engine := phase.NewEngine(phases, extractor, phase.WithConfirmThreshold(cfg.ConfirmThreshold))
	return agent.NewService(extractor, engine, opts...), cleanup, nil
}

func loadExtractor(cfg *config.Config) (*extract.Engine, error) {
	if cfg.Rules.Fields == "" {
		return extract.NewDefaultEngine()
	}
	rules, err := extract.LoadRules(cfg.Rules.Fields)
	if err != nil {
		return nil, err
	}
	return extract.NewEngine(rules), nil
}
