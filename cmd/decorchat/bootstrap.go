package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/decorchat/internal/profile"
	"github.com/hrygo/decorchat/plugin/ai"
	"github.com/hrygo/decorchat/plugin/ai/agent"
	"github.com/hrygo/decorchat/plugin/ai/agent/tools"
	aicache "github.com/hrygo/decorchat/plugin/ai/cache"
	"github.com/hrygo/decorchat/plugin/ai/checkpoint"
	"github.com/hrygo/decorchat/server/router/mcp"
	"github.com/hrygo/decorchat/server/runner/embedding"
	"github.com/hrygo/decorchat/server/service/chat"
	"github.com/hrygo/decorchat/store"
	"github.com/hrygo/decorchat/store/cache"
	"github.com/hrygo/decorchat/store/db"
)

// application holds every long-lived dependency, constructed once.
type application struct {
	store           *store.Store
	cache           *cache.TieredCache
	embedding       ai.EmbeddingService
	queryCache      *aicache.EmbeddingCache
	itemLookup      *tools.ItemLookupTool
	chatService     *chat.Service
	mcpServer       *mcp.Server
	embeddingRunner *embedding.Runner
}

// openStore opens, pings and migrates the configured database.
func openStore(ctx context.Context, p *profile.Profile) (*store.Store, error) {
	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := dbDriver.GetDB().PingContext(pingCtx); err != nil {
		_ = dbDriver.Close()
		return nil, errors.Wrap(err, "database is not reachable")
	}

	s := store.New(dbDriver, p)
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return s, nil
}

func bootstrap(ctx context.Context, p *profile.Profile) (*application, error) {
	s, err := openStore(ctx, p)
	if err != nil {
		return nil, err
	}
	app := &application{store: s}
	fail := func(err error) (*application, error) {
		app.close()
		_ = s.Close()
		return nil, err
	}

	aiConfig := ai.NewConfigFromProfile(p)
	if err := aiConfig.Validate(); err != nil {
		return fail(errors.Wrap(err, "invalid AI configuration"))
	}
	llm, err := ai.NewLLMService(&aiConfig.LLM)
	if err != nil {
		return fail(err)
	}
	app.embedding, err = ai.NewEmbeddingService(&aiConfig.Embedding)
	if err != nil {
		return fail(err)
	}

	cacheConfig := cache.DefaultTieredConfig()
	if p.CacheRedisAddr != "" && cacheConfig.Redis == nil {
		cacheConfig.Redis = cache.RedisConfigFromEnv()
		cacheConfig.Redis.Addr = p.CacheRedisAddr
	}
	app.cache, err = cache.NewTieredCache(ctx, cacheConfig)
	if err != nil {
		return fail(errors.Wrap(err, "failed to create checkpoint cache"))
	}

	app.queryCache, err = aicache.NewEmbeddingCache(app.embedding, aicache.Config{Namespace: aiConfig.Embedding.Model})
	if err != nil {
		return fail(errors.Wrap(err, "failed to create query embedding cache"))
	}

	app.itemLookup, err = tools.NewItemLookupTool(s, app.queryCache, tools.WithMinScore(p.SearchMinScore))
	if err != nil {
		return fail(err)
	}

	storeAgent := agent.NewAgent(llm, checkpoint.NewSaver(s, app.cache), agent.AgentConfig{
		RecursionLimit: p.RecursionLimit,
	}, []agent.ToolWithSchema{app.itemLookup})

	app.chatService = chat.NewService(storeAgent, chat.WithRequestTimeout(p.RequestTimeout))
	app.mcpServer = mcp.NewServer(mcp.ServerConfig{Name: "decorchat", Version: p.Version}, app.itemLookup)
	app.embeddingRunner = embedding.NewRunner(s, app.embedding)

	slog.Info("decorchat initialized",
		"driver", p.Driver,
		"chat_model", aiConfig.LLM.Model,
		"embedding_model", aiConfig.Embedding.Model,
		"redis_cache", app.cache.RedisEnabled())
	return app, nil
}

// close releases what the server does not own; the server closes the store.
func (a *application) close() {
	if a.queryCache != nil {
		_ = a.queryCache.Close()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			slog.Warn("failed to close cache", "error", err)
		}
	}
}
