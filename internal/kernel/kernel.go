// Package kernel boots the marketplace: it connects the document store,
// cache, event transport and model clients named by config, and wires the
// services and controllers on top of them.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shashiranjanraj/kachra/app/controllers"
	"github.com/shashiranjanraj/kachra/app/repositories"
	"github.com/shashiranjanraj/kachra/app/routes"
	"github.com/shashiranjanraj/kachra/app/services"
	"github.com/shashiranjanraj/kachra/config"
	"github.com/shashiranjanraj/kachra/pkg/cache"
	"github.com/shashiranjanraj/kachra/pkg/docstore"
	"github.com/shashiranjanraj/kachra/pkg/event"
	"github.com/shashiranjanraj/kachra/pkg/fal"
	"github.com/shashiranjanraj/kachra/pkg/gemini"
	"github.com/shashiranjanraj/kachra/pkg/logger"
	"github.com/shashiranjanraj/kachra/pkg/workerpool"
)

const logCollection = "logs"

// Kernel holds every long-lived dependency of a running server.
type Kernel struct {
	Store       docstore.Store
	Mongo       *docstore.Mongo // nil with the memory driver
	Cache       *cache.Cache    // nil when Redis is unreachable
	Bus         *event.Bus
	Auth        *services.AuthService
	Catalog     *services.CatalogService
	Controllers routes.Controllers

	pool    *workerpool.Pool
	text    *gemini.Client
	logSink *logger.MongoHandler
}

// Boot connects everything config names. Only the document store is
// required; the cache, Kafka and model clients are skipped with a warning
// when unavailable or unconfigured.
func Boot(ctx context.Context) (*Kernel, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	k := &Kernel{}

	raw, err := k.connectStore(ctx)
	if err != nil {
		return nil, err
	}
	k.Store = docstore.WithRetry(raw, docstore.RetryPolicy{
		Attempts:       config.StoreRetries(),
		Backoff:        config.StoreBackoff(),
		AttemptTimeout: config.StoreTimeout(),
	})

	if c, err := cache.Connect(ctx, config.RedisAddr(), config.RedisPassword(), config.CacheTTL()); err != nil {
		logger.Warn("cache disabled", "addr", config.RedisAddr(), "error", err)
	} else {
		k.Cache = c
	}

	var busOpts []event.Option
	if brokers := config.KafkaBrokers(); len(brokers) > 0 {
		busOpts = append(busOpts, event.WithPublisher(event.NewKafkaPublisher(brokers, config.KafkaTopic())))
		logger.Info("publishing events to kafka", "brokers", brokers, "topic", config.KafkaTopic())
	}
	k.Bus = event.NewBus(busOpts...)

	var text services.TextGenerator
	if key := config.GeminiAPIKey(); key != "" {
		c, err := gemini.NewClient(ctx, key, config.GeminiModel())
		if err != nil {
			logger.Warn("text generation disabled", "error", err)
		} else {
			k.text = c
			text = c
		}
	} else {
		logger.Warn("text generation disabled", "reason", "GEMINI_API_KEY not set")
	}

	var images services.ImageGenerator
	if key := config.FalKey(); key != "" {
		images = fal.New(config.FalURL(), key)
	} else {
		logger.Warn("image generation disabled", "reason", "FAL_KEY not set")
	}

	assist := services.NewAssistService(text, images)

	products := repositories.NewProductRepository(k.Store)
	requests := repositories.NewRequestRepository(k.Store)
	history := repositories.NewHistoryRepository(k.Store)
	users := repositories.NewUserRepository(k.Store)

	catalogOpts := []services.CatalogOption{services.WithCache(k.Cache)}
	if text != nil {
		k.pool = workerpool.New("demand", config.DemandWorkers())
		catalogOpts = append(catalogOpts, services.WithDemandScoring(assist, k.pool))
	}
	k.Catalog = services.NewCatalogService(products, k.Bus, catalogOpts...)
	k.Auth = services.NewAuthService(users)
	negotiation := services.NewNegotiationService(products, requests, history, k.Bus)

	k.Controllers = routes.Controllers{
		Auth:     controllers.NewAuthController(k.Auth),
		Products: controllers.NewProductController(k.Catalog),
		Requests: controllers.NewRequestController(negotiation),
		Assist:   controllers.NewAssistController(assist),
	}
	return k, nil
}

func (k *Kernel) connectStore(ctx context.Context) (docstore.Store, error) {
	if config.StoreDriver() == "memory" {
		logger.Warn("using the in-memory document store; data is lost on exit")
		return docstore.NewMemory(), nil
	}

	m, err := docstore.ConnectMongo(ctx, config.MongoURI(), config.MongoDatabase())
	if err != nil {
		return nil, fmt.Errorf("document store: %w", err)
	}
	k.Mongo = m

	if config.LogToMongo() {
		k.logSink = logger.NewMongoHandler(m.Client(), m.Database(), logCollection, slog.LevelInfo)
		logger.Tee(k.logSink)
	}
	return m, nil
}

// Ping checks the document store.
func (k *Kernel) Ping(ctx context.Context) error { return k.Store.Ping(ctx) }

// CachePing checks Redis. It is nil when the cache is disabled.
func (k *Kernel) CachePing() func(context.Context) error {
	if k.Cache == nil {
		return nil
	}
	return k.Cache.Ping
}

// Shutdown drains background work, then closes clients in reverse order of
// Boot.
func (k *Kernel) Shutdown(ctx context.Context) error {
	var errs []error
	if k.pool != nil {
		if err := k.pool.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("demand pool: %w", err))
		}
	}
	if err := k.Bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("event bus: %w", err))
	}
	if k.text != nil {
		if err := k.text.Close(); err != nil {
			errs = append(errs, fmt.Errorf("gemini: %w", err))
		}
	}
	if err := k.Cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}
	if k.logSink != nil {
		k.logSink.Close()
	}
	if err := k.Store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("document store: %w", err))
	}
	return errors.Join(errs...)
}
