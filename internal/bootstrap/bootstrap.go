// Package bootstrap opens the backends shared by the API server and the
// worker.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/StormyOasis/linsta-sub001/internal/cache"
	"github.com/StormyOasis/linsta-sub001/internal/config"
	"github.com/StormyOasis/linsta-sub001/internal/idgen"
	"github.com/StormyOasis/linsta-sub001/internal/media"
	"github.com/StormyOasis/linsta-sub001/internal/metrics"
	"github.com/StormyOasis/linsta-sub001/internal/outbox"
	"github.com/StormyOasis/linsta-sub001/internal/repository"
	"github.com/StormyOasis/linsta-sub001/internal/saga"
	"github.com/StormyOasis/linsta-sub001/internal/service"
	"github.com/StormyOasis/linsta-sub001/pkg/database"
	"github.com/StormyOasis/linsta-sub001/pkg/pubsub"
	"github.com/StormyOasis/linsta-sub001/pkg/storage"
)

// Infra holds the open connections of a process.
type Infra struct {
	Neo4j   neo4j.DriverWithContext
	ES      *elasticsearch.Client
	Redis   *redis.Client
	DB      *gorm.DB
	Storage storage.Storage
	PubSub  pubsub.PubSub
	Outbox  *outbox.Store
	Metrics *metrics.Metrics
}

// Open connects to every backend in cfg. On error the connections opened so
// far are closed.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (in *Infra, err error) {
	in = &Infra{}
	defer func() {
		if err != nil {
			in.Close(context.Background())
		}
	}()

	// Neo4j
	in.Neo4j, err = neo4j.NewDriverWithContext(cfg.Neo4j.URI,
		neo4j.BasicAuth(cfg.Neo4j.Username, cfg.Neo4j.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err = in.Neo4j.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("connect to neo4j: %w", err)
	}
	if err = repository.EnsureSchema(ctx, in.Neo4j, cfg.Neo4j.Database); err != nil {
		return nil, err
	}
	logger.Info().Str("uri", cfg.Neo4j.URI).Msg("neo4j connected")

	// Elasticsearch
	in.ES, err = elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
		APIKey:    cfg.Elasticsearch.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	res, err := in.ES.Info()
	if err != nil {
		return nil, fmt.Errorf("connect to elasticsearch: %w", err)
	}
	res.Body.Close()
	if err = repository.EnsureIndices(ctx, in.ES, cfg.Elasticsearch.IndexPosts, cfg.Elasticsearch.IndexProfiles); err != nil {
		return nil, err
	}
	logger.Info().Strs("addresses", cfg.Elasticsearch.Addresses).Msg("elasticsearch connected")

	// Redis
	in.Redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err = in.Redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")

	// Media storage
	in.Storage, err = storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("create storage: %w", err)
	}
	logger.Info().Str("driver", cfg.Storage.Driver).Msg("storage ready")

	// Outbox database
	in.DB, err = database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to outbox database: %w", err)
	}
	if err = database.AutoMigrate(in.DB, outbox.Models...); err != nil {
		return nil, fmt.Errorf("migrate outbox: %w", err)
	}
	in.Outbox = outbox.NewStore(in.DB)
	logger.Info().Str("driver", cfg.Database.Driver).Msg("outbox database ready")

	// Event bus
	in.PubSub, err = pubsub.NewPubSub(cfg.PubSub, in.Redis)
	if err != nil {
		return nil, fmt.Errorf("create pubsub: %w", err)
	}
	logger.Info().Str("driver", cfg.PubSub.Driver).Msg("pubsub ready")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	in.Metrics = metrics.New(reg)

	return in, nil
}

// Deps builds the shared service dependencies on top of the connections.
func (in *Infra) Deps(cfg *config.Config) service.Deps {
	ids := idgen.New()
	return service.Deps{
		Graph:    repository.NewNeo4jGraphRepository(in.Neo4j, cfg.Neo4j.Database),
		Posts:    repository.NewESPostRepository(in.ES, cfg.Elasticsearch.IndexPosts),
		Profiles: repository.NewESProfileRepository(in.ES, cfg.Elasticsearch.IndexProfiles),
		Cache:    cache.NewRedisEntityCache(in.Redis, cfg.Cache.TTL),
		Media:    media.NewProcessor(in.Storage, ids, cfg.Media),
		Events:   in.Outbox,
		Repairs:  in.Outbox,
		Sagas:    saga.NewCoordinator(in.Outbox, in.Metrics),
		IDs:      ids,
		Metrics:  in.Metrics,
	}
}

// Close releases every open connection.
func (in *Infra) Close(ctx context.Context) {
	if in.PubSub != nil {
		in.PubSub.Close()
	}
	if in.DB != nil {
		if sqlDB, err := in.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if in.Redis != nil {
		in.Redis.Close()
	}
	if in.Neo4j != nil {
		in.Neo4j.Close(ctx)
	}
}
