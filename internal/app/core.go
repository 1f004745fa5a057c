package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/postpilot/internal/config"
	"github.com/vadim/postpilot/internal/database"
	"github.com/vadim/postpilot/internal/domain/post/dao"
	"github.com/vadim/postpilot/internal/domain/post/entity"
	"github.com/vadim/postpilot/internal/domain/post/policy"
	"github.com/vadim/postpilot/internal/domain/post/service"
	slotdao "github.com/vadim/postpilot/internal/domain/slot/dao"
	slotservice "github.com/vadim/postpilot/internal/domain/slot/service"
	"github.com/vadim/postpilot/internal/httpx/upstream/linkedin"
	"github.com/vadim/postpilot/internal/httpx/upstream/x"
	"github.com/vadim/postpilot/internal/metrics"
	"github.com/vadim/postpilot/internal/mq"
	"github.com/vadim/postpilot/internal/queue"
)

// Core holds the storage, domain layers and optional integrations shared by the API and the CLI
type Core struct {
	Pool    *pgxpool.Pool
	Posts   *service.Service
	Prefs   *slotservice.Service
	Policy  *policy.Policy
	Metrics *metrics.Metrics

	closers []func() error
}

// NewCore connects to the database and wires the domain layers
func NewCore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Core, error) {
	c := &Core{Metrics: metrics.New()}

	pool, err := database.NewPostgresPool(ctx, database.PoolConfig{
		DSN:             cfg.Database.PostgresDSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.ConnLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	c.Pool = pool
	c.closers = append(c.closers, func() error { pool.Close(); return nil })

	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(ctx, pool); err != nil {
			c.Close()
			return nil, err
		}
	}

	c.Prefs = slotservice.New(slotdao.NewPreferencePostgres(pool), slotservice.Config{
		HorizonDays:        cfg.Slots.HorizonDays,
		DefaultLeadMinutes: cfg.Slots.DefaultLeadMinutes,
		DefaultTimezone:    cfg.Slots.DefaultTimezone,
	})

	c.Posts = service.New(
		dao.NewPostPostgres(pool),
		dao.NewScheduledPostPostgres(pool),
		dao.NewConnectionPostgres(pool),
	)

	publishers := map[entity.Platform]policy.Publisher{
		entity.PlatformLinkedIn: &linkedinPublisherAdapter{linkedin.NewPublisher(linkedin.New(
			linkedin.WithBaseURL(cfg.LinkedIn.BaseURL),
			linkedin.WithTimeout(cfg.LinkedIn.Timeout),
		))},
		entity.PlatformX: &xPublisherAdapter{x.NewPublisher(x.New(
			x.WithBaseURL(cfg.X.BaseURL),
			x.WithTimeout(cfg.X.Timeout),
		))},
	}

	extra := []policy.Option{policy.WithMetrics(c.Metrics)}

	if cfg.Events.Enabled() {
		conn, err := mq.NewConnection(cfg.Events.AMQPURL, logger)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("connecting to event broker: %w", err)
		}
		c.closers = append(c.closers, conn.Close)
		extra = append(extra, policy.WithEvents(mq.NewPublisher(conn)))
	}

	if cfg.Queue.Enabled() {
		client := asynq.NewClient(RedisOpt(cfg.Queue))
		c.closers = append(c.closers, client.Close)
		extra = append(extra, policy.WithEnqueuer(queue.NewClient(client)))
	}

	c.Policy = policy.New(c.Posts, c.Prefs, publishers, logger, policy.Options{
		MaxRetries:       cfg.Publisher.MaxRetries,
		PublishDelay:     cfg.Publisher.Delay,
		ClaimLease:       cfg.Publisher.ClaimLease,
		BatchSize:        cfg.Publisher.BatchSize,
		BulkBuffer:       cfg.Publisher.BulkBuffer,
		BulkDefaultLimit: cfg.Publisher.BulkLimit,
		BulkMaxLimit:     cfg.Publisher.BulkMaxLimit,
	}, extra...)

	return c, nil
}

// Close releases integrations in reverse order of creation
func (c *Core) Close() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}

// RedisOpt builds asynq connection options from queue config
func RedisOpt(cfg config.Queue) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}
