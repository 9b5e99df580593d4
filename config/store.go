package config

import (
	"context"
	"fmt"

	"github.com/smallnest/agentdesk/log"
	"github.com/smallnest/agentdesk/store"
	"github.com/smallnest/agentdesk/store/badger"
	"github.com/smallnest/agentdesk/store/file"
	"github.com/smallnest/agentdesk/store/memory"
	"github.com/smallnest/agentdesk/store/postgres"
	"github.com/smallnest/agentdesk/store/redis"
	"github.com/smallnest/agentdesk/store/sqlite"
)

// OpenStore creates the configured checkpoint store. The returned func
// releases its connections.
func OpenStore(ctx context.Context, c StoreConfig) (store.CheckpointStore, func(), error) {
	noop := func() {}
	switch c.Driver {
	case "", DriverMemory:
		return memory.NewMemoryCheckpointStore(), noop, nil
	case DriverFile:
		s, err := file.NewFileCheckpointStore(c.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case DriverBadger:
		s, err := badger.NewBadgerCheckpointStore(badger.BadgerOptions{Dir: c.Dir})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { closeLogged("badger", s.Close) }, nil
	case DriverRedis:
		s := redis.NewRedisCheckpointStore(redis.RedisOptions{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Prefix:   c.Redis.Prefix,
			TTL:      c.Redis.TTL,
		})
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", c.Redis.Addr, err)
		}
		return s, func() { closeLogged("redis", s.Close) }, nil
	case DriverPostgres:
		s, err := postgres.NewPostgresCheckpointStore(ctx, postgres.PostgresOptions{ConnString: c.DSN, TableName: c.Table})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case DriverSqlite:
		s, err := sqlite.NewSqliteCheckpointStore(sqlite.SqliteOptions{Path: c.DSN, TableName: c.Table})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { closeLogged("sqlite", s.Close) }, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", c.Driver)
}

func closeLogged(name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Warn("config: closing %s store: %v", name, err)
	}
}
