package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"cozy-triage/backend/pkg/config"
	pkgerrors "cozy-triage/backend/pkg/errors"
	"cozy-triage/backend/pkg/logger"
)

// Store handles all Memgraph database operations. Every read is scoped to an
// owner by matching the OWNS edge inside the query itself; a missing edge and
// a missing node are indistinguishable to callers.
type Store struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewStore opens a Bolt driver with bounded pool settings and wraps it in a
// Store. The driver is lazy: connections are established on first use and
// acquisition waits at most cfg.StoreAcquireTimeout before failing.
func NewStore(cfg *config.Config) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.MemgraphURI,
		neo4j.BasicAuth(cfg.MemgraphUser, cfg.MemgraphPassword, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = cfg.StoreMaxPoolSize
			c.ConnectionAcquisitionTimeout = cfg.StoreAcquireTimeout
			c.MaxConnectionLifetime = cfg.StoreMaxConnLifetime
		},
	)
	if err != nil {
		return nil, pkgerrors.NewUpstreamStoreError("open driver", err)
	}
	return NewStoreWithDriver(driver), nil
}

// NewStoreWithDriver wraps an existing driver, mainly for tests
func NewStoreWithDriver(driver neo4j.DriverWithContext) *Store {
	return &Store{
		driver: driver,
		logger: logger.Get(),
	}
}

// Close closes the underlying driver and its connection pool
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Ping smoke-tests the Memgraph connection
func (s *Store) Ping(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, "RETURN 1 AS n", nil)
	if err != nil {
		return pkgerrors.NewUpstreamStoreError("ping", err)
	}
	if _, err := result.Single(ctx); err != nil {
		return pkgerrors.NewUpstreamStoreError("ping", err)
	}
	return nil
}

// ErrNotFound is returned by ownership-filtered lookups. It is returned
// identically whether the id does not exist or the node belongs to another
// owner, so its absence leaks no existence information.
type ErrNotFound struct {
	Label string
	ID    string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", strings.ToLower(e.Label), e.ID)
}

// IsNotFound reports whether err is an ownership-filtered lookup miss
func IsNotFound(err error) bool {
	_, ok := err.(ErrNotFound)
	return ok
}
