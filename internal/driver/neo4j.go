package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/ambridge/internal/config"
	"github.com/agenthands/ambridge/internal/logger"
)

type Neo4jDriver struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *logger.Logger
}

// NewNeo4jDriver opens a bolt connection pool and verifies connectivity.
func NewNeo4jDriver(cfg config.GraphConfig, log *logger.Logger) (*Neo4jDriver, error) {
	log = logger.OrNop(log)
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""), func(c *neo4j.Config) {
		if cfg.MaxPoolSize > 0 {
			c.MaxConnectionPoolSize = cfg.MaxPoolSize
		}
		if timeout > 0 {
			c.SocketConnectTimeout = timeout
		}
	})
	if err != nil {
		return nil, fmt.Errorf("init graph driver: %w", err)
	}

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify graph connectivity: %w", err)
	}

	log.Info("connected to graph store", "uri", cfg.URI, "database", cfg.Database)
	return &Neo4jDriver{Driver: driver, Database: cfg.Database, log: log}, nil
}

func (d *Neo4jDriver) Close(ctx context.Context) error {
	if d == nil || d.Driver == nil {
		return nil
	}
	return d.Driver.Close(ctx)
}

func (d *Neo4jDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (*Result, error) {
	var opts []neo4j.ExecuteQueryConfigurationOption
	if d.Database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(d.Database))
	}
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	out := &Result{Records: result.Records}
	if result.Summary != nil {
		c := result.Summary.Counters()
		out.Counters = Counters{
			NodesCreated:         c.NodesCreated(),
			NodesDeleted:         c.NodesDeleted(),
			RelationshipsCreated: c.RelationshipsCreated(),
			RelationshipsDeleted: c.RelationshipsDeleted(),
			PropertiesSet:        c.PropertiesSet(),
		}
	}
	return out, nil
}

// BuildIndices creates the uniqueness constraints backing the node keys.
func (d *Neo4jDriver) BuildIndices(ctx context.Context) error {
	for _, q := range SchemaQueries {
		if _, err := d.ExecuteQuery(ctx, q, nil); err != nil {
			// The constraint may already exist under another name.
			d.log.Warn("failed to create constraint", "query", q, "error", err)
		}
	}
	return nil
}
