package driver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Counters are the write statistics of one query.
type Counters struct {
	NodesCreated         int
	NodesDeleted         int
	RelationshipsCreated int
	RelationshipsDeleted int
	PropertiesSet        int
}

// Result is the eagerly collected outcome of one query.
type Result struct {
	Records  []*neo4j.Record
	Counters Counters
}

// GraphDriver runs one Cypher query per call. Each call is its own
// transaction; nothing spans calls.
type GraphDriver interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (*Result, error)
	BuildIndices(ctx context.Context) error
	Close(ctx context.Context) error
}
