package store

import (
	"context"
	"errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/ambridge/internal/driver"
)

type executedQuery struct {
	Query  string
	Params map[string]interface{}
}

// MockDriver records every query and answers from Results in order; once
// the queue is drained it returns an empty result.
type MockDriver struct {
	Calls   []executedQuery
	Results []*driver.Result
	Err     error
	FailOn  int // 1-based call index that returns Err; 0 fails every call
	Closed  bool
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (*driver.Result, error) {
	m.Calls = append(m.Calls, executedQuery{Query: query, Params: params})
	if m.Err != nil && (m.FailOn == 0 || m.FailOn == len(m.Calls)) {
		return nil, m.Err
	}
	if len(m.Results) == 0 {
		return &driver.Result{}, nil
	}
	res := m.Results[0]
	m.Results = m.Results[1:]
	return res, nil
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	m.Closed = true
	return nil
}

var errRejected = errors.New("rejected by server")

func record(kv ...interface{}) *neo4j.Record {
	rec := &neo4j.Record{}
	for i := 0; i+1 < len(kv); i += 2 {
		rec.Keys = append(rec.Keys, kv[i].(string))
		rec.Values = append(rec.Values, kv[i+1])
	}
	return rec
}

func rows(recs ...*neo4j.Record) *driver.Result {
	return &driver.Result{Records: recs}
}
