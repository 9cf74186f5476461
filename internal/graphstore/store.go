// Package graphstore provides the labeled-property graph store backend used
// by the temporal knowledge graph writer, the DSA delta/compaction layer,
// and the exporter. It is backed by Dgraph, replacing the original
// implementation's Neo4j/Cypher store with Dgraph's gRPC mutation/query API.
package graphstore

import (
	"context"
	"fmt"

	"github.com/dgraph-io/dgo/v230"
	"github.com/dgraph-io/dgo/v230/protos/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Store is the minimal query/mutate surface the temporal KG writer, DSA
// layer, and exporter depend on. Keeping it narrow (rather than exposing the
// full *dgo.Dgraph client) lets tests substitute a fake without pulling in a
// live Dgraph cluster, matching the teacher's own small-interface-per-store
// idiom (internal/memory's SemanticStore/EpisodicStore/ProceduralStore).
type Store interface {
	// Alter applies a schema mutation. Idempotent schema operations (string
	// schema that already matches) are treated as success by callers.
	Alter(ctx context.Context, schema string) error
	// Mutate runs a single mutation transaction and commits it.
	Mutate(ctx context.Context, setJSON []byte) error
	// Delete runs a single delete-mutation transaction and commits it.
	Delete(ctx context.Context, deleteJSON []byte) error
	// NewTxn returns a multi-step transaction for callers that need to pin a
	// read and commit a related write atomically (DSA compaction, §4.5).
	NewTxn() Txn
	// Query runs a read-only DQL query and returns the raw JSON response.
	Query(ctx context.Context, query string) ([]byte, error)
	QueryWithVars(ctx context.Context, query string, vars map[string]string) ([]byte, error)
	Close() error
}

// Txn is a pinned read-then-write transaction. Used by the compactor to
// select pending deltas and, in the same transaction, transition exactly
// those deltas to "compacted" (spec §4.5 ordering guarantee).
type Txn interface {
	Query(ctx context.Context, query string) ([]byte, error)
	Mutate(ctx context.Context, setJSON []byte) error
	Commit(ctx context.Context) error
	Discard(ctx context.Context)
}

// DgraphStore is the production Store implementation.
type DgraphStore struct {
	client *dgo.Dgraph
	conn   *grpc.ClientConn
}

// Dial connects to a Dgraph Alpha gRPC endpoint (e.g. "localhost:9080").
func Dial(addr string) (*DgraphStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("graphstore: dial %s: %w", addr, err)
	}
	client := dgo.NewDgraphClient(api.NewDgraphClient(conn))
	return &DgraphStore{client: client, conn: conn}, nil
}

func (s *DgraphStore) Alter(ctx context.Context, schema string) error {
	return s.client.Alter(ctx, &api.Operation{Schema: schema})
}

func (s *DgraphStore) Mutate(ctx context.Context, setJSON []byte) error {
	txn := s.client.NewTxn()
	defer txn.Discard(ctx)
	_, err := txn.Mutate(ctx, &api.Mutation{SetJson: setJSON, CommitNow: true})
	return err
}

func (s *DgraphStore) Delete(ctx context.Context, deleteJSON []byte) error {
	txn := s.client.NewTxn()
	defer txn.Discard(ctx)
	_, err := txn.Mutate(ctx, &api.Mutation{DeleteJson: deleteJSON, CommitNow: true})
	return err
}

func (s *DgraphStore) Query(ctx context.Context, query string) ([]byte, error) {
	txn := s.client.NewReadOnlyTxn()
	defer txn.Discard(ctx)
	resp, err := txn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return resp.Json, nil
}

func (s *DgraphStore) QueryWithVars(ctx context.Context, query string, vars map[string]string) ([]byte, error) {
	txn := s.client.NewReadOnlyTxn()
	defer txn.Discard(ctx)
	resp, err := txn.QueryWithVars(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return resp.Json, nil
}

func (s *DgraphStore) NewTxn() Txn {
	return &dgraphTxn{txn: s.client.NewTxn()}
}

func (s *DgraphStore) Close() error {
	return s.conn.Close()
}

type dgraphTxn struct {
	txn *dgo.Txn
}

func (t *dgraphTxn) Query(ctx context.Context, query string) ([]byte, error) {
	resp, err := t.txn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return resp.Json, nil
}

func (t *dgraphTxn) Mutate(ctx context.Context, setJSON []byte) error {
	_, err := t.txn.Mutate(ctx, &api.Mutation{SetJson: setJSON})
	return err
}

func (t *dgraphTxn) Commit(ctx context.Context) error {
	return t.txn.Commit(ctx)
}

func (t *dgraphTxn) Discard(ctx context.Context) {
	t.txn.Discard(ctx)
}

// IsAlreadyExistsErr reports whether err represents a schema/constraint
// clash that should be swallowed and treated as success, per spec §7
// ("Schema-migration clash" policy) — ported from dsa_schema.py's
// case-insensitive substring check on the returned error message.
func IsAlreadyExistsErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return containsFold(msg, "already exist") || containsFold(msg, "already define") || containsFold(msg, "duplicate")
}

func containsFold(s, substr string) bool {
	sl, subl := []rune(s), []rune(substr)
	toLower := func(rs []rune) []rune {
		out := make([]rune, len(rs))
		for i, r := range rs {
			if r >= 'A' && r <= 'Z' {
				r = r - 'A' + 'a'
			}
			out[i] = r
		}
		return out
	}
	sl, subl = toLower(sl), toLower(subl)
	n, m := len(sl), len(subl)
	if m == 0 {
		return true
	}
	for i := 0; i+m <= n; i++ {
		match := true
		for j := 0; j < m; j++ {
			if sl[i+j] != subl[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
