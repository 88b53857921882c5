package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// NetworkDBStorage implements store.NetworkStorage on PostgreSQL. Each network
// is stored as one row in networks plus child rows for its companies,
// partners and connections.
type NetworkDBStorage struct {
	conn      pgxIConn
	chunkSize int
}

type NetworkDBStorageOption func(*NetworkDBStorage)

// WithChunkSize sets how many rows are queued per batch when saving.
func WithChunkSize(size int) NetworkDBStorageOption {
	return func(s *NetworkDBStorage) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// NewNetworkDBStorageWithConnection creates a NetworkDBStorage using an existing
// pool or connection.
func NewNetworkDBStorageWithConnection(conn pgxIConn, opts ...NetworkDBStorageOption) *NetworkDBStorage {
	s := &NetworkDBStorage{
		conn:      conn,
		chunkSize: 1000,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}
