package photostore

import (
	"context"
	"database/sql"

	"github.com/singhkkrish/traceit/internal/store"
)

// SQLite keeps photos as blobs next to the records.
type SQLite struct {
	DB *sql.DB
}

func (s *SQLite) Put(ctx context.Context, id string, data []byte, mime string) error {
	return store.PutPhoto(ctx, s.DB, id, data, mime)
}

func (s *SQLite) Get(ctx context.Context, id string) ([]byte, string, error) {
	return store.GetPhoto(ctx, s.DB, id)
}
