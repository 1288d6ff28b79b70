package embeddings

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"sort"
	"strings"

	"github.com/meridian-news/meridian-ml/errors"
)

// lookupChunk stays well under SQLite's bound-parameter limit
const lookupChunk = 500

// SQLiteCache is a Cache over the embedding_cache table created by the db
// migrations. Vectors are stored as little-endian float32 blobs.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache uses an already migrated database.
func NewSQLiteCache(db *sql.DB) *SQLiteCache {
	return &SQLiteCache{db: db}
}

func (c *SQLiteCache) Lookup(ctx context.Context, keys []string) (map[string][]float32, error) {
	found := make(map[string][]float32, len(keys))
	for start := 0; start < len(keys); start += lookupChunk {
		chunk := keys[start:min(start+lookupChunk, len(keys))]
		if err := c.lookupChunk(ctx, chunk, found); err != nil {
			return nil, err
		}
	}
	return found, nil
}

func (c *SQLiteCache) lookupChunk(ctx context.Context, keys []string, found map[string][]float32) error {
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	query := "SELECT key, vector FROM embedding_cache WHERE key IN (" +
		strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",") + ")"

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "failed to query embedding cache")
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var blob []byte
		if err := rows.Scan(&key, &blob); err != nil {
			return errors.Wrap(err, "failed to scan embedding cache row")
		}
		vec, err := DecodeVector(blob)
		if err != nil {
			return errors.Wrapf(err, "corrupt cache entry %s", key)
		}
		found[key] = vec
	}
	return errors.Wrap(rows.Err(), "failed to read embedding cache")
}

// Store upserts entries in one transaction, in key order.
func (c *SQLiteCache) Store(ctx context.Context, model string, entries map[string][]float32) error {
	if len(entries) == 0 {
		return nil
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin cache transaction")
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO embedding_cache (key, model, dimensions, vector)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			vector = excluded.vector,
			dimensions = excluded.dimensions,
			last_used_at = CURRENT_TIMESTAMP`)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "failed to prepare cache insert")
	}
	defer stmt.Close()

	for _, k := range keys {
		vec := entries[k]
		if _, err := stmt.ExecContext(ctx, k, model, len(vec), EncodeVector(vec)); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "failed to store cache entry %s", k)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit cache transaction")
	}
	return nil
}

// EncodeVector serializes a vector as little-endian float32s.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeVector is the inverse of EncodeVector.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, errors.Newf("invalid embedding data length: %d", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
