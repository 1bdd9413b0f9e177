package weather

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ecosphere/forecast/pkg/types"
	_ "github.com/mattn/go-sqlite3"
)

// ObservationCache persists historical weather observations locally so
// repeated training fetches for the same site don't spend API budget.
// Observations are keyed by coordinate and hour; historical weather never
// changes, so replacing an existing row is always safe.
type ObservationCache struct {
	db *sql.DB
	mu sync.RWMutex
}

// OpenObservationCache opens (creating if needed) the cache database at path.
func OpenObservationCache(path string) (*ObservationCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_sync=NORMAL&_cache=shared")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	c := &ObservationCache{db: db}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return c, nil
}

func (c *ObservationCache) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS observations (
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		timestamp DATETIME NOT NULL,
		temperature REAL NOT NULL,
		cloud_cover REAL NOT NULL,
		shortwave_radiation REAL NOT NULL,
		direct_radiation REAL NOT NULL,
		diffuse_radiation REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (latitude, longitude, timestamp)
	);

	CREATE INDEX IF NOT EXISTS idx_observations_created_at ON observations(created_at);
	`
	_, err := c.db.Exec(schema)
	return err
}

// coordKey rounds a coordinate so lookups hit the rows writes produced.
func coordKey(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Store upserts a batch of observations for one coordinate.
func (c *ObservationCache) Store(ctx context.Context, latitude, longitude float64, obs []types.WeatherObservation) error {
	if len(obs) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO observations (
			latitude, longitude, timestamp, temperature, cloud_cover,
			shortwave_radiation, direct_radiation, diffuse_radiation
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ob := range obs {
		_, err := stmt.ExecContext(ctx,
			coordKey(latitude),
			coordKey(longitude),
			ob.Timestamp.UTC(),
			ob.Temperature,
			ob.CloudCover,
			ob.ShortwaveRadiation,
			ob.DirectRadiation,
			ob.DiffuseRadiation,
		)
		if err != nil {
			return fmt.Errorf("failed to store observation: %w", err)
		}
	}
	return tx.Commit()
}

// GetRange returns cached observations for a coordinate in [start, end),
// ordered by timestamp.
func (c *ObservationCache) GetRange(ctx context.Context, latitude, longitude float64, start, end time.Time) ([]types.WeatherObservation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.QueryContext(ctx, `
		SELECT timestamp, temperature, cloud_cover, shortwave_radiation,
			   direct_radiation, diffuse_radiation
		FROM observations
		WHERE latitude = ? AND longitude = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC
	`, coordKey(latitude), coordKey(longitude), start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var obs []types.WeatherObservation
	for rows.Next() {
		var ob types.WeatherObservation
		if err := rows.Scan(
			&ob.Timestamp,
			&ob.Temperature,
			&ob.CloudCover,
			&ob.ShortwaveRadiation,
			&ob.DirectRadiation,
			&ob.DiffuseRadiation,
		); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		ob.Timestamp = ob.Timestamp.UTC()
		obs = append(obs, ob)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating observations: %w", err)
	}
	return obs, nil
}

// Cleanup removes rows cached more than retentionDays ago.
func (c *ObservationCache) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	res, err := c.db.ExecContext(ctx, `DELETE FROM observations WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup observations: %w", err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}

// Close closes the underlying database.
func (c *ObservationCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Close()
}
