package store

import (
	"context"
	"fmt"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS region (
		id INTEGER PRIMARY KEY,
		rgid INTEGER NOT NULL,
		name TEXT NOT NULL,
		parent_id INTEGER NOT NULL,
		has_metro INTEGER NOT NULL DEFAULT 0,
		has_subloc INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS station (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		region_id INTEGER NOT NULL REFERENCES region(id) ON DELETE CASCADE ON UPDATE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS sublocality (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		region_id INTEGER NOT NULL REFERENCES region(id) ON DELETE CASCADE ON UPDATE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_station_region ON station(region_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sublocality_region ON sublocality(region_id)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS region (
		id BIGINT PRIMARY KEY,
		rgid BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		parent_id BIGINT NOT NULL,
		has_metro BOOLEAN NOT NULL DEFAULT FALSE,
		has_subloc BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS station (
		id BIGINT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		region_id BIGINT NOT NULL REFERENCES region(id) ON DELETE CASCADE ON UPDATE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS sublocality (
		id BIGINT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		region_id BIGINT NOT NULL REFERENCES region(id) ON DELETE CASCADE ON UPDATE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_station_region ON station(region_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sublocality_region ON sublocality(region_id)`,
}

// InnoDB indexes foreign key columns on its own
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS region (
		id BIGINT NOT NULL,
		rgid BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		parent_id BIGINT NOT NULL,
		has_metro TINYINT(1) NOT NULL DEFAULT 0,
		has_subloc TINYINT(1) NOT NULL DEFAULT 0,
		PRIMARY KEY (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS station (
		id BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		region_id BIGINT NOT NULL,
		PRIMARY KEY (id),
		CONSTRAINT fk_station_region FOREIGN KEY (region_id) REFERENCES region(id)
			ON DELETE CASCADE ON UPDATE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS sublocality (
		id BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		region_id BIGINT NOT NULL,
		PRIMARY KEY (id),
		CONSTRAINT fk_sublocality_region FOREIGN KEY (region_id) REFERENCES region(id)
			ON DELETE CASCADE ON UPDATE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the region, station and sublocality tables when
// they are missing. Existing tables are left untouched.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for i, stmt := range s.dialect.schema {
		s.logger.DebugWithFields("schema statement", map[string]interface{}{"idx": i})
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return s.classify("store.ensure_schema", fmt.Errorf("statement %d: %w", i, err))
		}
	}
	s.logger.Info("schema ready")
	return nil
}
