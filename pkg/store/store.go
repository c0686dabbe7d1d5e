package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	errs "geoselector/pkg/errors"
	"geoselector/pkg/logger"
)

// Options selects the database
type Options struct {
	Driver string
	DSN    string
	Logger logger.Logger
}

// Store writes the crawled tree into region, station and sublocality
type Store struct {
	db      *sql.DB
	dialect *dialect
	logger  logger.Logger
}

// Open connects to the database and verifies the connection
func Open(ctx context.Context, opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithFields(map[string]interface{}{"component": "store", "driver": opts.Driver})

	d, err := dialectFor(opts.Driver)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfig, "store.open", err)
	}
	if opts.DSN == "" {
		return nil, errs.New(errs.ErrorTypeConfig, "store.open", "empty DSN")
	}

	dsn := opts.DSN
	if d.name == DriverSQLite {
		if err := ensureSQLiteDir(dsn); err != nil {
			return nil, errs.Wrap(errs.ErrorTypeStorage, "store.open", err)
		}
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(d.name, dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeStorage, "store.open", err)
	}

	if d.name == DriverSQLite {
		// single writer; also keeps a :memory: database alive across calls
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetConnMaxLifetime(time.Hour)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(errs.ErrorTypeStorage, "store.open", fmt.Errorf("ping: %w", err))
	}

	log.Debug("database connected")
	return &Store{db: db, dialect: d, logger: log}, nil
}

func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0750)
}

// Close releases the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the name of the database driver in use
func (s *Store) Driver() string {
	return s.dialect.name
}

// WithStore opens a store, runs fn and closes the store on every path
func WithStore(ctx context.Context, opts Options, fn func(*Store) error) (err error) {
	s, err := Open(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			err = errors.Join(err, errs.Wrap(errs.ErrorTypeStorage, "store.close", cerr))
		}
	}()
	return fn(s)
}

// ResetTables empties sublocality, station and region in one transaction
func (s *Store) ResetTables(ctx context.Context) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.classify("store.reset", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"sublocality", "station", "region"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return s.classify("store.reset", fmt.Errorf("clear %s: %w", table, err))
		}
	}
	if err = tx.Commit(); err != nil {
		return s.classify("store.reset", err)
	}

	s.logger.Info("tables cleared")
	return nil
}

// InsertRegion writes one region row
func (s *Store) InsertRegion(ctx context.Context, r Region) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO region (id, rgid, name, parent_id, has_metro, has_subloc) VALUES (?, ?, ?, ?, ?, ?)`),
		r.ID, r.RGID, r.Name, r.ParentID, r.HasMetro, r.HasSubloc)
	if err != nil {
		return s.classify("store.insert_region", fmt.Errorf("region id %d: %w", r.ID, err))
	}
	return nil
}

// InsertStation writes one station row
func (s *Store) InsertStation(ctx context.Context, st Station) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO station (id, name, region_id) VALUES (?, ?, ?)`),
		st.ID, st.Name, st.RegionID)
	if err != nil {
		return s.classify("store.insert_station", fmt.Errorf("station id %d: %w", st.ID, err))
	}
	return nil
}

// InsertSublocality writes one sublocality row
func (s *Store) InsertSublocality(ctx context.Context, sl Sublocality) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO sublocality (id, name, region_id) VALUES (?, ?, ?)`),
		sl.ID, sl.Name, sl.RegionID)
	if err != nil {
		return s.classify("store.insert_sublocality", fmt.Errorf("sublocality id %d: %w", sl.ID, err))
	}
	return nil
}

// classify maps driver errors onto the error taxonomy
func (s *Store) classify(op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case isDuplicateKey(err):
		return errs.Wrap(errs.ErrorTypeDuplicateEntity, op, err)
	case isForeignKey(err):
		return errs.Wrap(errs.ErrorTypeIntegrity, op, err)
	default:
		return errs.Wrap(errs.ErrorTypeStorage, op, err)
	}
}
