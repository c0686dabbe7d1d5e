package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "geoselector/pkg/errors"
	"geoselector/pkg/logger"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, Options{
		Driver: DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "data", "geo.db"),
		Logger: logger.NewNopLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.EnsureSchema(ctx))
	return s
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.InsertRegion(ctx, Region{ID: 1, RGID: 225, Name: "Россия", ParentID: RootParentID}))
	require.NoError(t, s.InsertRegion(ctx, Region{ID: 10, RGID: 213, Name: "Москва", ParentID: 1, HasMetro: true, HasSubloc: true}))
	require.NoError(t, s.InsertStation(ctx, Station{ID: 20475, Name: "Арбатская", RegionID: 10}))
	require.NoError(t, s.InsertSublocality(ctx, Sublocality{ID: 12439, Name: "Хамовники", RegionID: 10}))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "oracle", DSN: "x", Logger: logger.NewNopLogger()})
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeConfig, errs.TypeOf(err))

	_, err = Open(context.Background(), Options{Driver: DriverSQLite, Logger: logger.NewNopLogger()})
	assert.Equal(t, errs.ErrorTypeConfig, errs.TypeOf(err))
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.Equal(t, DriverSQLite, s.Driver())
}

func TestInsertAndRead(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)
	ctx := context.Background()

	regions, err := s.Regions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Region{
		{ID: 1, RGID: 225, Name: "Россия", ParentID: 0},
		{ID: 10, RGID: 213, Name: "Москва", ParentID: 1, HasMetro: true, HasSubloc: true},
	}, regions)

	stations, err := s.Stations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Station{{ID: 20475, Name: "Арбатская", RegionID: 10}}, stations)

	subs, err := s.Sublocalities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Sublocality{{ID: 12439, Name: "Хамовники", RegionID: 10}}, subs)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Regions: 2, Stations: 1, Sublocalities: 1}, counts)
}

func TestDuplicateInsert(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)
	ctx := context.Background()

	err := s.InsertRegion(ctx, Region{ID: 10, RGID: 999, Name: "again", ParentID: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrDuplicateEntity)
	assert.Equal(t, "persist", errs.Phase(err))

	err = s.InsertStation(ctx, Station{ID: 20475, Name: "again", RegionID: 10})
	assert.ErrorIs(t, err, errs.ErrDuplicateEntity)

	err = s.InsertSublocality(ctx, Sublocality{ID: 12439, Name: "again", RegionID: 10})
	assert.ErrorIs(t, err, errs.ErrDuplicateEntity)
}

func TestForeignKeysEnforced(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.InsertStation(ctx, Station{ID: 1, Name: "orphan", RegionID: 404})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrIntegrity)

	err = s.InsertSublocality(ctx, Sublocality{ID: 1, Name: "orphan", RegionID: 404})
	assert.ErrorIs(t, err, errs.ErrIntegrity)
}

func TestResetTables(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.ResetTables(ctx))

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{}, counts)

	// ids are free again after a reset
	seed(t, s)
}

func TestResetTablesWithoutSchema(t *testing.T) {
	s, err := Open(context.Background(), Options{Driver: DriverSQLite, DSN: ":memory:", Logger: logger.NewNopLogger()})
	require.NoError(t, err)
	defer s.Close()

	err = s.ResetTables(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrStorage)
}

func TestWithStoreClosesOnError(t *testing.T) {
	var captured *Store
	boom := errors.New("boom")

	err := WithStore(context.Background(), Options{Driver: DriverSQLite, DSN: ":memory:", Logger: logger.NewNopLogger()},
		func(s *Store) error {
			captured = s
			return boom
		})

	assert.ErrorIs(t, err, boom)
	require.NotNil(t, captured)
	assert.Error(t, captured.db.PingContext(context.Background()), "store should be closed")
}

func TestRebind(t *testing.T) {
	pg, err := dialectFor(DriverPostgres)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO station (id, name, region_id) VALUES ($1, $2, $3)",
		pg.rebind("INSERT INTO station (id, name, region_id) VALUES (?, ?, ?)"))

	my, err := dialectFor(DriverMySQL)
	require.NoError(t, err)
	assert.Equal(t, "SELECT ?", my.rebind("SELECT ?"))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "geo.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", sqliteDSN("geo.db"))
	assert.Equal(t, "geo.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", sqliteDSN("geo.db?mode=rwc"))
	assert.Equal(t, "geo.db?_pragma=foreign_keys(0)", sqliteDSN("geo.db?_pragma=foreign_keys(0)"))
}

func TestDriverErrorClassification(t *testing.T) {
	assert.True(t, isDuplicateKey(&pq.Error{Code: "23505"}))
	assert.True(t, isForeignKey(&pq.Error{Code: "23503"}))
	assert.False(t, isDuplicateKey(&pq.Error{Code: "42P01"}))

	assert.True(t, isDuplicateKey(&mysql.MySQLError{Number: 1062}))
	assert.True(t, isForeignKey(&mysql.MySQLError{Number: 1452}))
	assert.False(t, isForeignKey(&mysql.MySQLError{Number: 1146}))

	assert.False(t, isDuplicateKey(errors.New("plain")))
}
