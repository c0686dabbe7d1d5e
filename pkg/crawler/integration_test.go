package crawler

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoselector/internal/selectortest"
	errs "geoselector/pkg/errors"
	"geoselector/pkg/logger"
	"geoselector/pkg/selector"
	"geoselector/pkg/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, store.Options{
		Driver: store.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "geo.db"),
		Logger: logger.NewNopLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.EnsureSchema(ctx))
	return s
}

func crawlOnce(t *testing.T, srv *selectortest.Server, s *store.Store) (Result, error) {
	t.Helper()
	ctx := context.Background()
	client := selector.NewClient(srv.SelectorConfig(), selector.Options{Logger: logger.NewNopLogger()})
	auth, err := client.Bootstrap(ctx)
	require.NoError(t, err)

	c := New(client, s, Options{StrictParents: true, Logger: logger.NewNopLogger()})
	return c.Run(ctx, auth, 0)
}

func TestCrawlSampleTreeIntoSQLite(t *testing.T) {
	srv := selectortest.New(selectortest.SampleTree()...)
	defer srv.Close()
	s := openStore(t)
	ctx := context.Background()

	res, err := crawlOnce(t, srv, s)
	require.NoError(t, err)
	assert.Equal(t, Result{Regions: 4, Stations: 3, Sublocalities: 1, Visited: 4, Duration: res.Duration}, res)

	regions, err := s.Regions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []store.Region{
		{ID: 1, RGID: 225, Name: "Россия", ParentID: store.RootParentID},
		{ID: 10, RGID: 213, Name: "Москва", ParentID: 1, HasMetro: true, HasSubloc: true},
		{ID: 11, RGID: 216, Name: "Зеленоград", ParentID: 10},
		{ID: 12, RGID: 2, Name: "Санкт-Петербург", ParentID: 1, HasMetro: true},
	}, regions)

	stations, err := s.Stations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []store.Station{
		{ID: 20300, Name: "Невский проспект", RegionID: 12},
		{ID: 20475, Name: "Арбатская", RegionID: 10},
		{ID: 20476, Name: "Охотный Ряд", RegionID: 10},
	}, stations)

	subs, err := s.Sublocalities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []store.Sublocality{{ID: 12439, Name: "Хамовники", RegionID: 10}}, subs)

	// pre-order: Россия, Москва, Зеленоград, Санкт-Петербург
	var order []string
	for _, r := range srv.RequestsTo(selector.EndpointGet) {
		order = append(order, r.GeoID)
	}
	assert.Equal(t, []string{"0", "213", "216", "2"}, order)

	metro := srv.RequestsTo(selector.EndpointMetro)
	require.Len(t, metro, 2)
	assert.Equal(t, selectortest.Request{Endpoint: selector.EndpointMetro, GeoID: "213", GID: "10"}, metro[0])
}

func TestCrawlTwiceReplacesContents(t *testing.T) {
	srv := selectortest.New(selectortest.SampleTree()...)
	defer srv.Close()
	s := openStore(t)
	ctx := context.Background()

	_, err := crawlOnce(t, srv, s)
	require.NoError(t, err)
	first, err := s.Counts(ctx)
	require.NoError(t, err)

	_, err = crawlOnce(t, srv, s)
	require.NoError(t, err)
	second, err := s.Counts(ctx)
	require.NoError(t, err)

	assert.Equal(t, store.Counts{Regions: 4, Stations: 3, Sublocalities: 1}, first)
	assert.Equal(t, first, second)
}

func TestCrawlRecoversFromTransientFailures(t *testing.T) {
	srv := selectortest.New(selectortest.SampleTree()...)
	defer srv.Close()
	srv.FailNext(selector.EndpointGet, 2)
	srv.DropNext(selector.EndpointMetro, 1)
	s := openStore(t)

	res, err := crawlOnce(t, srv, s)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Regions)
	assert.Equal(t, 3, res.Stations)
}

func TestCrawlDuplicateRegionAborts(t *testing.T) {
	nodes := selectortest.SampleTree()
	// Санкт-Петербург reports the same id as Москва
	nodes[3].ID = 10
	srv := selectortest.New(nodes...)
	defer srv.Close()
	s := openStore(t)

	res, err := crawlOnce(t, srv, s)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrDuplicateEntity)
	assert.Equal(t, "persist", errs.Phase(err))
	assert.Equal(t, 3, res.Regions)
}
