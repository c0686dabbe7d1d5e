package crawler

import (
	"context"

	"geoselector/pkg/selector"
	"geoselector/pkg/store"
)

// QueryClient defines the selector queries the crawler issues
type QueryClient interface {
	FetchRegion(ctx context.Context, auth selector.AuthContext, geoID int64) (*selector.RegionResponse, error)
	FetchMetro(ctx context.Context, auth selector.AuthContext, geoID, gid int64) (*selector.MetroResponse, error)
	FetchSubloc(ctx context.Context, auth selector.AuthContext, geoID, gid int64) (*selector.SublocResponse, error)
}

// Gateway defines the writes the crawler performs
type Gateway interface {
	ResetTables(ctx context.Context) error
	InsertRegion(ctx context.Context, r store.Region) error
	InsertStation(ctx context.Context, st store.Station) error
	InsertSublocality(ctx context.Context, sl store.Sublocality) error
}

// Observer is notified after every node is fully processed
type Observer interface {
	NodeVisited(visited int, region store.Region, stations, sublocalities int)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(visited int, region store.Region, stations, sublocalities int)

func (f ObserverFunc) NodeVisited(visited int, region store.Region, stations, sublocalities int) {
	f(visited, region, stations, sublocalities)
}
