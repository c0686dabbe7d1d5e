package crawler

import (
	"context"
	"fmt"
	"strings"
	"time"

	errs "geoselector/pkg/errors"
	"geoselector/pkg/logger"
	"geoselector/pkg/selector"
	"geoselector/pkg/store"
)

// Options configures a Crawler
type Options struct {
	// StrictParents fails a node whose parent was not persisted earlier in
	// the run. When false the node is stored and a warning is logged.
	StrictParents bool
	// Deadline bounds a whole run; 0 means none
	Deadline  time.Duration
	Observers []Observer
	Logger    logger.Logger
}

// Result summarises a finished run
type Result struct {
	Regions       int
	Stations      int
	Sublocalities int
	Visited       int
	Duration      time.Duration
}

// NodeError locates a failure in the tree
type NodeError struct {
	RGID int64
	Step string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s (rgid %d): %v", e.Step, e.RGID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// Phase names the phase the step belongs to
func (e *NodeError) Phase() string {
	switch {
	case strings.HasPrefix(e.Step, "fetch"):
		return "fetch"
	case strings.HasPrefix(e.Step, "persist"), strings.HasPrefix(e.Step, "reset"):
		return "persist"
	default:
		return "crawl"
	}
}

// Crawler walks the region tree depth-first and persists every node
type Crawler struct {
	client  QueryClient
	gateway Gateway
	opts    Options
	logger  logger.Logger
}

// New creates a Crawler
func New(client QueryClient, gateway Gateway, opts Options) *Crawler {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	return &Crawler{
		client:  client,
		gateway: gateway,
		opts:    opts,
		logger:  log.WithField("component", "crawler"),
	}
}

// run holds the state of one traversal
type run struct {
	auth      selector.AuthContext
	persisted map[int64]bool
	result    Result
}

// Run clears the destination tables and crawls the tree below rootGeoID.
// Children are visited in service order after their parent.
func (c *Crawler) Run(ctx context.Context, auth selector.AuthContext, rootGeoID int64) (Result, error) {
	if c.opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Deadline)
		defer cancel()
	}

	start := time.Now()
	r := &run{
		auth:      auth,
		persisted: make(map[int64]bool),
	}

	c.logger.InfoWithFields("crawl started", map[string]interface{}{
		"root":           rootGeoID,
		"strict_parents": c.opts.StrictParents,
	})

	if err := c.gateway.ResetTables(ctx); err != nil {
		return r.finish(start), &NodeError{RGID: rootGeoID, Step: "reset tables", Err: err}
	}

	stack := []int64{rootGeoID}
	root := true
	for len(stack) > 0 {
		rgid := stack[len(stack)-1]
		if err := ctx.Err(); err != nil {
			return r.finish(start), &NodeError{RGID: rgid, Step: "crawl", Err: err}
		}

		stack = stack[:len(stack)-1]

		children, err := c.visit(ctx, r, rgid, root)
		if err != nil {
			c.logger.WithError(err).ErrorWithFields("crawl aborted", map[string]interface{}{
				"rgid":    rgid,
				"phase":   errs.Phase(err),
				"visited": r.result.Visited,
			})
			return r.finish(start), err
		}
		root = false

		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	result := r.finish(start)
	c.logger.InfoWithFields("crawl finished", map[string]interface{}{
		"regions":       result.Regions,
		"stations":      result.Stations,
		"sublocalities": result.Sublocalities,
		"duration":      result.Duration,
	})
	return result, nil
}

func (r *run) finish(start time.Time) Result {
	r.result.Duration = time.Since(start)
	return r.result
}

// visit persists one node with its stations and sub-localities and
// returns the rgids of its children.
func (c *Crawler) visit(ctx context.Context, r *run, rgid int64, root bool) ([]int64, error) {
	resp, err := c.client.FetchRegion(ctx, r.auth, rgid)
	if err != nil {
		return nil, &NodeError{RGID: rgid, Step: "fetch region", Err: err}
	}

	region, err := c.regionFrom(r, rgid, resp, root)
	if err != nil {
		return nil, &NodeError{RGID: rgid, Step: "read region", Err: err}
	}

	if err := c.gateway.InsertRegion(ctx, region); err != nil {
		return nil, &NodeError{RGID: rgid, Step: "persist region", Err: err}
	}
	r.persisted[region.ID] = true
	r.result.Regions++

	var stations, sublocs int
	if region.HasMetro {
		metro, err := c.client.FetchMetro(ctx, r.auth, region.RGID, region.ID)
		if err != nil {
			return nil, &NodeError{RGID: rgid, Step: "fetch metro", Err: err}
		}
		var list []selector.Entity
		if metro.Metro != nil {
			list = metro.Metro.Stations
		}
		for _, s := range list {
			if s.ID == 0 {
				return nil, &NodeError{RGID: rgid, Step: "fetch metro",
					Err: errs.Newf(errs.ErrorTypeMalformedResponse, "crawler.visit", "station %q has no id", s.Name)}
			}
			st := store.Station{ID: s.ID.Int64(), Name: s.Name, RegionID: region.ID}
			if err := c.gateway.InsertStation(ctx, st); err != nil {
				return nil, &NodeError{RGID: rgid, Step: "persist station", Err: err}
			}
			stations++
		}
	}

	if region.HasSubloc {
		subs, err := c.client.FetchSubloc(ctx, r.auth, region.RGID, region.ID)
		if err != nil {
			return nil, &NodeError{RGID: rgid, Step: "fetch sub-localities", Err: err}
		}
		for _, s := range subs.SubLocalities {
			if s.ID == 0 {
				return nil, &NodeError{RGID: rgid, Step: "fetch sub-localities",
					Err: errs.Newf(errs.ErrorTypeMalformedResponse, "crawler.visit", "sub-locality %q has no id", s.Name)}
			}
			sl := store.Sublocality{ID: s.ID.Int64(), Name: s.Name, RegionID: region.ID}
			if err := c.gateway.InsertSublocality(ctx, sl); err != nil {
				return nil, &NodeError{RGID: rgid, Step: "persist sublocality", Err: err}
			}
			sublocs++
		}
	}

	children := make([]int64, 0, len(resp.Subtree))
	for i, child := range resp.Subtree {
		if child.RGID == 0 {
			return nil, &NodeError{RGID: rgid, Step: "read subtree",
				Err: errs.Newf(errs.ErrorTypeMalformedTree, "crawler.visit", "subtree entry %d has no rgid", i)}
		}
		children = append(children, child.RGID.Int64())
	}

	r.result.Stations += stations
	r.result.Sublocalities += sublocs
	r.result.Visited++

	logger.LogCrawlProgress(c.logger, r.result.Visited, region.RGID, region.ID, region.Name)
	for _, o := range c.opts.Observers {
		o.NodeVisited(r.result.Visited, region, stations, sublocs)
	}
	return children, nil
}

// regionFrom builds the region row and checks its parent link
func (c *Crawler) regionFrom(r *run, rgid int64, resp *selector.RegionResponse, root bool) (store.Region, error) {
	cur := resp.CurrentRegion
	if cur == nil {
		return store.Region{}, errs.New(errs.ErrorTypeMalformedResponse, "crawler.visit", "current-region missing")
	}
	if cur.ID == 0 || cur.RGID == 0 {
		return store.Region{}, errs.Newf(errs.ErrorTypeMalformedResponse, "crawler.visit",
			"current-region %q has no id or rgid", cur.Name)
	}
	region := store.Region{
		ID:        cur.ID.Int64(),
		RGID:      cur.RGID.Int64(),
		Name:      cur.Name,
		HasMetro:  resp.HasRefinement(selector.RefinementMetro),
		HasSubloc: resp.HasRefinement(selector.RefinementSubLocalities),
	}

	switch {
	case len(resp.Parents) > 0:
		region.ParentID = resp.Parents[0].ID.Int64()
		if region.ParentID == 0 {
			return region, errs.Newf(errs.ErrorTypeMalformedResponse, "crawler.visit",
				"region id %d: parents[0] has no id", region.ID)
		}
	case root:
		region.ParentID = store.RootParentID
		return region, nil
	default:
		return region, errs.Newf(errs.ErrorTypeMalformedTree, "crawler.visit",
			"region id %d has no parent", region.ID)
	}

	if root || r.persisted[region.ParentID] {
		return region, nil
	}
	if c.opts.StrictParents {
		return region, errs.Newf(errs.ErrorTypeMalformedTree, "crawler.visit",
			"parent id %d of region id %d was not persisted before it", region.ParentID, region.ID)
	}
	c.logger.WarnWithFields("parent not persisted before child", map[string]interface{}{
		"rgid":      rgid,
		"id":        region.ID,
		"parent_id": region.ParentID,
	})
	return region, nil
}
