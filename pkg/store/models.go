package store

// RootParentID is written as parent_id of the crawl root
const RootParentID int64 = 0

// Region is one node of the region tree
type Region struct {
	ID        int64
	RGID      int64
	Name      string
	ParentID  int64
	HasMetro  bool
	HasSubloc bool
}

// Station is a metro station of a region
type Station struct {
	ID       int64
	Name     string
	RegionID int64
}

// Sublocality is a district of a region
type Sublocality struct {
	ID       int64
	Name     string
	RegionID int64
}

// Counts holds the row count of every table
type Counts struct {
	Regions       int
	Stations      int
	Sublocalities int
}
