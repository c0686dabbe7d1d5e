package selector

import (
	"bytes"
	"fmt"
	"strconv"
)

// AuthContext carries the session material every query needs.
// It is built once by Bootstrap and passed by value.
type AuthContext struct {
	CRC          string
	CookieHeader string
}

// ID is an identifier that the service encodes either as a JSON number
// or as a numeric string.
type ID int64

// UnmarshalJSON accepts 42 and "42". null leaves the value untouched.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = data[1 : len(data)-1]
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n)
	return nil
}

// Int64 returns the identifier as a plain integer
func (id ID) Int64() int64 {
	return int64(id)
}

// RegionRef is a region as it appears in current-region, parents and subtree
type RegionRef struct {
	ID   ID     `json:"id"`
	RGID ID     `json:"rgid"`
	Name string `json:"name"`
}

// RegionResponse is the payload of the get endpoint
type RegionResponse struct {
	CurrentRegion *RegionRef  `json:"current-region"`
	Parents       []RegionRef `json:"parents"`
	Refinements   []string    `json:"refinements"`
	Subtree       []RegionRef `json:"subtree"`
}

// HasRefinement reports whether the region offers the named auxiliary query
func (r *RegionResponse) HasRefinement(name string) bool {
	for _, ref := range r.Refinements {
		if ref == name {
			return true
		}
	}
	return false
}

// Entity is a metro station or a sub-locality
type Entity struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// MetroInfo wraps the station list of the metro endpoint
type MetroInfo struct {
	Stations []Entity `json:"stations"`
}

// MetroResponse is the payload of the metro endpoint
type MetroResponse struct {
	Metro *MetroInfo `json:"metro"`
}

// SublocResponse is the payload of the sub-localities endpoint.
// A missing list decodes as empty.
type SublocResponse struct {
	SubLocalities []Entity `json:"sub-localities"`
}

// envelope is the outer JSON object of every POST response
type envelope struct {
	Response rawJSON `json:"response"`
}

// rawJSON keeps the undecoded response so a missing field can be told apart
// from an explicit null.
type rawJSON []byte

func (r *rawJSON) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

// validate checks the fields the crawler relies on. A missing id decodes
// to 0, which is never a valid region id.
func (r *RegionResponse) validate() error {
	cur := r.CurrentRegion
	if cur == nil {
		return fmt.Errorf("current-region missing")
	}
	if cur.ID == 0 {
		return fmt.Errorf("current-region id missing")
	}
	if cur.RGID == 0 {
		return fmt.Errorf("current-region rgid missing")
	}
	if len(r.Parents) > 0 && r.Parents[0].ID == 0 {
		return fmt.Errorf("parents[0] id missing")
	}
	return nil
}

func validateEntities(kind string, list []Entity) error {
	for i, e := range list {
		if e.ID == 0 {
			return fmt.Errorf("%s %d (%q) has no id", kind, i, e.Name)
		}
	}
	return nil
}
