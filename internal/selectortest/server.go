// Package selectortest runs an in-process fake of the geoselector gate for
// tests. It serves a landing page carrying a crc token and cookies, and
// answers get, metro and sub-localities queries from a fixture tree.
package selectortest

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"geoselector/pkg/config"
)

const gatePath = "/gate/geoselector/"

// Default session material served by the landing page
const (
	DefaultCRC = "y5f1e0b9a8c7d6e5f4a3b2c1d0e9f8a7b"
)

// DefaultCookies are sent as Set-Cookie headers by the landing page
var DefaultCookies = []string{
	"yandexuid=1234567891700000000; Path=/; Domain=.yandex.ru; Expires=Fri, 01 Jan 2038 00:00:00 GMT",
	"spravka=dD0xNzAwMDAwMDAw; Path=/; HttpOnly",
}

// Entity is a station or sub-locality fixture
type Entity struct {
	ID   int64
	Name string
}

// Node is one region of the fixture tree
type Node struct {
	ID   int64
	RGID int64
	Name string
	// ParentID is reported in parents unless the node is the root or
	// OmitParents is set
	ParentID      int64
	OmitParents   bool
	Refinements   []string
	Stations      []Entity
	Sublocalities []Entity
	// Children lists child rgids in service order
	Children []int64
	// StringIDs encodes id and rgid as JSON strings
	StringIDs bool
}

// Request is a query received by the fake
type Request struct {
	Endpoint string
	GeoID    string
	GID      string
}

// Server is a fake selector service
type Server struct {
	server *httptest.Server

	mu        sync.Mutex
	nodes     map[int64]Node
	rootRGID  int64
	crc       string
	cookies   []string
	frontPage string
	failures  map[string]int
	drops     map[string]int
	broken    map[string]bool
	delays    map[string]time.Duration
	requests  []Request
	pageHits  int
}

// New starts a fake serving the given tree. The first node is the root
// and also answers geoId 0.
func New(nodes ...Node) *Server {
	s := &Server{
		nodes:    make(map[int64]Node, len(nodes)),
		crc:      DefaultCRC,
		cookies:  DefaultCookies,
		failures: make(map[string]int),
		drops:    make(map[string]int),
		broken:   make(map[string]bool),
		delays:   make(map[string]time.Duration),
	}
	for i, n := range nodes {
		if i == 0 {
			s.rootRGID = n.RGID
		}
		s.nodes[n.RGID] = n
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleFrontPage)
	mux.HandleFunc(gatePath, s.handleGate)
	s.server = httptest.NewServer(mux)
	return s
}

// Close shuts the server down
func (s *Server) Close() {
	s.server.Close()
}

// URL returns the base URL of the fake
func (s *Server) URL() string {
	return s.server.URL
}

// SelectorConfig returns a client configuration pointing at the fake
func (s *Server) SelectorConfig() config.SelectorConfig {
	return config.SelectorConfig{
		FrontPageURL: s.server.URL + "/",
		PostURL:      s.server.URL + gatePath,
		UserAgent:    "geoselector-test",
		Timeout:      5 * time.Second,
	}
}

// SetFrontPage replaces the landing page HTML
func (s *Server) SetFrontPage(page string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frontPage = page
}

// SetNode adds or replaces a node
func (s *Server) SetNode(n Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.RGID] = n
}

// FailNext answers the next n requests to endpoint with 503.
// The landing page is addressed as endpoint "".
func (s *Server) FailNext(endpoint string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[endpoint] += n
}

// DropNext closes the connection of the next n requests to endpoint
func (s *Server) DropNext(endpoint string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drops[endpoint] += n
}

// BreakEnvelope makes endpoint answer JSON without a response field
func (s *Server) BreakEnvelope(endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken[endpoint] = true
}

// Delay slows every answer of endpoint down
func (s *Server) Delay(endpoint string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[endpoint] = d
}

// Requests returns the queries received so far, in order
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns the queries received by one endpoint
func (s *Server) RequestsTo(endpoint string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Endpoint == endpoint {
			out = append(out, r)
		}
	}
	return out
}

// FrontPageHits returns how many times the landing page was served
func (s *Server) FrontPageHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageHits
}

// CookieHeader is the Cookie value a client should send back
func (s *Server) CookieHeader() string {
	pairs := make([]string, 0, len(s.cookies))
	for _, c := range s.cookies {
		pairs = append(pairs, strings.SplitN(c, ";", 2)[0])
	}
	return strings.Join(pairs, "; ")
}

// takeFault consumes one injected fault for endpoint
func (s *Server) takeFault(endpoint string) (fail, drop bool, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delay = s.delays[endpoint]
	if s.drops[endpoint] > 0 {
		s.drops[endpoint]--
		return false, true, delay
	}
	if s.failures[endpoint] > 0 {
		s.failures[endpoint]--
		return true, false, delay
	}
	return false, false, delay
}

func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	conn.Close()
}

func (s *Server) handleFrontPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	fail, drop, delay := s.takeFault("")
	if delay > 0 {
		time.Sleep(delay)
	}
	if drop {
		dropConnection(w)
		return
	}
	if fail {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	s.mu.Lock()
	s.pageHits++
	page := s.frontPage
	cookies := s.cookies
	crc := s.crc
	s.mu.Unlock()

	if page == "" {
		page = RenderFrontPage(crc)
	}
	for _, c := range cookies {
		w.Header().Add("Set-Cookie", c)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, page)
}

// RenderFrontPage builds a landing page embedding crc the way the real one does
func RenderFrontPage(crc string) string {
	params, _ := json.Marshal(map[string]interface{}{
		"i-global": map[string]interface{}{
			"crc":  crc,
			"lang": "ru",
			"tld":  "ru",
		},
		"b-page": map[string]interface{}{},
	})
	return `<!DOCTYPE html><html><head><title>Недвижимость</title></head>` +
		`<body class="b-page i-global i-bem" onclick="return ` + html.EscapeString(string(params)) + `">` +
		`<div class="b-head"></div></body></html>`
}

func (s *Server) handleGate(w http.ResponseWriter, r *http.Request) {
	endpoint := strings.TrimPrefix(r.URL.Path, gatePath)
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	req := Request{
		Endpoint: endpoint,
		GeoID:    r.PostForm.Get("params[geoId]"),
		GID:      r.PostForm.Get("params[gid]"),
	}

	fail, drop, delay := s.takeFault(endpoint)
	if delay > 0 {
		time.Sleep(delay)
	}
	if drop {
		dropConnection(w)
		return
	}
	if fail {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	if r.PostForm.Get("crc") != s.crc || r.Header.Get("Cookie") != s.CookieHeader() {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	broken := s.broken[endpoint]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if broken {
		fmt.Fprint(w, `{"error":"internal"}`)
		return
	}

	geoID, err := strconv.ParseInt(req.GeoID, 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var response interface{}
	switch endpoint {
	case "get":
		response = s.regionPayload(geoID)
	case "metro":
		if n, ok := s.node(geoID); ok {
			response = map[string]interface{}{
				"metro": map[string]interface{}{"stations": entities(n.Stations)},
			}
		}
	case "sub-localities":
		if n, ok := s.node(geoID); ok {
			response = map[string]interface{}{"sub-localities": entities(n.Sublocalities)}
		}
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{"response": response})
}

func (s *Server) node(geoID int64) (Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if geoID == 0 {
		geoID = s.rootRGID
	}
	n, ok := s.nodes[geoID]
	return n, ok
}

func (s *Server) regionPayload(geoID int64) interface{} {
	n, ok := s.node(geoID)
	if !ok {
		return nil
	}

	id := func(v int64) interface{} {
		if n.StringIDs {
			return strconv.FormatInt(v, 10)
		}
		return v
	}

	parents := []interface{}{}
	if n.RGID != s.rootRGID && !n.OmitParents {
		parents = append(parents, map[string]interface{}{"id": id(n.ParentID)})
	}

	payload := map[string]interface{}{
		"current-region": map[string]interface{}{
			"id":   id(n.ID),
			"rgid": id(n.RGID),
			"name": n.Name,
		},
		"parents": parents,
	}
	if n.Refinements != nil {
		payload["refinements"] = n.Refinements
	}
	if len(n.Children) > 0 {
		subtree := make([]interface{}, 0, len(n.Children))
		for _, child := range n.Children {
			entry := map[string]interface{}{"rgid": id(child)}
			if c, ok := s.node(child); ok {
				entry["id"] = id(c.ID)
				entry["name"] = c.Name
			}
			subtree = append(subtree, entry)
		}
		payload["subtree"] = subtree
	}
	return payload
}

func entities(list []Entity) []interface{} {
	out := make([]interface{}, 0, len(list))
	for _, e := range list {
		out = append(out, map[string]interface{}{"id": e.ID, "name": e.Name})
	}
	return out
}

// SampleTree is a small tree with metro and sub-locality branches:
//
//	Россия (225)
//	├── Москва (213) metro, sub-localities
//	│   └── Зеленоград (216)
//	└── Санкт-Петербург (2) metro
func SampleTree() []Node {
	return []Node{
		{ID: 1, RGID: 225, Name: "Россия", Children: []int64{213, 2}},
		{
			ID: 10, RGID: 213, Name: "Москва", ParentID: 1,
			Refinements:   []string{"metro", "sub-localities"},
			Stations:      []Entity{{ID: 20475, Name: "Арбатская"}, {ID: 20476, Name: "Охотный Ряд"}},
			Sublocalities: []Entity{{ID: 12439, Name: "Хамовники"}},
			Children:      []int64{216},
		},
		{ID: 11, RGID: 216, Name: "Зеленоград", ParentID: 10, Refinements: []string{}},
		{
			ID: 12, RGID: 2, Name: "Санкт-Петербург", ParentID: 1,
			Refinements: []string{"metro"},
			Stations:    []Entity{{ID: 20300, Name: "Невский проспект"}},
		},
	}
}
