// Package fakeapi serves an in-memory subset of the DigitalOcean v2 API
// over httptest for use in tests.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/digitalocean/godo"
)

// Token is the bearer token the server accepts unless Server.Token is changed.
const Token = "dop_v1_fake_token_for_tests"

// Request records one request the server received.
type Request struct {
	Method string
	Path   string
	Query  string
	Auth   string
}

// CreateRequest is a decoded droplet create body. Image and SSH key
// entries keep their wire types: float64 for IDs, string for slugs.
type CreateRequest struct {
	Name              string   `json:"name"`
	Region            string   `json:"region"`
	Size              string   `json:"size"`
	Image             any      `json:"image"`
	SSHKeys           []any    `json:"ssh_keys"`
	Tags              []string `json:"tags"`
	UserData          string   `json:"user_data"`
	Monitoring        bool     `json:"monitoring"`
	IPv6              bool     `json:"ipv6"`
	PrivateNetworking bool     `json:"private_networking"`
}

// Fault replaces the next matching responses.
type Fault struct {
	Status int
	Body   string // raw body; defaults to a standard error document
}

type fault struct {
	Fault
	remaining int
}

// Server is a fake DigitalOcean API.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	token     string
	pageSize  int
	nextID    int
	droplets  []godo.Droplet
	statuses  map[int][]string
	networks  map[int]*godo.Networks
	snapshots []godo.Snapshot
	sizes     []godo.Size
	regions   []godo.Region
	keys      []godo.Key
	account   godo.Account
	faults    map[string]*fault
	requests  []Request
	creates   []CreateRequest
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		token:    Token,
		nextID:   1000,
		statuses: make(map[int][]string),
		networks: make(map[int]*godo.Networks),
		faults:   make(map[string]*fault),
		account: godo.Account{
			Email:        "ops@example.com",
			UUID:         "b6fc48dbf6d990634ce5f3c78dc9851e757381ef",
			Status:       "active",
			DropletLimit: 25,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2/droplets", s.listDroplets)
	mux.HandleFunc("POST /v2/droplets", s.createDroplet)
	mux.HandleFunc("GET /v2/droplets/{id}", s.getDroplet)
	mux.HandleFunc("DELETE /v2/droplets/{id}", s.deleteDroplet)
	mux.HandleFunc("GET /v2/snapshots", s.listSnapshots)
	mux.HandleFunc("GET /v2/snapshots/{id}", s.getSnapshot)
	mux.HandleFunc("GET /v2/sizes", s.listSizes)
	mux.HandleFunc("GET /v2/regions", s.listRegions)
	mux.HandleFunc("GET /v2/account/keys", s.listKeys)
	mux.HandleFunc("GET /v2/account", s.getAccount)

	s.Server = httptest.NewServer(s.middleware(mux))
	t.Cleanup(s.Close)
	return s
}

// SetToken changes the accepted bearer token. An empty token disables the check.
func (s *Server) SetToken(tok string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = tok
}

// SetPageSize forces list pages of n items regardless of per_page.
func (s *Server) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
}

// AddDroplet stores a droplet and returns it. A zero ID is assigned.
func (s *Server) AddDroplet(d godo.Droplet) godo.Droplet {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == 0 {
		d.ID = s.allocID()
	}
	if d.Status == "" {
		d.Status = "active"
	}
	s.droplets = append(s.droplets, d)
	return d
}

// SetStatusSequence scripts the status returned by successive GETs of a
// droplet. The final status repeats.
func (s *Server) SetStatusSequence(id int, statuses ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = slices.Clone(statuses)
}

// SetNetworks attaches networks that appear once the droplet is active.
func (s *Server) SetNetworks(id int, n godo.Networks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.networks[id] = &n
}

// SetNextID sets the ID the next created droplet receives.
func (s *Server) SetNextID(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = id
}

// AddSnapshot stores a snapshot.
func (s *Server) AddSnapshot(snap godo.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snap)
}

// AddSize stores a size plan.
func (s *Server) AddSize(size godo.Size) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sizes = append(s.sizes, size)
}

// AddRegion stores a region.
func (s *Server) AddRegion(r godo.Region) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions = append(s.regions, r)
}

// AddKey stores an SSH key.
func (s *Server) AddKey(k godo.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, k)
}

// InjectFault makes the next n requests for "METHOD /path" return f.
func (s *Server) InjectFault(method, path string, f Fault, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method+" "+path] = &fault{Fault: f, remaining: n}
}

// Requests returns a copy of the request log.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Count returns how many requests matched method and path.
func (s *Server) Count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Creates returns the decoded droplet create bodies.
func (s *Server) Creates() []CreateRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.creates)
}

func (s *Server) allocID() int {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
		})
		token := s.token
		f := s.faults[r.Method+" "+r.URL.Path]
		var active *Fault
		if f != nil && f.remaining > 0 {
			f.remaining--
			active = &f.Fault
		}
		s.mu.Unlock()

		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Unable to authenticate you")
			return
		}
		if active != nil {
			if active.Body != "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(active.Status)
				fmt.Fprint(w, active.Body)
				return
			}
			writeError(w, active.Status, "fault", http.StatusText(active.Status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- handlers ---

func (s *Server) listDroplets(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	tag := r.URL.Query().Get("tag_name")
	var items []godo.Droplet
	for _, d := range s.droplets {
		if tag == "" || slices.Contains(d.Tags, tag) {
			items = append(items, d)
		}
	}
	s.mu.Unlock()
	servePage(s, w, r, "droplets", items)
}

func (s *Server) createDroplet(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.Name == "" || req.Region == "" || req.Size == "" || req.Image == nil {
		writeError(w, http.StatusUnprocessableEntity, "unprocessable_entity", "name, region, size and image are required")
		return
	}

	s.mu.Lock()
	s.creates = append(s.creates, req)
	d := godo.Droplet{
		ID:       s.allocID(),
		Name:     req.Name,
		Status:   "new",
		SizeSlug: req.Size,
		Region:   &godo.Region{Slug: req.Region},
		Tags:     req.Tags,
		Created:  "2026-01-01T00:00:00Z",
		Networks: &godo.Networks{},
	}
	s.droplets = append(s.droplets, d)
	s.mu.Unlock()

	writeJSON(w, http.StatusAccepted, map[string]any{"droplet": d})
}

func (s *Server) getDroplet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "The resource you were accessing could not be found.")
		return
	}

	s.mu.Lock()
	idx := slices.IndexFunc(s.droplets, func(d godo.Droplet) bool { return d.ID == id })
	if idx < 0 {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "The resource you were accessing could not be found.")
		return
	}
	d := &s.droplets[idx]
	if seq := s.statuses[id]; len(seq) > 0 {
		d.Status = seq[0]
		if len(seq) > 1 {
			s.statuses[id] = seq[1:]
		}
	}
	if n := s.networks[id]; n != nil && d.Status == "active" {
		d.Networks = n
	}
	out := *d
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"droplet": out})
}

func (s *Server) deleteDroplet(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))

	s.mu.Lock()
	idx := slices.IndexFunc(s.droplets, func(d godo.Droplet) bool { return d.ID == id })
	if idx >= 0 {
		s.droplets = slices.Delete(s.droplets, idx, idx+1)
	}
	s.mu.Unlock()

	if idx < 0 {
		writeError(w, http.StatusNotFound, "not_found", "The resource you were accessing could not be found.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSnapshots(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rt := r.URL.Query().Get("resource_type")
	var items []godo.Snapshot
	for _, snap := range s.snapshots {
		if rt == "" || snap.ResourceType == rt {
			items = append(items, snap)
		}
	}
	s.mu.Unlock()
	servePage(s, w, r, "snapshots", items)
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	idx := slices.IndexFunc(s.snapshots, func(snap godo.Snapshot) bool { return snap.ID == id })
	var snap godo.Snapshot
	if idx >= 0 {
		snap = s.snapshots[idx]
	}
	s.mu.Unlock()

	if idx < 0 {
		writeError(w, http.StatusNotFound, "not_found", "The resource you were accessing could not be found.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshot": snap})
}

func (s *Server) listSizes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := slices.Clone(s.sizes)
	s.mu.Unlock()
	servePage(s, w, r, "sizes", items)
}

func (s *Server) listRegions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := slices.Clone(s.regions)
	s.mu.Unlock()
	servePage(s, w, r, "regions", items)
}

func (s *Server) listKeys(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := slices.Clone(s.keys)
	s.mu.Unlock()
	servePage(s, w, r, "ssh_keys", items)
}

func (s *Server) getAccount(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	acct := s.account
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"account": acct})
}

// --- helpers ---

// servePage serves one page of items with godo-style pagination links.
func servePage[T any](s *Server, w http.ResponseWriter, r *http.Request, key string, items []T) {
	s.mu.Lock()
	size := s.pageSize
	s.mu.Unlock()

	q := r.URL.Query()
	if size <= 0 {
		size, _ = strconv.Atoi(q.Get("per_page"))
		if size <= 0 {
			size = 20
		}
	}
	page, _ := strconv.Atoi(q.Get("page"))
	if page <= 0 {
		page = 1
	}
	pages := max((len(items)+size-1)/size, 1)

	start := min((page-1)*size, len(items))
	end := min(start+size, len(items))
	body := map[string]any{
		key:    nonNil(items[start:end]),
		"meta": map[string]int{"total": len(items)},
	}

	link := func(p int) string {
		u := *r.URL
		v := u.Query()
		v.Set("page", strconv.Itoa(p))
		v.Set("per_page", strconv.Itoa(size))
		u.RawQuery = v.Encode()
		return s.URL + u.RequestURI()
	}
	links := map[string]string{}
	if page > 1 {
		links["first"] = link(1)
		links["prev"] = link(page - 1)
	}
	if page < pages {
		links["next"] = link(page + 1)
		links["last"] = link(pages)
	}
	if len(links) > 0 {
		body["links"] = map[string]any{"pages": links}
	} else {
		body["links"] = map[string]any{}
	}

	writeJSON(w, http.StatusOK, body)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, id, msg string) {
	reqID := fmt.Sprintf("req-%d", status)
	w.Header().Set("X-Request-Id", reqID)
	writeJSON(w, status, map[string]string{
		"id":         id,
		"message":    strings.TrimSpace(msg),
		"request_id": reqID,
	})
}
