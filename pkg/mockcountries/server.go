// Package mockcountries is an in-process stand-in for the remote services: a restcountries v2
// API, a geocode.xyz reverse geocoder and an ip-api.com style IP locator.
package mockcountries

import (
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// Path prefixes served by Handler. Point clients at server URL + prefix.
const (
	RestCountriesPrefix = "/v2"
	GeocodePrefix       = "/geocode"
	IPGeoPath           = "/ip/json"

	throttledSentinel = "Throttled! See geocode.xyz/pricing"
)

// Call records a request made to the mock service.
type Call struct {
	Method string
	Path   string
}

// Server serves a fixture dataset.
type Server struct {
	mu    sync.Mutex
	calls []Call

	byCode  map[string]Country
	ordered []Country
	places  []Place
	ip      *Place

	// failures maps a request path to a forced status code.
	failures  map[string]int
	throttled bool
}

// New constructs a server over fixtures.
func New(f Fixtures) *Server {
	s := &Server{
		byCode:   make(map[string]Country, len(f.Countries)),
		failures: make(map[string]int),
		places:   append([]Place(nil), f.Places...),
	}
	for _, c := range f.Countries {
		c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
		s.byCode[c.Code] = c
		s.ordered = append(s.ordered, c)
	}
	if f.IP != nil {
		s.ip = &Place{Latitude: f.IP.Latitude, Longitude: f.IP.Longitude}
	}
	return s
}

// Handler returns an http.Handler that serves the mock APIs.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(RestCountriesPrefix+"/name/", s.handleName)
	mux.HandleFunc(RestCountriesPrefix+"/alpha/", s.handleAlpha)
	mux.HandleFunc(GeocodePrefix+"/", s.handleGeocode)
	mux.HandleFunc(IPGeoPath, s.handleIP)
	return mux
}

// FailPath forces every request to path to answer with status.
func (s *Server) FailPath(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = status
}

// Throttle makes the geocoder answer with the provider's throttling sentinel.
func (s *Server) Throttle(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.throttled = on
}

// Calls returns a snapshot of calls made to the server.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsWithPrefix counts calls whose path starts with prefix.
func (s *Server) CallsWithPrefix(prefix string) int {
	n := 0
	for _, c := range s.Calls() {
		if strings.HasPrefix(c.Path, prefix) {
			n++
		}
	}
	return n
}

func (s *Server) recordCall(r *http.Request) (forced int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path})
	return s.failures[r.URL.Path]
}

func (s *Server) handleName(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r) {
		return
	}
	name, err := url.PathUnescape(strings.TrimPrefix(r.URL.Path, RestCountriesPrefix+"/name/"))
	if err != nil || strings.TrimSpace(name) == "" {
		writeJSON(w, http.StatusNotFound, map[string]any{"status": 404, "message": "Not Found"})
		return
	}
	needle := strings.ToLower(strings.TrimSpace(name))

	var matches []wireCountry
	for _, c := range s.ordered {
		if strings.Contains(strings.ToLower(c.Name), needle) {
			matches = append(matches, toWire(c))
		}
	}
	if len(matches) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"status": 404, "message": "Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) handleAlpha(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r) {
		return
	}
	code := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(r.URL.Path, RestCountriesPrefix+"/alpha/")))
	c, ok := s.byCode[code]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"status": 404, "message": "Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, toWire(c))
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r) {
		return
	}
	s.mu.Lock()
	throttled := s.throttled
	s.mu.Unlock()
	if throttled {
		// geocode.xyz reports throttling with a 200 and a sentinel instead of data.
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "distance": throttledSentinel})
		return
	}

	coords := strings.TrimPrefix(r.URL.Path, GeocodePrefix+"/")
	lat, lng, ok := parseCoords(coords)
	if !ok {
		http.Error(w, "invalid coordinates", http.StatusBadRequest)
		return
	}
	for _, p := range s.places {
		if nearly(p.Latitude, lat) && nearly(p.Longitude, lng) {
			writeJSON(w, http.StatusOK, map[string]any{"country": p.Country, "distance": "0.000"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"error":    map[string]any{"description": "Your request did not produce any results."},
		"distance": 0,
	})
}

func (s *Server) handleIP(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r) {
		return
	}
	if s.ip == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "fail", "message": "private range"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "lat": s.ip.Latitude, "lon": s.ip.Longitude})
}

// begin records the call and applies forced failures. It returns false when the request
// has already been answered.
func (s *Server) begin(w http.ResponseWriter, r *http.Request) bool {
	forced := s.recordCall(r)
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if forced != 0 {
		http.Error(w, http.StatusText(forced), forced)
		return false
	}
	return true
}

type wireName struct {
	Name string `json:"name"`
}

type wireCountry struct {
	Name       string     `json:"name"`
	Alpha3Code string     `json:"alpha3Code"`
	Region     string     `json:"region"`
	Population int64      `json:"population"`
	Flag       string     `json:"flag"`
	Languages  []wireName `json:"languages"`
	Currencies []wireName `json:"currencies"`
	Borders    []string   `json:"borders,omitempty"`
}

func toWire(c Country) wireCountry {
	w := wireCountry{
		Name:       c.Name,
		Alpha3Code: c.Code,
		Region:     c.Region,
		Population: c.Population,
		Flag:       c.Flag,
		Borders:    c.Borders,
	}
	if c.Language != "" {
		w.Languages = []wireName{{Name: c.Language}}
	}
	if c.Currency != "" {
		w.Currencies = []wireName{{Name: c.Currency}}
	}
	return w
}

func parseCoords(s string) (float64, float64, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

func nearly(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
