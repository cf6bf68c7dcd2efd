// Package testutils provides a fake image service for tests.
package testutils

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// ImageBody is the payload served for seed.
func ImageBody(seed string) []byte {
	return []byte("\xff\xd8\xff\xe0fake-jpeg-" + seed)
}

// PicsumServer mimics the random image endpoint: /200/200?random=N answers
// with a relative redirect to /id/N/200/200.jpg.
type PicsumServer struct {
	*httptest.Server

	mu         sync.Mutex
	failSeeds  map[string]int
	userAgents []string
	hits       map[string]int
}

func NewPicsumServer(t *testing.T) *PicsumServer {
	t.Helper()

	p := &PicsumServer{
		failSeeds: make(map[string]int),
		hits:      make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(p.record)
	r.Get("/{w}/{h}", func(w http.ResponseWriter, r *http.Request) {
		seed := r.URL.Query().Get("random")
		if seed == "" {
			seed = "0"
		}
		target := fmt.Sprintf("/id/%s/%s/%s.jpg", seed, chi.URLParam(r, "w"), chi.URLParam(r, "h"))
		http.Redirect(w, r, target, http.StatusFound)
	})
	r.Get("/id/{seed}/{w}/{h}.jpg", func(w http.ResponseWriter, r *http.Request) {
		seed := chi.URLParam(r, "seed")
		p.mu.Lock()
		status, failing := p.failSeeds[seed]
		p.mu.Unlock()
		if failing {
			http.Error(w, "no such image", status)
			return
		}
		body := ImageBody(seed)
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write(body)
	})
	r.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	r.Get("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	r.Get("/noloc", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	})
	r.Get("/truncated", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("\xff\xd8\xff\xe0x"))
	})
	r.Get("/slow", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	r.Get("/hops/{n}", func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(chi.URLParam(r, "n"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if n <= 0 {
			http.Redirect(w, r, "/id/hops/200/200.jpg", http.StatusMovedPermanently)
			return
		}
		http.Redirect(w, r, "/hops/"+strconv.Itoa(n-1), http.StatusTemporaryRedirect)
	})

	p.Server = httptest.NewServer(r)
	t.Cleanup(p.Server.Close)
	return p
}

func (p *PicsumServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.userAgents = append(p.userAgents, r.UserAgent())
		p.hits[r.URL.Path]++
		p.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Endpoint is a URL template with one %d verb for the seed.
func (p *PicsumServer) Endpoint() string {
	return p.URL + "/200/200?random=%d"
}

// FailSeed makes the image for seed answer with status.
func (p *PicsumServer) FailSeed(seed int, status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failSeeds[strconv.Itoa(seed)] = status
}

func (p *PicsumServer) UserAgents() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.userAgents...)
}

func (p *PicsumServer) Hits(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits[path]
}
