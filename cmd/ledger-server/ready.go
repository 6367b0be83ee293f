package main

import (
	"net/http"
	"sync/atomic"
)

// gate answers 503 with Retry-After on every route, /healthz included, until a handler is
// stored; devices treat that as a transient failure and retry on the next pass.
type gate struct {
	h atomic.Pointer[http.Handler]
}

func (g *gate) open(h http.Handler) { g.h.Store(&h) }

func (g *gate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h := g.h.Load(); h != nil {
		(*h).ServeHTTP(w, r)
		return
	}
	w.Header().Set("Retry-After", "5")
	w.WriteHeader(http.StatusServiceUnavailable)
}
