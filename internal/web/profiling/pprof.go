// Package profiling mounts the pprof endpoints and a runtime stats endpoint
// on the API router. They expose process internals and are off unless
// server.profiling is set.
package profiling

import (
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/go-chi/chi/v5"

	"github.com/pawbazaar/querykit/internal/web/response"
)

// Config holds profiling configuration
type Config struct {
	// Path is the URL prefix of the endpoints (default: "/debug/pprof")
	Path string

	// BlockRate sets the block profiling rate (0 = disabled)
	BlockRate int

	// MutexFraction sets the mutex profiling fraction (0 = disabled)
	MutexFraction int
}

// DefaultConfig returns default profiling configuration
func DefaultConfig() *Config {
	return &Config{
		Path:          "/debug/pprof",
		BlockRate:     1,
		MutexFraction: 1,
	}
}

// RegisterRoutes mounts the pprof handlers under config.Path and the stats
// handler at config.Path + "/stats"
func RegisterRoutes(router chi.Router, config *Config) {
	if config == nil {
		config = DefaultConfig()
	}
	path := config.Path
	if path == "" {
		path = DefaultConfig().Path
	}

	runtime.SetBlockProfileRate(config.BlockRate)
	runtime.SetMutexProfileFraction(config.MutexFraction)

	router.Route(path, func(r chi.Router) {
		r.HandleFunc("/", pprof.Index)
		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)
		r.Get("/stats", StatsHandler())

		for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
			r.Handle("/"+name, pprof.Handler(name))
		}
	})
}

// Stats is a snapshot of the Go runtime
type Stats struct {
	Goroutines int         `json:"goroutines"`
	Memory     MemoryStats `json:"memory"`
	NumCPU     int         `json:"numCpu"`
}

// MemoryStats is the subset of runtime.MemStats worth watching while
// serving searches
type MemoryStats struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"totalAlloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"numGc"`
}

// RuntimeStats returns current runtime statistics
func RuntimeStats() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Stats{
		Goroutines: runtime.NumGoroutine(),
		Memory: MemoryStats{
			Alloc:      m.Alloc,
			TotalAlloc: m.TotalAlloc,
			Sys:        m.Sys,
			NumGC:      m.NumGC,
		},
		NumCPU: runtime.NumCPU(),
	}
}

// StatsHandler serves RuntimeStats as JSON
func StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.RenderJSON(w, http.StatusOK, RuntimeStats())
	}
}
