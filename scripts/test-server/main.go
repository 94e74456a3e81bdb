// Mock GraphQL target for local querybench runs. Serves a canned query
// response with optional artificial latency, plus the rts_stats
// endpoint the extended checks probe, backed by this process's own
// memory counters.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"time"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	delay := flag.Duration("delay", 0, "artificial latency added to every query response")
	flag.Parse()

	http.HandleFunc("/v1/graphql", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		if *delay > 0 {
			time.Sleep(*delay)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"__typename":"query_root","films":[{"title":"Alien"},{"title":"Solaris"}]}}`)
	})

	http.HandleFunc("/dev/rts_stats", func(w http.ResponseWriter, r *http.Request) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]uint64{
			"allocated_bytes":  m.TotalAlloc,
			"live_bytes":       m.HeapAlloc,
			"mem_in_use_bytes": m.HeapInuse,
		})
	})

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "healthy")
	})

	server := &http.Server{
		Addr:              *addr,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	log.Printf("Starting mock GraphQL target on %s", *addr)
	log.Printf("Endpoints: POST /v1/graphql, GET /dev/rts_stats, GET /health")
	if *delay > 0 {
		log.Printf("Adding %s latency per response", *delay)
	}

	if err := server.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
