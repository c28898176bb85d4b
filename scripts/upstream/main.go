// Upstream is a demo API to put behind the gate.
//
// Usage:
//
//	go run ./scripts/upstream -port 8081
//
// GET /api/demo?text=hello echoes the text; text=err answers 500 so the
// breaker has something to count.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
)

type demoResponse struct {
	Text string `json:"text"`
}

func main() {
	port := flag.Int("port", 8081, "port to listen on")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/demo", func(w http.ResponseWriter, r *http.Request) {
		text := r.URL.Query().Get("text")
		log.Printf("request: path=%s text=%q from=%s", r.URL.Path, text, r.RemoteAddr)

		if text == "err" {
			http.Error(w, "demo failure", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(demoResponse{Text: text})
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("starting demo upstream on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
