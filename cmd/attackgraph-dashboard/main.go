// Command attackgraph-dashboard serves the live engine over HTTP and
// websockets: push facts in via REST, watch derived updates stream out
// over /api/v1/stream, manage incidents, and kick off benchmark runs.
package main

import (
	"context"
	"log"
	"os"

	"github.com/rawblock/attackgraph-engine/internal/bench"
	"github.com/rawblock/attackgraph-engine/internal/dashboard"
	"github.com/rawblock/attackgraph-engine/internal/engine"
	"github.com/rawblock/attackgraph-engine/internal/investigation"
	"github.com/rawblock/attackgraph-engine/internal/store"
)

func main() {
	log.Println("Starting attackgraph-dashboard...")

	// DATABASE_URL is optional: without it the dashboard runs in-memory
	// only. With it, incidents are written to the database after each
	// Step that changes a goal; they are not read back on startup.
	var db *store.Store
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		conn, err := store.Connect(dbURL)
		if err != nil {
			log.Printf("Warning: failed to connect to PostgreSQL, continuing without persistence. Error: %v", err)
		} else {
			defer conn.Close()
			if err := conn.InitSchema(); err != nil {
				log.Printf("Warning: schema init failed: %v", err)
			}
			db = conn
		}
	} else {
		log.Println("DATABASE_URL not set — running without persistence")
	}

	eng := engine.New()
	wsHub := dashboard.NewHub()
	go wsHub.Run()

	invManager := investigation.NewManager()
	benchRunner := bench.NewRunner()

	if db != nil {
		eng.Subscribe(func(_, _, _, goalReached []engine.Update) {
			if len(goalReached) == 0 {
				return
			}
			for _, inc := range invManager.ListIncidents() {
				if err := db.SaveIncident(context.Background(), inc); err != nil {
					log.Printf("Warning: failed to persist incident %s: %v", inc.ID, err)
				}
			}
		})
	}

	router := dashboard.SetupRouter(eng, wsHub, invManager, benchRunner)

	port := getEnvOrDefault("PORT", "8080")
	log.Printf("attackgraph-dashboard listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("dashboard server exited: %v", err)
	}
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
