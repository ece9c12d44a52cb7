// migrate creates or drops the hookd database schema.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"

	"keygate/internal/platform/config"
	"keygate/internal/platform/database"
	"keygate/internal/platform/store"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	switch *direction {
	case "up":
		if err := store.Schema(db); err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		fmt.Println("Schema created")
	case "down":
		if err := drop(db); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		fmt.Println("Schema dropped")
	default:
		log.Fatalf("Unknown direction %q (want up or down)", *direction)
	}
}

func drop(db *sql.DB) error {
	_, err := db.Exec(`
		DROP TABLE IF EXISTS daily_stats;
		DROP TABLE IF EXISTS deliveries;
	`)
	return err
}
