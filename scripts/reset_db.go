package main

import (
	"context"
	"fmt"
	"log"

	"textile-backend/internal/config"
	"textile-backend/internal/db"
)

// Tables cleared by the reset, children first
var resetTables = []string{"lot_entries", "lots", "dispatches"}

func main() {
	fmt.Println("========================================")
	fmt.Println("   Reset Database for Testing")
	fmt.Println("========================================")
	fmt.Println()
	fmt.Println("WARNING: This will DELETE ALL LOTS, ENTRIES AND DISPATCH RECORDS!")
	fmt.Println()
	fmt.Print("Type 'yes' to confirm: ")

	var confirm string
	fmt.Scanln(&confirm)

	if confirm != "yes" {
		fmt.Println("Reset cancelled.")
		return
	}

	cfg := config.Load()
	pool := db.Connect(cfg)
	defer pool.Close()

	ctx := context.Background()
	for _, table := range resetTables {
		tag, err := pool.Exec(ctx, "DELETE FROM "+table)
		if err != nil {
			log.Fatalf("Failed to clear %s: %v", table, err)
		}
		fmt.Printf("  cleared %-12s %d rows\n", table, tag.RowsAffected())
	}

	fmt.Println()
	fmt.Println("Database reset complete. Schema and migration history are untouched.")
}
