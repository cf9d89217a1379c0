package main

import (
	"database/sql"
	"flag"
	"log"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"lastmile-route-service/internal/adapters/repositories"
	"lastmile-route-service/internal/geo"
	"lastmile-route-service/internal/platform/db"
)

// dbtool initializes the Postgres schema and optionally seeds a demo
// dataset from a JSON file. It reads DATABASE_URL from the environment
// or a local .env file.
func main() {
	seedPath := flag.String("seed", "", "path to a seed JSON file (optional)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	conn, err := db.Open(databaseURL, db.Options{MaxOpenConns: 2})
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	if err := initAndSeed(conn, *seedPath); err != nil {
		log.Fatal(err)
	}
}

func initAndSeed(conn *sql.DB, seedPath string) error {
	log.Println("Initializing database schema...")
	if err := repositories.InitSchema(conn); err != nil {
		return err
	}
	log.Println("Schema ready.")

	if seedPath == "" {
		return nil
	}

	log.Printf("Seeding database from %s...", seedPath)
	if err := repositories.SeedFromJSON(conn, seedPath, geo.ParseClock); err != nil {
		return err
	}
	log.Println("Seeding complete.")

	return nil
}
