package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

// small helper to apply scripts/tables.sql to a fresh database
func main() {
	host := flag.String("host", "localhost", "postgres host")
	port := flag.String("port", "5432", "postgres port")
	dbName := flag.String("db", "fitlog", "database name")
	user := flag.String("user", "postgres", "database user")
	scriptPath := flag.String("script", "./scripts/tables.sql", "path to the tables script")
	flag.Parse()

	password := os.Getenv("FITLOG_DB_PASS")

	connString := fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s sslmode=disable",
		*host, *port, *user, *dbName,
	)
	if password != "" {
		connString += fmt.Sprintf(" password=%s", password)
	}

	db, err := sql.Open("postgres", connString)
	if err != nil {
		fmt.Printf("open db: %s\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := db.Ping(); err != nil {
		fmt.Printf("ping db: %s\n", err)
		os.Exit(1)
	}

	script, err := os.ReadFile(*scriptPath)
	if err != nil {
		fmt.Printf("read tables script: %s\n", err)
		os.Exit(1)
	}

	if _, err := db.Exec(string(script)); err != nil {
		fmt.Printf("apply tables script: %s\n", err)
		os.Exit(1)
	}

	fmt.Println("done, all tables created")
}
