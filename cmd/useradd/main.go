package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"presence/internal/config"
	"presence/internal/store"
	"presence/internal/users"
)

// useradd creates an account that can log in to the API.
func main() {
	name := flag.String("name", "", "display name")
	email := flag.String("email", "", "login email (unique)")
	password := flag.String("password", "", "plaintext password; read from USERADD_PASSWORD when empty")
	flag.Parse()

	if *password == "" {
		*password = os.Getenv("USERADD_PASSWORD")
	}
	if *name == "" || *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.NewDB(ctx, cfg.DatabaseURL, 2)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := store.Migrate(ctx, db.Client); err != nil {
			log.Fatalf("migrate failed: %v", err)
		}
	}

	svc := users.NewService(users.NewRepository(db.Client, cfg.DBQueryTimeout), nil, cfg.BcryptCost)
	u, err := svc.Create(ctx, *name, *email, *password)
	if err != nil {
		log.Fatalf("create user failed: %v", err)
	}
	fmt.Println(u.ID)
}
