package main

import (
	"context"
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/corvusant/skylark/backend/internal/notifications"
	"github.com/corvusant/skylark/backend/internal/router"
	"github.com/corvusant/skylark/backend/internal/validators"
	"github.com/corvusant/skylark/backend/pkg/config"
	"github.com/corvusant/skylark/backend/pkg/firebase"
	"github.com/labstack/echo/v4"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	// Initialize Firebase when credentials are configured; without them the
	// API runs with Firebase login and push delivery disabled.
	ctx := context.Background()
	var authClient *auth.Client
	var messenger notifications.Messenger
	if cfg.FirebaseCredentialsPath != "" {
		firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		authClient = firebaseApp.AuthClient
		messenger = firebaseApp
	} else {
		log.Println("Firebase credentials not configured: Firebase login and push delivery disabled.")
	}

	// Create Echo instance
	e := echo.New()

	// Validator
	e.Validator = validators.NewValidator()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	router.SetupRoutes(e, cfg, db.Postgres, db.Mongo, authClient, messenger)

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
