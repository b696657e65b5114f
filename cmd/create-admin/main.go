package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/config"
	"github.com/greatwhitehope/shopapi/internal/domain"
	"github.com/greatwhitehope/shopapi/internal/repository/postgres"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: go run cmd/create-admin/main.go <email> <password> <name>")
		fmt.Println("Example: go run cmd/create-admin/main.go admin@example.com s3cret \"Store Admin\"")
		os.Exit(1)
	}

	email := os.Args[1]
	password := os.Args[2]
	name := os.Args[3]

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// Connect to database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// Hash the password
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash password: %v\n", err)
		os.Exit(1)
	}

	// Create repositories
	repos := postgres.NewRepositories(db, logger)

	// Create admin user
	user := &domain.AdminUser{
		Email:        email,
		PasswordHash: string(passwordHash),
		Name:         name,
		Role:         "admin",
		IsActive:     true,
	}

	err = repos.AdminUser.Create(context.Background(), user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create admin user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Admin user created successfully!\n\n")
	fmt.Printf("User ID: %s\n", user.ID.String())
	fmt.Printf("Email: %s\n", user.Email)
	fmt.Printf("\nSign in via POST /api/v1/auth/login to obtain a token.\n")
}
