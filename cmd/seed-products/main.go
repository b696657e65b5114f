package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/config"
	"github.com/greatwhitehope/shopapi/internal/domain"
	"github.com/greatwhitehope/shopapi/internal/repository/postgres"
)

var seedProducts = []domain.Product{
	{
		SKU:         "CONC-001",
		Name:        "Premium Live Resin",
		Description: "Small-batch live resin concentrate, 1g jar.",
		Category:    "concentrates",
		Price:       4500,
		IsActive:    true,
	},
	{
		SKU:         "CONC-002",
		Name:        "Solventless Rosin",
		Description: "Cold-cured hash rosin pressed from fresh frozen flower.",
		Category:    "concentrates",
		Price:       6500,
		IsActive:    true,
	},
	{
		SKU:         "FLWR-001",
		Name:        "Indoor Flower Eighth",
		Description: "Hand-trimmed indoor flower, 3.5g.",
		Category:    "flower",
		Price:       3500,
		IsActive:    true,
	},
	{
		SKU:         "EDBL-001",
		Name:        "Fruit Gummies 10-Pack",
		Description: "Assorted fruit gummies, 10mg each.",
		Category:    "edibles",
		Price:       2000,
		IsActive:    true,
	},
	{
		SKU:         "VAPE-001",
		Name:        "Distillate Cartridge",
		Description: "1g distillate cartridge, 510 thread.",
		Category:    "vapes",
		Price:       4000,
		IsActive:    true,
	},
}

func main() {
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

	repos := postgres.NewRepositories(db, logger)

	created := 0
	for i := range seedProducts {
		p := seedProducts[i]
		if err := repos.Product.Create(context.Background(), &p); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to seed %s: %v\n", p.SKU, err)
			continue
		}
		created++
		fmt.Printf("Seeded %s (%s)\n", p.SKU, p.Name)
	}

	fmt.Printf("\nSeeded %d of %d products.\n", created, len(seedProducts))
}
