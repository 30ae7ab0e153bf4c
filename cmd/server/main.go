package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/casdrive/internal/server"
	"github.com/dmitrijs2005/casdrive/internal/server/config"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.IssueTokenFor != "" {
		if err := server.IssueToken(os.Stdout, cfg); err != nil {
			log.Fatalf("issue token: %v", err)
		}
		return
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
