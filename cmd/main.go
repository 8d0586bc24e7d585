package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sales_import/internal/app"
	"sales_import/internal/config"
	"sales_import/internal/handlers"
	"sales_import/internal/server"
	"sales_import/internal/transport/auth"
)

func main() {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	setupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := config.Init(setupCtx)
	defer cfg.Close(context.Background())

	a, err := app.New(setupCtx, cfg)
	if err != nil {
		log.Fatalf("❌ Store setup failed: %v", err)
	}
	defer a.Close()
	fmt.Println("✅ All connections successfully established!")

	if cfg.S3 != nil {
		if err := cfg.S3.EnsureBucket(setupCtx); err != nil {
			log.Fatalf("❌ S3 bucket setup failed: %v", err)
		}
	}
	if err := cfg.CheckConnections(setupCtx); err != nil {
		log.Fatalf("❌ Connection check failed: %v", err)
	}
	fmt.Println("🟢 All connections OK")

	var checker auth.TokenChecker
	if tokens := auth.NewStaticTokens(cfg.APITokens); tokens.Len() > 0 {
		checker = tokens
	}

	h := handlers.New(a)
	srv := server.NewServer(cfg.Port, h, checker)

	log.Printf("[SERVER] listening on :%s backend=%s", cfg.Port, a.Backend)
	if err := srv.Run(runCtx); err != nil {
		log.Fatal(err)
	}
}
