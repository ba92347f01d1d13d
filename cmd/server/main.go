package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soaringjerry/Tally/internal/api"
	"github.com/soaringjerry/Tally/internal/config"
	"github.com/soaringjerry/Tally/internal/middleware"
	"github.com/soaringjerry/Tally/internal/services"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults to TALLY_CONFIG)")
	hashKey := flag.String("hash-admin-key", "", "print the bcrypt hash for an admin key and exit")
	flag.Parse()

	if *hashKey != "" {
		h, err := services.HashAdminKey(*hashKey)
		if err != nil {
			log.Fatalf("hash admin key: %v", err)
		}
		fmt.Println(h)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Auth.JWTSecret != "" {
		middleware.SetSecret(cfg.Auth.JWTSecret)
	} else {
		log.Printf("warning: TALLY_JWT_SECRET not set, using development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer closeStore()

	rt := api.NewRouter(store, api.Options{
		EmailDomain:  cfg.Auth.EmailDomain,
		AdminKeyHash: cfg.Auth.AdminKeyHash,
		PublicURL:    cfg.Server.PublicURL,
		CORSOrigin:   cfg.Server.CORSOrigin,
		PDFFont:      cfg.Export.PDFFont,
	})
	defer rt.Close()

	commit := os.Getenv("TALLY_COMMIT")
	buildTime := os.Getenv("TALLY_BUILD_TIME")
	mux := http.NewServeMux()
	mux.Handle("/", rt.Handler())
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Tally server listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
