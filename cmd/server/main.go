package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dinepos/kds/internal/auth"
	"github.com/dinepos/kds/internal/config"
	"github.com/dinepos/kds/internal/kitchen"
	"github.com/dinepos/kds/internal/router"
	"github.com/dinepos/kds/internal/upstream"
	"github.com/dinepos/kds/internal/ws"
)

func main() {
	cfg := config.Load()

	users, err := auth.ParseUsers(cfg.StaffUsers)
	if err != nil {
		log.Fatalf("parse STAFF_USERS: %v", err)
	}
	if users.Len() == 0 {
		log.Println("warning: no staff users configured, logins will fail")
	}

	hub := ws.NewHub()
	go hub.Run()

	client := upstream.NewClient(cfg.UpstreamURL)
	ctrl := kitchen.NewController(client, ws.NewBoardNotifier(hub), kitchen.Config{
		TickInterval:   time.Duration(cfg.TickIntervalMS) * time.Millisecond,
		RejectionGrace: time.Duration(cfg.RejectionGraceSeconds) * time.Second,
	})
	ctrl.Run()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feed := upstream.NewFeedClient(cfg.FeedURL, ctrl)
	go feed.Run(ctx)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router.New(cfg, ctrl, users, hub),
	}

	go func() {
		log.Printf("kitchen display service listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	ctrl.Close()
}
