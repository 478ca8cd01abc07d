package main

import (
	"context"
	"log"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/thereayou/study-room/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	srv, err := NewServer(cfg)
	if err != nil {
		log.Fatalf("Server init failed: %v", err)
	}
	srv.Start()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"server": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return srv.Shutdown(ctx)
			},
		},
	)

	var exitCode int
	select {
	case exitCode = <-wait:
	case err := <-srv.Done():
		if err == nil {
			exitCode = <-wait
			break
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
		cancel()
		log.Fatalf("Server run error: %v", err)
	}

	log.Printf("Server exited with code: %d", exitCode)
	os.Exit(exitCode)
}
