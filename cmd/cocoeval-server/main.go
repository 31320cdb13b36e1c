// Command cocoeval-server browses recorded evaluation runs over HTTP.
//
//	cocoeval-server -db runs.db -listen :8080
//	cocoeval-server -db runs.db migrate status
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/cocoeval/internal/api"
	"github.com/banshee-data/cocoeval/internal/db"
	"github.com/banshee-data/cocoeval/internal/version"
)

var (
	dbPath      = flag.String("db", "cocoeval.db", "Path to the run history database")
	listen      = flag.String("listen", ":8080", "Listen address")
	devMode     = flag.Bool("dev", false, "Read migrations from internal/db/migrations on disk")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("cocoeval-server"))
		return
	}
	db.DevMode = *devMode

	if flag.NArg() > 0 && flag.Arg(0) == "migrate" {
		db.RunMigrateCommand(flag.Args()[1:], *dbPath)
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	mux, err := newMux(database)
	if err != nil {
		log.Fatalf("Failed to build routes: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, &http.Server{Addr: *listen, Handler: api.LoggingMiddleware(mux)}); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}

// newMux mounts the run browser next to the admin debug routes.
func newMux(database *db.DB) (*http.ServeMux, error) {
	mux := http.NewServeMux()
	if err := database.AttachAdminRoutes(mux); err != nil {
		return nil, err
	}
	apiMux := api.NewServer(db.NewRunStore(database)).ServeMux()
	mux.Handle("/api/", apiMux)
	mux.Handle("/charts/", apiMux)
	return mux, nil
}

// serve runs server until ctx is cancelled, then drains it.
func serve(ctx context.Context, server *http.Server) error {
	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	return nil
}
