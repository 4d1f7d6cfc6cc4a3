package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pvcapacity/internal/api"
	"pvcapacity/internal/config"
	"pvcapacity/internal/container"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

// newRouter serves health on the root and the results API under /api
func newRouter(c *container.Container) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	engine := api.NewEngine(c.RunsHandler)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Mount("/api", engine)
	return r
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown(context.Background())

	if appConfig.Database.URL != "" {
		if err := appContainer.ConnectDatabase(context.Background()); err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
	}

	server := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           newRouter(appContainer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Serving Monte Carlo results from %s on port %s", appConfig.Output.Dir, appConfig.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown: %v", err)
	}
}
