package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TheBrokenPipe/minutes-in-seconds/internal/api"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/config"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/embedding"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/events"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/llm"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/objectstore"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/rag"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/service"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/store"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/vectorstore"
	"github.com/TheBrokenPipe/minutes-in-seconds/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("api_server")
	appLogger.Info("starting API server")

	ctx := context.Background()

	db, disconnect, err := store.Connect(ctx, cfg.Databases.Mongo, appLogger)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer disconnect(context.Background())

	objects, err := objectstore.New(ctx, cfg.Databases.MinIO, appLogger)
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	vectors, err := vectorstore.New(ctx, cfg.Databases.Milvus, appLogger)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer vectors.Close()

	embeddings, err := embedding.NewModel(cfg.Embedding)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	model, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	uploads := events.NewPublisher(cfg.Databases.Kafka.Brokers, cfg.Databases.Kafka.UploadTopic, appLogger)
	defer uploads.Close()

	engine := rag.NewEngine(embeddings, vectors, model, cfg.Retrieval, appLogger)
	summariser := rag.NewSummariser(model, appLogger)

	svc := service.New(service.Deps{
		Meetings:   store.NewMongoMeetingStore(db),
		Chats:      store.NewMongoChatStore(db),
		Objects:    objects,
		Vectors:    vectors,
		Engine:     engine,
		Summariser: summariser,
		Uploads:    uploads,
	}, appLogger)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.NewAPI(svc, appLogger), map[string]api.HealthChecker{
		"milvus": vectors.HealthCheck,
		"minio":  objects.HealthCheck,
	})

	server := &http.Server{Addr: cfg.Server.Address, Handler: router}
	go func() {
		appLogger.WithField("address", cfg.Server.Address).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server failed: " + err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("shutdown incomplete: " + err.Error())
	}
	appLogger.Info("server stopped")
}
