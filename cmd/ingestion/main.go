package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"statsvc/config"
	core "statsvc/ingestion/service/core"
	grpchandler "statsvc/ingestion/service/grpc"
	httphandler "statsvc/ingestion/service/http"
	"statsvc/internal/messaging/producer"
	"statsvc/processing"
	"statsvc/storage/store"
)

// Configuration directory, overridable with STATSVC_CONFIG
const (
	defaultConfigDir = "./config"
	envConfigDir     = "STATSVC_CONFIG"
)

func main() {
	logger := log.New(os.Stdout, "[STATSVC] ", log.LstdFlags|log.Lshortfile)
	logger.Println("Starting statistics service...")

	// 1. Load configuration
	configDir := os.Getenv(envConfigDir)
	if configDir == "" {
		configDir = defaultConfigDir
	}
	appCfg, err := config.LoadConfig(configDir)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := appCfg.Ingestion
	cfg.Database.LogConfiguration()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Initialize dependencies
	logger.Println("Initializing database connection...")
	dbStore, err := store.New(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize database store: %v", err)
	}
	defer dbStore.Close()

	logger.Println("Initializing record event producer...")
	eventProducer, err := producer.New(cfg.KafkaProducer, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize record event producer: %v", err)
	}
	defer eventProducer.Close()

	normalizer, err := processing.NewNormalizer(cfg.Timestamp.SourceTimezone, cfg.Timestamp.TargetTimezone, cfg.Timestamp.Layouts...)
	if err != nil {
		logger.Fatalf("Failed to initialize timestamp normalizer: %v", err)
	}

	// 3. Create core Service and Handlers
	coreService := core.NewService(dbStore, eventProducer, processing.NewProcessor(normalizer), logger, cfg.BatchProcessor)
	defer coreService.Close() // Flush queued record events before the producer closes
	statsHandler := httphandler.NewStatsHandler(coreService, logger, cfg.HttpServer.MaxBodyBytes)

	var wg sync.WaitGroup

	// 4. HTTP server
	httpServer := &http.Server{
		Addr:           cfg.HttpListenAddr,
		Handler:        httphandler.NewRouter(statsHandler, cfg.Monitoring),
		ReadTimeout:    cfg.HttpServer.ReadTimeout,
		WriteTimeout:   cfg.HttpServer.WriteTimeout,
		IdleTimeout:    cfg.HttpServer.IdleTimeout,
		MaxHeaderBytes: cfg.HttpServer.MaxHeaderBytes,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Printf("HTTP server listening on %s", cfg.HttpListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server startup failed: %v", err)
		}
		logger.Println("HTTP server stopped listening.")
	}()

	// 5. [Conditional startup] gRPC health server
	var grpcServer *grpc.Server
	if cfg.GrpcListenAddr != "" {
		lis, err := net.Listen("tcp", cfg.GrpcListenAddr)
		if err != nil {
			logger.Fatalf("Unable to listen on gRPC port %s: %v", cfg.GrpcListenAddr, err)
		}
		healthServer := grpchandler.NewServer(coreService, cfg.Monitoring.HealthCheckInterval, logger)
		grpcServer = grpc.NewServer()
		healthServer.Register(grpcServer)

		wg.Add(2)
		go func() {
			defer wg.Done()
			healthServer.Run(ctx)
		}()
		go func() {
			defer wg.Done()
			logger.Printf("gRPC health server listening on %s", cfg.GrpcListenAddr)
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				logger.Fatalf("gRPC server startup failed: %v", err)
			}
			logger.Println("gRPC server stopped listening.")
		}()
	} else {
		logger.Println("grpc_listen_addr not configured, skipping gRPC server startup.")
	}

	// 6. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Printf("Received shutdown signal: %s, starting graceful shutdown...", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	logger.Println("Shutting down HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP server shutdown failed: %v", err)
	} else {
		logger.Println("HTTP server shutdown.")
	}
	if grpcServer != nil {
		logger.Println("Shutting down gRPC server...")
		grpcServer.GracefulStop()
		logger.Println("gRPC server shutdown.")
	}

	// Wait for servers and the health checker to finish
	wg.Wait()
	logger.Println("All servers stopped. Statistics service shutdown.")
}
