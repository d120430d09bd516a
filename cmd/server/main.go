package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"echoplex-server/config"
	"echoplex-server/internal/api/handlers"
	"echoplex-server/internal/core/processor"
	"echoplex-server/internal/db"
	"echoplex-server/internal/db/repository"
	"echoplex-server/internal/integrations/detector"
	"echoplex-server/internal/integrations/facerec"
	"echoplex-server/internal/integrations/mqtt"
	"echoplex-server/internal/logger"
	"echoplex-server/internal/server/sse"
	"echoplex-server/internal/services/cleanup"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(log.Fields{
		"component": "Main",
		"detector":  cfg.Detector.Enabled,
		"facerec":   cfg.FaceRec.Enabled,
	}).Info("Starting EchoPlex matching server")

	database, err := db.Open(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	repo := repository.NewSQLiteCaseRepository(database)

	detectorClient := detector.NewClient(cfg.Detector)
	facerecClient := facerec.NewClient(cfg.FaceRec)

	frameProcessor := processor.NewFrameProcessor(detectorClient, facerecClient, cfg.Scan)
	videoScanner := processor.NewVideoScanner(frameProcessor, cfg.Scan.FrameInterval)
	scanPool := processor.NewScanPool(cfg.Scan.MaxConcurrent)

	sseHub := sse.NewHub()
	go sseHub.Run()

	alerter := mqtt.NewPublisher(cfg.MQTT)
	if err := alerter.Start(); err != nil {
		log.Warnf("MQTT alerting unavailable: %v", err)
	}
	defer alerter.Stop()

	cleanupService := cleanup.NewService(cfg.Server.UploadDir, cfg.Cleanup.RetentionHours, time.Hour)
	if cleanupService != nil {
		cleanupService.Start()
		defer cleanupService.Stop()
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))

	// Reference photos are served straight from the upload directory.
	router.Static(cfg.Server.UploadURL, cfg.Server.UploadDir)

	apiHandler := handlers.NewAPIHandler(cfg, repo, detectorClient, facerecClient,
		frameProcessor, videoScanner, scanPool, sseHub, alerter)
	apiHandler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.WithFields(log.Fields{"component": "Main", "addr": srv.Addr}).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Forced shutdown: %v", err)
	}
}
