package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"GraphTrace/internal/api"
	"GraphTrace/internal/config"
	"GraphTrace/internal/engine"
	"GraphTrace/internal/export"
	"GraphTrace/internal/graph"
	"GraphTrace/internal/model"
	"GraphTrace/internal/probe"
	"GraphTrace/internal/replay"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	log.Println("Starting gt-engine...")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	interval, err := cfg.Engine.Replay.ParseInterval()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Live graph and recording service.
	g := graph.New(cfg.Engine.NumShards)

	var sinks []replay.SnapshotSink
	for _, def := range cfg.Engine.Exporters {
		if !def.Enabled {
			continue
		}
		switch def.Type {
		case "clickhouse":
			sink, err := export.NewClickHouseSink(def.ClickHouse)
			if err != nil {
				log.Printf("Warning: failed to create exporter type '%s': %v, skipping.", def.Type, err)
				continue
			}
			defer sink.Close()
			sinks = append(sinks, sink)
		default:
			log.Printf("Warning: unknown exporter type '%s' in config, skipping.", def.Type)
		}
	}

	service := replay.NewSaveService(g, cfg.Engine.Replay.RootPath, interval, sinks...)
	if cfg.Engine.RecordOnStart {
		if err := service.StartRecord(); err != nil {
			log.Fatalf("Failed to start recording: %v", err)
		}
	}

	// Ingest pipeline fed by the NATS subscriber.
	ingestor := engine.NewIngestor(g, service, cfg.Engine.NumWorkers, cfg.Engine.SizeOfSampleChannel)
	ingestor.Start()

	sub, err := probe.NewSubscriber(cfg.Probe.NATSURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer sub.Close()

	input := ingestor.Input()
	if err := sub.Start(cfg.Probe.Subject, func(sample model.TrafficSample) {
		s := sample
		input <- &s
	}); err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}

	// HTTP read/control API.
	server := &http.Server{
		Addr:    cfg.API.ListenAddr,
		Handler: api.NewServer(g, service, cfg.Engine.Replay.RootPath).Router(),
	}
	go func() {
		log.Printf("API server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// Wait for a shutdown signal for graceful shutdown.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutdown signal received, stopping...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("API server forced to shutdown: %v", err)
	}

	sub.Close()
	ingestor.Stop()
	if recording, _ := service.Recording(); recording {
		if err := service.StopRecord(); err != nil {
			log.Printf("Error stopping recording: %v", err)
		}
	}
	log.Println("Shutdown complete.")
}
