package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SampleSync/internal/alerter"
	"SampleSync/internal/config"
	"SampleSync/internal/engine/manager"
	"SampleSync/internal/engine/sink"
	"SampleSync/internal/engine/synchronizer"
	"SampleSync/internal/feed"
	"SampleSync/internal/model"
	"SampleSync/internal/notification"

	"github.com/gorilla/mux"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	log.Println("Starting ss-engine...")

	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	// 1. Load configuration.
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	interval, err := time.ParseDuration(cfg.Synchronizer.UpdateInterval)
	if err != nil {
		log.Fatalf("Invalid update_interval: %v", err)
	}

	// 2. Build the synchronizer core.
	core, err := synchronizer.New[float64](interval, model.RealClock{})
	if err != nil {
		log.Fatalf("Failed to create synchronizer: %v", err)
	}

	// 3. Create all enabled batch writers.
	writers := make([]model.Writer, 0, len(cfg.Writers))
	for _, writerDef := range cfg.Writers {
		if !writerDef.Enabled {
			continue
		}
		switch writerDef.Type {
		case "gob":
			writers = append(writers, sink.NewGobWriter(writerDef.Gob.RootPath))
		case "clickhouse":
			writer, err := sink.NewClickHouseWriter(writerDef.ClickHouse)
			if err != nil {
				log.Printf("Warning: failed to create writer type '%s': %v, skipping.", writerDef.Type, err)
				continue
			}
			writers = append(writers, writer)
		default:
			log.Printf("Warning: unknown writer type '%s' in config, skipping.", writerDef.Type)
		}
	}

	// 4. Connect the NATS transport.
	publisher, err := feed.NewPublisher(cfg.NATS.URL, cfg.NATS.SampleSubject, cfg.NATS.BatchSubject)
	if err != nil {
		log.Fatalf("Failed to connect NATS publisher: %v", err)
	}
	defer publisher.Close()

	mgr, err := manager.New(cfg, core, writers, publisher)
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}
	mgr.Start()

	subscriber, err := feed.NewSubscriber(cfg.NATS.URL, cfg.NATS.SampleSubject)
	if err != nil {
		log.Fatalf("Failed to connect NATS subscriber: %v", err)
	}
	if err := subscriber.Start(func(env *feed.SampleEnvelope) {
		mgr.Ingest(env.SourceID, env.Value)
	}); err != nil {
		log.Fatalf("Failed to subscribe to samples: %v", err)
	}

	// 5. gRPC health service: SERVING while the synchronizer is active.
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	if cfg.Control.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Control.GRPCAddr)
		if err != nil {
			log.Fatalf("Failed to listen on %s: %v", cfg.Control.GRPCAddr, err)
		}
		go func() {
			log.Printf("gRPC health server listening on %s", cfg.Control.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				log.Fatalf("gRPC server failed: %v", err)
			}
		}()
	}

	activate := func() {
		mgr.Activate()
		healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	}
	deactivate := func() {
		mgr.Deactivate()
		healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	}

	if cfg.Synchronizer.ActivateOnStart {
		activate()
		log.Println("Synchronizer activated on start.")
	}

	// 6. Staleness alerter, if configured.
	var alrt *alerter.Alerter
	if cfg.Alerter.Enabled {
		if cfg.SMTP.Host != "" {
			notifier := notification.NewEmailNotifier(cfg.SMTP)
			alrt, err = alerter.NewAlerter(&cfg.Alerter, mgr, notifier)
			if err != nil {
				log.Fatalf("Failed to create alerter: %v", err)
			}
			go alrt.Start()
			log.Println("Alerter enabled and initialized.")
		} else {
			log.Println("Alerter is enabled in config, but no notifiers are configured. Alerter will not run.")
		}
	}

	// 7. Control API.
	handler := &controlHandler{mgr: mgr, activate: activate, deactivate: deactivate}
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/activate", handler.activateHandler).Methods("POST")
	r.HandleFunc("/api/v1/deactivate", handler.deactivateHandler).Methods("POST")
	r.HandleFunc("/api/v1/status", handler.statusHandler).Methods("GET")
	r.HandleFunc("/api/v1/latest", handler.latestHandler).Methods("GET")

	server := &http.Server{
		Addr:    cfg.Control.ListenAddr,
		Handler: r,
	}
	go func() {
		log.Printf("Control API starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// 8. Wait for a shutdown signal.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutdown signal received, stopping engine...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Control API forced to shutdown: %v", err)
	}

	subscriber.Close()
	if alrt != nil {
		alrt.Stop()
	}
	mgr.Stop()
	grpcServer.GracefulStop()
	log.Println("Shutdown complete.")
}

// controlHandler holds the dependencies for the control API handlers.
type controlHandler struct {
	mgr        *manager.Manager
	activate   func()
	deactivate func()
}

func (h *controlHandler) activateHandler(w http.ResponseWriter, r *http.Request) {
	h.activate()
	log.Println("Synchronizer activated via control API.")
	writeJSON(w, map[string]bool{"active": true})
}

func (h *controlHandler) deactivateHandler(w http.ResponseWriter, r *http.Request) {
	h.deactivate()
	log.Println("Synchronizer deactivated via control API.")
	writeJSON(w, map[string]bool{"active": false})
}

func (h *controlHandler) statusHandler(w http.ResponseWriter, r *http.Request) {
	stats := h.mgr.Stats()
	_, lastEmit, emitted := h.mgr.LatestBatch()
	status := map[string]interface{}{
		"active":  stats.Active,
		"sources": stats.Sources,
		"dropped": stats.Dropped,
	}
	if emitted {
		status["last_emit"] = lastEmit.UTC().Format(time.RFC3339)
	}
	writeJSON(w, status)
}

func (h *controlHandler) latestHandler(w http.ResponseWriter, r *http.Request) {
	batch, _, ok := h.mgr.LatestBatch()
	if !ok {
		http.Error(w, "no batch emitted yet", http.StatusNotFound)
		return
	}
	data, err := feed.BatchWire(batch)
	if err != nil {
		http.Error(w, "failed to render batch", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
