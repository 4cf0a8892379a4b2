package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acganger/ganger-platform-sub002/internal/access"
	"github.com/acganger/ganger-platform-sub002/internal/access/watchlist"
	"github.com/acganger/ganger-platform-sub002/internal/audit"
	"github.com/acganger/ganger-platform-sub002/internal/audit/anomaly"
	"github.com/acganger/ganger-platform-sub002/internal/audit/forward"
	"github.com/acganger/ganger-platform-sub002/internal/audit/integrity"
	"github.com/acganger/ganger-platform-sub002/internal/audit/query"
	"github.com/acganger/ganger-platform-sub002/internal/audit/report"
	"github.com/acganger/ganger-platform-sub002/internal/audit/store/memory"
	"github.com/acganger/ganger-platform-sub002/internal/audit/store/postgres"
	"github.com/acganger/ganger-platform-sub002/internal/audit/writer"
	"github.com/acganger/ganger-platform-sub002/internal/encryption"
	"github.com/acganger/ganger-platform-sub002/internal/jwtauth"
	"github.com/acganger/ganger-platform-sub002/internal/platform/config"
	"github.com/acganger/ganger-platform-sub002/internal/platform/httpserver"
	"github.com/acganger/ganger-platform-sub002/internal/platform/kafka"
	"github.com/acganger/ganger-platform-sub002/internal/platform/logger"
	platformredis "github.com/acganger/ganger-platform-sub002/internal/platform/redis"
	httptransport "github.com/acganger/ganger-platform-sub002/internal/transport/http"
)

// main wires the audit engine's dependencies, mounts the compliance API, and
// owns the shutdown order: HTTP first, then the writer flush, then the
// forwarder drain. Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	// Durable store, or the in-process store for development.
	var store audit.Store
	if cfg.Database.URL != "" {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(context.Background()); err != nil {
			log.Error("ping database", "error", err)
			os.Exit(1)
		}
		store = postgres.New(db)
	} else {
		log.Warn("DATABASE_URL not set, audit records will not survive restarts")
		store = memory.New()
	}

	// Optional security-event fan-out to Kafka.
	var fwd *forward.Forwarder
	producer, err := kafka.NewProducer(kafka.Config{
		Brokers:  cfg.Kafka.Brokers,
		ClientID: cfg.Kafka.ClientID,
	})
	if err != nil {
		log.Error("create kafka producer", "error", err)
		os.Exit(1)
	}
	if producer != nil {
		defer producer.Close()
		fwdCfg := forward.DefaultConfig()
		fwdCfg.Topic = cfg.Kafka.Topic
		fwd, err = forward.New(producer,
			forward.WithLogger(log),
			forward.WithConfig(fwdCfg),
			forward.WithMetrics(forward.NewMetrics()),
		)
		if err != nil {
			log.Error("create forwarder", "error", err)
			os.Exit(1)
		}
		fwd.Start()
	}

	writerCfg := writer.DefaultConfig()
	writerCfg.BatchSize = cfg.Audit.BatchSize
	writerCfg.FlushInterval = cfg.Audit.FlushInterval
	writerOpts := []writer.Option{
		writer.WithLogger(log),
		writer.WithMetrics(writer.NewMetrics()),
		writer.WithConfig(writerCfg),
	}
	if fwd != nil {
		writerOpts = append(writerOpts, writer.WithSink(fwd))
	}
	auditWriter, err := writer.New(store, writerOpts...)
	if err != nil {
		log.Error("create audit writer", "error", err)
		os.Exit(1)
	}

	auditQuery, err := query.New(store, query.WithLogger(log))
	if err != nil {
		log.Error("create query service", "error", err)
		os.Exit(1)
	}
	auditSvc := &auditService{writer: auditWriter, query: auditQuery}

	// Optional Redis watchlist; falls back to the in-process watchlist. The
	// anomaly detector writes it, the access validator reads it.
	var flagged watchlist.Watchlist
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		flagged = watchlist.NewRedis(redisClient.Client)
	} else {
		flagged = watchlist.NewMemory()
	}

	integritySvc, err := integrity.New(auditQuery, integrity.WithLogger(log))
	if err != nil {
		log.Error("create integrity validator", "error", err)
		os.Exit(1)
	}
	anomalySvc, err := anomaly.New(auditQuery,
		anomaly.WithLogger(log),
		anomaly.WithWatchlist(flagged),
	)
	if err != nil {
		log.Error("create anomaly detector", "error", err)
		os.Exit(1)
	}
	reportSvc, err := report.New(auditQuery,
		report.WithLogger(log),
		report.WithRecorder(auditWriter),
	)
	if err != nil {
		log.Error("create report generator", "error", err)
		os.Exit(1)
	}

	accessSvc, err := access.New(auditWriter,
		access.WithLogger(log),
		access.WithWatchlist(flagged),
	)
	if err != nil {
		log.Error("create access validator", "error", err)
		os.Exit(1)
	}

	// Field encryption is a library primitive for in-process consumers; it
	// has no transport surface. Constructed here so a malformed key fails
	// the boot instead of the first encrypt call, and so the degraded-mode
	// warning shows up at startup.
	codec, err := encryption.New(encryption.Config{
		Key:        cfg.Encryption.Key,
		KeyVersion: cfg.Encryption.KeyVersion,
	},
		encryption.WithLogger(log),
		encryption.WithRecorder(auditWriter),
	)
	if err != nil {
		log.Error("create encryption codec", "error", err)
		os.Exit(1)
	}
	log.Info("field encryption ready", "degraded", codec.Degraded())

	jwtService := jwtauth.NewService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)

	handler := httptransport.NewHandler(log, auditSvc, accessSvc, integritySvc, anomalySvc, reportSvc, jwtService)
	router := chi.NewRouter()
	handler.Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	log.Info("starting auditd", "addr", cfg.Server.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	// Flush any buffered records before the process exits.
	if err := auditWriter.Shutdown(ctx); err != nil {
		log.Error("writer shutdown", "error", err)
	}
	if fwd != nil {
		if err := fwd.Shutdown(ctx); err != nil {
			log.Error("forwarder shutdown", "error", err)
		}
	}
}
