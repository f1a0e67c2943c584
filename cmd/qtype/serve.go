package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/events"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/server"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/middleware"
)

var (
	serveFlags    modeFlags
	flagServeMaxK int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve answer type predictions over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.mode, "mode", "", "retrieval mode: EC or TC (default search.mode)")
	serveCmd.Flags().StringVar(&serveFlags.similarity, "similarity", "", "similarity: default or custom (default search.similarity)")
	serveCmd.Flags().IntVar(&flagServeMaxK, "max-k", 1000, "largest k a request may ask for")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	serveFlags.source = "all"
	mode, sim, _, err := serveFlags.withDefaults(cfg.Search).parse()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logger.FromContext(ctx)

	log.Info("starting prediction service", "port", cfg.Server.Port, "mode", mode.String(), "similarity", sim.String())
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	scorer, idx, err := a.scorer(ctx, mode, sim, 0)
	if err != nil {
		return err
	}

	var predictions *server.PredictionCache
	redisClient, err := a.redisClient()
	if err != nil {
		log.Warn("redis unavailable, prediction caching disabled", "error", err)
	} else {
		predictions = server.NewPredictionCache(redisClient, cfg.Redis.CacheTTL, a.metrics)
		log.Info("prediction cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	if cfg.Kafka.Enabled {
		var invalidator events.Invalidator
		if predictions != nil {
			invalidator = predictions
		}
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ArtifactsRebuilt, events.HandleRebuilt(a.builder.Cache(), invalidator))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error("rebuild event consumer stopped", "error", err)
			}
		}()
		log.Info("listening for rebuilt artifacts", "topic", cfg.Kafka.Topics.ArtifactsRebuilt)
	}

	checker := health.NewChecker()
	checker.Register("index", health.IndexCheck(idx))
	if redisClient != nil {
		checker.Register("redis", health.PingCheck(redisClient, false))
	} else {
		checker.Register("redis", health.PingCheck(nil, false))
	}

	opts := server.RouterOptions{Metrics: a.metrics, Timeout: cfg.Server.WriteTimeout}
	if cfg.Server.RateLimit > 0 {
		opts.Limiter = middleware.NewLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)
	}
	h := server.NewHandler(scorer, predictions, flagServeMaxK)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.NewRouter(h, checker, opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", "error", err)
		}
	}()

	log.Info("prediction service listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	log.Info("prediction service stopped")
	return nil
}
