package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/branchwork/bramble/internal/logging"
	"github.com/branchwork/bramble/pkg/adapters/file"
	"github.com/branchwork/bramble/pkg/adapters/httpapi"
	"github.com/branchwork/bramble/pkg/adapters/memory"
	redisadapter "github.com/branchwork/bramble/pkg/adapters/redis"
	"github.com/branchwork/bramble/pkg/observability"
	"github.com/branchwork/bramble/pkg/persistence/middleware"
	"github.com/branchwork/bramble/pkg/ports"
	"github.com/branchwork/bramble/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the stateless HTTP server",
	Long: `Serves the flows in the directory as a JSON API. Sessions are
rehydrated from the state store per request, so replicas can share a
Redis backend and scale horizontally.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		port, _ := cmd.Flags().GetString("port")
		redisAddr, _ := cmd.Flags().GetString("redis")
		redisPassword, _ := cmd.Flags().GetString("redis-password")
		redisDB, _ := cmd.Flags().GetInt("redis-db")
		sessionTTL, _ := cmd.Flags().GetDuration("session-ttl")
		encryptionKey, _ := cmd.Flags().GetString("encryption-key")
		maskPatterns, _ := cmd.Flags().GetStringArray("mask")
		debug, _ := cmd.Flags().GetBool("debug")

		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}
		logger := logging.New(logLevel)

		loader, err := file.New(dir, file.WithLogger(logger))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading flows: %v\n", err)
			os.Exit(1)
		}

		var (
			store       ports.StateStore
			sessionOpts = []session.Option{session.WithLogger(logger)}
		)
		if redisAddr != "" {
			client := goredis.NewClient(&goredis.Options{
				Addr:     redisAddr,
				Password: redisPassword,
				DB:       redisDB,
			})
			store = redisadapter.NewFromClient(client, redisadapter.WithTTL(sessionTTL))
			sessionOpts = append(sessionOpts,
				session.WithLocker(redisadapter.NewLocker(client, "bramble:lock:")))
			logger.Info("using redis state store", "addr", redisAddr, "db", redisDB)
		} else {
			store = memory.NewStore()
			logger.Info("using in-memory state store")
		}

		var middlewares []middleware.Middleware
		if len(maskPatterns) > 0 {
			middlewares = append(middlewares, middleware.NewPIIMasking(maskPatterns))
		}
		if encryptionKey != "" {
			key, err := base64.StdEncoding.DecodeString(encryptionKey)
			if err != nil || len(key) != 32 {
				fmt.Fprintln(os.Stderr, "Error: --encryption-key must be a base64-encoded 32-byte key")
				os.Exit(1)
			}
			middlewares = append(middlewares, middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: key}))
		}
		store = middleware.Chain(store, middlewares...)

		registry := prometheus.NewRegistry()
		metrics := observability.NewMetrics(registry)

		server := httpapi.NewServer(loader, session.NewManager(store, sessionOpts...),
			httpapi.WithLogger(logger),
			httpapi.WithLifecycleHooks(metrics.Hooks()),
			httpapi.WithMetricsRegistry(registry),
		)

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: server.Handler(),
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("server listening", "addr", srv.Addr, "dir", dir)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("forced close failed", "err", err)
				}
			}
			logger.Info("server stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for shared session state (empty = in-memory)")
	serveCmd.Flags().String("redis-password", "", "Redis password")
	serveCmd.Flags().Int("redis-db", 0, "Redis database number")
	serveCmd.Flags().Duration("session-ttl", 24*time.Hour, "Session snapshot expiry (redis only)")
	serveCmd.Flags().String("encryption-key", "", "Base64 32-byte key for snapshot encryption at rest")
	serveCmd.Flags().StringArray("mask", nil, "Variable key pattern to mask before persisting (repeatable)")
}
