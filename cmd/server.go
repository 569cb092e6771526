// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/stratastore/strata/pkg/accesslog"
	"github.com/stratastore/strata/pkg/api"
	"github.com/stratastore/strata/pkg/authz"
	"github.com/stratastore/strata/pkg/blobstore"
	"github.com/stratastore/strata/pkg/catalog"
	"github.com/stratastore/strata/pkg/catalog/memory"
	"github.com/stratastore/strata/pkg/catalog/sqlstore"
	"github.com/stratastore/strata/pkg/lifecycle"
	"github.com/stratastore/strata/pkg/logger"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ServerOpts holds the resolved server configuration.
type ServerOpts struct {
	IP       string
	HTTPPort int
	LogLevel string

	DataDir       string
	MaxObjectSize string

	DBDriver       string
	DBDSN          string
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBConnLifetime time.Duration
	DBConnIdleTime time.Duration

	AuthSecret string

	AuthzEndpoint string
	AuthzToken    string
	AuthzTimeout  time.Duration

	AccessLogsEnabled      bool
	AccessLogStore         string
	ClickHouseDSN          string
	AccessLogBufferSize    int
	AccessLogBatchSize     int
	AccessLogFlushInterval time.Duration
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the strata object store server",
	Run:   runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	f := serverCmd.Flags()
	f.String("ip", "0.0.0.0", "IP address to bind to")
	f.Int("http_port", 8080, "HTTP port for the API")
	f.String("log_level", "info", "Log level (debug, info, warn, error, fatal)")

	f.String("data_dir", "/var/lib/strata/data", "Base directory for object payloads")
	f.String("max_object_size", "5GiB", "Maximum object payload size (e.g. 100MB, 5GiB)")

	f.String("db_driver", "memory", "Catalog driver (memory, postgres, mysql)")
	f.String("db_dsn", "", "Catalog connection string")
	f.Int("db_max_open_conns", catalog.DefaultMaxOpenConns, "Maximum open catalog connections")
	f.Int("db_max_idle_conns", catalog.DefaultMaxIdleConns, "Maximum idle catalog connections")
	f.Duration("db_conn_lifetime", catalog.DefaultConnMaxLifetime*time.Second, "Catalog connection lifetime")
	f.Duration("db_conn_idle_time", catalog.DefaultConnMaxIdleTime*time.Second, "Catalog connection idle time")

	f.String("auth_secret", "", "HMAC secret for bearer token validation (or set STRATA_AUTH_SECRET)")

	f.String("authz_endpoint", "", "External authorizer check URL; empty allows everything")
	f.String("authz_token", "", "Bearer token for the external authorizer")
	f.Duration("authz_timeout", 2*time.Second, "Timeout per authorization check")

	f.Bool("access_logs_enabled", true, "Enable the access audit trail")
	f.String("access_log_store", "catalog", "Audit sink (catalog, clickhouse, log)")
	f.String("clickhouse_dsn", "", "ClickHouse DSN for the audit trail")
	f.Int("access_log_buffer_size", 10000, "Audit event buffer capacity")
	f.Int("access_log_batch_size", 500, "Batch size for audit inserts")
	f.Duration("access_log_flush_interval", 5*time.Second, "Audit flush interval")

	viper.BindPFlags(f)
}

func loadServerOpts(cmd *cobra.Command) ServerOpts {
	f := NewFlagLoader(cmd)
	return ServerOpts{
		IP:       f.String("ip"),
		HTTPPort: f.Int("http_port"),
		LogLevel: f.String("log_level"),

		DataDir:       f.String("data_dir"),
		MaxObjectSize: f.String("max_object_size"),

		DBDriver:       f.String("db_driver"),
		DBDSN:          f.String("db_dsn"),
		DBMaxOpenConns: f.Int("db_max_open_conns"),
		DBMaxIdleConns: f.Int("db_max_idle_conns"),
		DBConnLifetime: f.Duration("db_conn_lifetime"),
		DBConnIdleTime: f.Duration("db_conn_idle_time"),

		AuthSecret: f.String("auth_secret"),

		AuthzEndpoint: f.String("authz_endpoint"),
		AuthzToken:    f.String("authz_token"),
		AuthzTimeout:  f.Duration("authz_timeout"),

		AccessLogsEnabled:      f.Bool("access_logs_enabled"),
		AccessLogStore:         f.String("access_log_store"),
		ClickHouseDSN:          f.String("clickhouse_dsn"),
		AccessLogBufferSize:    f.Int("access_log_buffer_size"),
		AccessLogBatchSize:     f.Int("access_log_batch_size"),
		AccessLogFlushInterval: f.Duration("access_log_flush_interval"),
	}
}

func runServer(cmd *cobra.Command, args []string) {
	loadConfiguration("server")
	opts := loadServerOpts(cmd)

	if lvl, err := zerolog.ParseLevel(opts.LogLevel); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.Warn().Str("level", opts.LogLevel).Msg("unknown log level, keeping default")
	}

	if opts.AuthSecret == "" {
		logger.Fatal().Msg("auth_secret is required")
	}

	maxObjectSize, err := humanize.ParseBytes(opts.MaxObjectSize)
	if err != nil {
		logger.Fatal().Err(err).Str("value", opts.MaxObjectSize).Msg("invalid max_object_size")
	}

	blobs, err := blobstore.NewFSStore(blobstore.Config{
		Root:          opts.DataDir,
		MaxObjectSize: int64(maxObjectSize),
	})
	if err != nil {
		logger.Fatal().Err(err).Str("data_dir", opts.DataDir).Msg("failed to open blob store")
	}

	cat, err := openCatalog(cmd.Context(), opts)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", opts.DBDriver).Msg("failed to open catalog")
	}
	defer cat.Close()

	oracle, err := buildOracle(opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build authorization oracle")
	}

	collector, err := buildCollector(opts, cat)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build access log collector")
	}
	collector.Start(cmd.Context())
	defer collector.Stop()

	svc, err := lifecycle.NewService(lifecycle.Config{
		Blobs:   blobs,
		Catalog: cat,
		Oracle:  oracle,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build lifecycle service")
	}

	server, err := api.NewServer(api.Config{
		Service: svc,
		Auth:    api.NewAuthenticator(opts.AuthSecret),
		Audit:   collector,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build API server")
	}

	addr := fmt.Sprintf("%s:%d", opts.IP, opts.HTTPPort)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", addr).Str("driver", opts.DBDriver).
			Str("max_object_size", humanize.IBytes(maxObjectSize)).
			Msg("strata server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}

func openCatalog(ctx context.Context, opts ServerOpts) (catalog.Store, error) {
	switch catalog.Driver(opts.DBDriver) {
	case catalog.DriverMemory:
		return memory.New(), nil
	case catalog.DriverPostgres, catalog.DriverMySQL:
		store, err := sqlstore.Open(sqlstore.Config{
			DSN:             opts.DBDSN,
			Driver:          catalog.Driver(opts.DBDriver),
			MaxOpenConns:    opts.DBMaxOpenConns,
			MaxIdleConns:    opts.DBMaxIdleConns,
			ConnMaxLifetime: opts.DBConnLifetime,
			ConnMaxIdleTime: opts.DBConnIdleTime,
		})
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported catalog driver %q", opts.DBDriver)
	}
}

func buildOracle(opts ServerOpts) (authz.Oracle, error) {
	if opts.AuthzEndpoint == "" {
		logger.Warn().Msg("no authorizer configured, all requests allowed")
		return authz.AllowAll{}, nil
	}
	return authz.NewHTTPOracle(authz.HTTPOracleConfig{
		Endpoint: opts.AuthzEndpoint,
		Token:    opts.AuthzToken,
		Timeout:  opts.AuthzTimeout,
	})
}

func buildCollector(opts ServerOpts, cat catalog.Store) (accesslog.Collector, error) {
	if !opts.AccessLogsEnabled {
		return accesslog.Nop{}, nil
	}

	var store accesslog.Store
	switch opts.AccessLogStore {
	case "catalog":
		store = accesslog.NewCatalogStore(cat)
	case "clickhouse":
		ch, err := accesslog.NewClickHouseStore(accesslog.ClickHouseConfig{DSN: opts.ClickHouseDSN})
		if err != nil {
			return nil, err
		}
		store = ch
	case "log":
		store = accesslog.LogStore{}
	default:
		return nil, fmt.Errorf("unsupported access log store %q", opts.AccessLogStore)
	}

	return accesslog.NewCollector(accesslog.Config{
		BufferSize:    opts.AccessLogBufferSize,
		BatchSize:     opts.AccessLogBatchSize,
		FlushInterval: opts.AccessLogFlushInterval,
	}, store), nil
}
