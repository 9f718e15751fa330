// Package main is the entry point for the vault inventory server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/vault-inventory/internal/auth"
	"github.com/vyrodovalexey/vault-inventory/internal/config"
	"github.com/vyrodovalexey/vault-inventory/internal/seed"
	"github.com/vyrodovalexey/vault-inventory/internal/server"
	"github.com/vyrodovalexey/vault-inventory/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx))
}

// run wires the server together and blocks until ctx is cancelled or the
// listener fails. The return value is the process exit code.
func run(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "vault-server: %v\n", err)
		return 1
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vault-server: building logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.String("log_level", cfg.LogLevel),
		zap.String("auth_mode", cfg.AuthModeOrDefault()),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.String("seed_file", cfg.SeedFile),
		zap.Duration("ws_interval", cfg.WSInterval),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
	)

	authenticator, err := newAuthenticator(cfg, logger)
	if err != nil {
		logger.Error("failed to build authenticator", zap.Error(err))
		return 1
	}

	vaultStore, err := newVaultStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to prepare vault", zap.Error(err))
		return 1
	}

	srv := server.New(cfg, logger, vaultStore, authenticator)
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start() }()

	select {
	case err := <-serveErr:
		logger.Error("server stopped unexpectedly", zap.Error(err))
		return 1
	case <-ctx.Done():
		logger.Info("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return 1
	}

	logger.Info("server stopped")
	return 0
}

// newLogger returns a JSON production logger. Unknown levels fall back to info.
func newLogger(level string) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.MessageKey = "message"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.EncodeDuration = zapcore.SecondsDurationEncoder

	return zapConfig.Build()
}

// newVaultStore creates the vault store and, when a seed file is configured,
// fills it before the server starts accepting requests.
func newVaultStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store.MemoryStore, error) {
	vaultStore := store.NewMemoryStore()
	if cfg.SeedFile == "" {
		return vaultStore, nil
	}

	items, err := seed.Load(cfg.SeedFile)
	if err != nil {
		return nil, err
	}
	if err := seed.Apply(ctx, vaultStore, items); err != nil {
		return nil, fmt.Errorf("seeding vault from %s: %w", cfg.SeedFile, err)
	}

	summary, err := vaultStore.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("summarizing seeded vault: %w", err)
	}
	logger.Info("vault seeded",
		zap.String("seed_file", cfg.SeedFile),
		zap.Int("items", summary.Count),
		zap.Float64("total_value", summary.TotalValue),
	)

	return vaultStore, nil
}

// newAuthenticator picks the authenticator for the configured mode. A nil
// authenticator with a nil error means authentication is disabled.
func newAuthenticator(cfg *config.Config, logger *zap.Logger) (auth.Authenticator, error) {
	mode := cfg.AuthModeOrDefault()

	var (
		a   auth.Authenticator
		err error
	)
	switch mode {
	case config.AuthModeNone:
		logger.Warn("authentication disabled, every caller may mutate the vault")
		return nil, nil
	case config.AuthModeBasic:
		a, err = auth.NewBasicAuthenticator(cfg.BasicAuthUsers)
	case config.AuthModeAPIKey:
		a, err = auth.NewAPIKeyAuthenticator(cfg.APIKeys)
	case config.AuthModeMulti:
		var multi *auth.MultiAuthenticator
		if multi, err = newMultiAuthenticator(cfg); err == nil {
			logger.Info("multi-auth enabled", zap.Any("methods", multi.Methods()))
			a = multi
		}
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidAuthMode, cfg.AuthMode)
	}
	if err != nil {
		return nil, fmt.Errorf("auth mode %s: %w", mode, err)
	}

	logger.Info("authentication enabled", zap.String("method", string(a.Method())))
	return a, nil
}

// newMultiAuthenticator combines every credential source present in cfg.
func newMultiAuthenticator(cfg *config.Config) (*auth.MultiAuthenticator, error) {
	var members []auth.Authenticator

	if cfg.BasicAuthUsers != "" {
		basic, err := auth.NewBasicAuthenticator(cfg.BasicAuthUsers)
		if err != nil {
			return nil, err
		}
		members = append(members, basic)
	}
	if cfg.APIKeys != "" {
		keys, err := auth.NewAPIKeyAuthenticator(cfg.APIKeys)
		if err != nil {
			return nil, err
		}
		members = append(members, keys)
	}

	if len(members) == 0 {
		return nil, config.ErrInvalidMultiAuthConfig
	}
	return auth.NewMultiAuthenticator(members...), nil
}
