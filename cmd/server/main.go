// Server runs the tenant auth HTTP API. Set DATABASE_URL and the JWT key
// pair; see .env.example for the full list.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"tenantauth/internal/audit"
	auditrepo "tenantauth/internal/audit/repository"
	authhandler "tenantauth/internal/auth/handler"
	authservice "tenantauth/internal/auth/service"
	ccrepo "tenantauth/internal/contactchannel/repository"
	"tenantauth/internal/config"
	"tenantauth/internal/db"
	"tenantauth/internal/db/migrate"
	"tenantauth/internal/devcode"
	"tenantauth/internal/events"
	healthhandler "tenantauth/internal/health/handler"
	"tenantauth/internal/mailer"
	pkrepo "tenantauth/internal/passkey/repository"
	"tenantauth/internal/security"
	"tenantauth/internal/server"
	sessionrepo "tenantauth/internal/session/repository"
	sessionservice "tenantauth/internal/session/service"
	tenantrepo "tenantauth/internal/tenant/repository"
	userrepo "tenantauth/internal/user/repository"
	vcrepo "tenantauth/internal/verificationcode/repository"
	vcservice "tenantauth/internal/verificationcode/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if cfg.Env == "development" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal().Err(err).Msg("migrate")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	defer conn.Close()

	privKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatal().Err(err).Msg("JWT_PRIVATE_KEY")
	}
	pubKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatal().Err(err).Msg("JWT_PUBLIC_KEY")
	}
	tokens := security.NewTokenProvider(privKey, pubKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())

	var emit events.Emitter = events.Noop{}
	if brokers := cfg.KafkaBrokersList(); len(brokers) > 0 {
		emit = events.NewKafkaEmitter(brokers, cfg.KafkaTopic, log)
	}
	defer emit.Close()

	var devCodes devcode.Store = devcode.Noop{}
	if cfg.DevCodeEndpoint {
		devCodes = devcode.NewMemoryStore()
	}

	tenants := tenantrepo.NewPostgresRepository(conn)
	sessions := sessionservice.NewIssuer(sessionrepo.NewPostgresRepository(conn), tokens, cfg.RefreshTTL(), emit, log)
	svc := authservice.NewService(authservice.Deps{
		Users:         userrepo.NewPostgresRepository(conn),
		Channels:      ccrepo.NewPostgresRepository(conn),
		Passkeys:      pkrepo.NewPostgresRepository(conn),
		Sessions:      sessions,
		Codes:         vcservice.NewStore(vcrepo.NewPostgresRepository(conn)),
		Hasher:        security.NewHasher(cfg.BcryptCost),
		Mailer:        mailer.LogMailer{Log: log},
		DevCodes:      devCodes,
		Events:        emit,
		Log:           log,
		SignInCodeTTL: cfg.CodeTTL(),
		AttemptTTL:    cfg.AttemptTTL(),
	})

	e := server.New(server.Deps{
		Auth:   authhandler.NewAuthAPI(svc, sessions, tenants, devCodes, cfg.ServerAPIKey, cfg.DevCodeEndpoint, log),
		Health: healthhandler.NewHandler(conn),
		Audit:  audit.NewLogger(auditrepo.NewPostgresRepository(conn), log),
		Log:    log,
	})

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("serve")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down http server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("http server stopped")
}
