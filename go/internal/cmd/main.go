package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/elliottower/cogment-verse/go/internal/actors"
	"github.com/elliottower/cogment-verse/go/internal/bus"
	"github.com/elliottower/cogment-verse/go/internal/config"
	"github.com/elliottower/cogment-verse/go/internal/environments/connectfour"
	"github.com/elliottower/cogment-verse/go/internal/gateway"
	"github.com/elliottower/cogment-verse/go/internal/trial"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("environment", cfg.Trial.Environment).
		Str("nats_url", cfg.NATS.URL).
		Str("port", cfg.Server.Port).
		Msg("starting web control plane")

	// Connect to NATS and provision the trial streams
	nc, js, err := bus.Connect(bus.Config{
		URL:           cfg.NATS.URL,
		MaxReconnects: cfg.NATS.MaxReconnects,
		ReconnectWait: cfg.NATS.ReconnectWait(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer nc.Close()

	setupCtx, setupCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer setupCancel()
	if err := bus.EnsureStreams(setupCtx, js); err != nil {
		log.Fatal().Err(err).Msg("failed to provision streams")
	}

	publisher := bus.NewPublisher(js)

	// Trial service
	newEnv, numActions, err := environmentFactory(cfg.Trial.Environment)
	if err != nil {
		log.Fatal().Err(err).Msg("unsupported trial environment")
	}
	trialService := trial.NewService(publisher, newEnv, trial.SessionConfig{
		Environment: cfg.Trial.Environment,
		WebActor:    actors.WebActorName,
		WebPlayer:   connectfour.Agents[0],
		NumActions:  numActions,
	})

	actionConsumer, err := trial.NewActionConsumer(setupCtx, trialService, js, trial.DefaultActionConsumerConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create action consumer")
	}

	// Gateway service
	connectionManager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	gatewayService, err := gateway.NewService(
		connectionManager,
		publisher,
		trialService,
		cfg.Trial.Environment,
		cfg.Trial.TurnTime(),
		clockwork.NewRealClock(),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway service")
	}
	connectionManager.SetInboundHandler(gatewayService)

	eventConsumer, err := gateway.NewEventConsumer(setupCtx, gatewayService, js, gateway.DefaultEventConsumerConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event consumer")
	}

	// HTTP server
	mux := http.NewServeMux()
	gateway.NewHandler(connectionManager, gatewayService).RegisterRoutes(mux)
	setupHealthCheck(mux)
	server := setupServer(mux, cfg.Server.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go connectionManager.Start(ctx)
	go func() {
		if err := gatewayService.Run(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()
	go func() {
		if err := actionConsumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("action consumer failed")
		}
	}()
	go func() {
		if err := eventConsumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("event consumer failed")
		}
	}()
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()
	if err := eventConsumer.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop event consumer")
	}
	if err := actionConsumer.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop action consumer")
	}

	// Give in-flight trial sessions time to wind down
	time.Sleep(1 * time.Second)

	log.Info().Msg("shutdown complete")
}

// environmentFactory resolves the configured environment implementation.
func environmentFactory(envID string) (trial.EnvironmentFactory, int, error) {
	switch envID {
	case connectfour.ImplementationName:
		return func() trial.Environment { return connectfour.New() }, connectfour.Columns, nil
	default:
		return nil, 0, fmt.Errorf("no environment adapter for %q", envID)
	}
}
