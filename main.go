package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flowbit-ai/intake-agent/agent/classifier"
	"github.com/flowbit-ai/intake-agent/agent/extractor"
	"github.com/flowbit-ai/intake-agent/agent/orchestrator"
	routerx "github.com/flowbit-ai/intake-agent/agent/router"
	statex "github.com/flowbit-ai/intake-agent/agent/state"
	"github.com/flowbit-ai/intake-agent/api"
	configx "github.com/flowbit-ai/intake-agent/pkg/config"
	llmx "github.com/flowbit-ai/intake-agent/pkg/llm"
	_ "github.com/flowbit-ai/intake-agent/pkg/logger/autoload"
)

type AppConfig struct {
	HTTPPort     int    `envconfig:"HTTP_PORT" split_words:"true" default:"8080"`
	StoreBackend string `envconfig:"STORE_BACKEND" split_words:"true" default:"redis"`
	GatewayMode  string `envconfig:"GATEWAY_MODE" split_words:"true" default:"simulated"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("APP")

	llmCfg := configx.MustNew[llmx.Config]("LLM")
	llmClient, err := llmx.NewClient(*llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize llm client")
	}

	store, err := buildStore(appCfg.StoreBackend)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize state store")
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		log.Fatal().Err(err).Str("backend", appCfg.StoreBackend).Msg("state store unreachable, refusing to start")
	}

	gateway, err := buildGateway(appCfg.GatewayMode)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize action gateway")
	}

	pipeline, err := orchestrator.New(
		store,
		classifier.New(llmClient),
		extractor.NewRegistry(llmClient),
		routerx.New(store, gateway),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize orchestrator")
	}

	server := api.NewServer(pipeline, appCfg.HTTPPort)
	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("api server stopped")
	}
}

func buildStore(backend string) (statex.Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "redis":
		cfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH")
		return statex.NewUpstashRedisStore(*cfg)
	case "postgres":
		cfg := configx.MustNew[statex.PostgresConfig]("POSTGRES")
		return statex.NewPostgresStore(context.Background(), *cfg)
	default:
		return nil, fmt.Errorf("unknown store backend %q, expected redis or postgres", backend)
	}
}

func buildGateway(mode string) (routerx.Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "simulated":
		return routerx.NewSimulatedGateway(), nil
	case "http":
		cfg := configx.MustNew[routerx.GatewayConfig]("ACTION_GATEWAY")
		return routerx.NewHTTPGateway(*cfg)
	default:
		return nil, fmt.Errorf("unknown gateway mode %q, expected simulated or http", mode)
	}
}
