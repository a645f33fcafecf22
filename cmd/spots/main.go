package main

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/bbernstein/surftrack/backend-go/internal/cache"
	"github.com/bbernstein/surftrack/backend-go/internal/config"
	"github.com/bbernstein/surftrack/backend-go/internal/handler"
	"github.com/bbernstein/surftrack/backend-go/internal/spot"
	"github.com/bbernstein/surftrack/backend-go/internal/store"
	"github.com/rs/zerolog/log"
)

var (
	spotsHandler *handler.SpotsHandler
	spotCache    *cache.SpotCache
	setupOnce    sync.Once
	lambdaStart  = lambda.Start
)

func setup() {
	setupOnce.Do(func() {
		cfg := config.LoadFromEnv()
		cfg.InitializeLogging()

		log.Info().Str("env", cfg.Environment).Msg("Environment")

		ctx := context.Background()
		backends, err := store.OpenBackends(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Opening storage")
		}

		storeConfig := config.GetStoreConfig()
		var spots spot.Source = backends.Relational
		if storeConfig.EnableSpotCache {
			spotCache, err = cache.NewSpotCache(backends.Relational, storeConfig)
			if err != nil {
				log.Fatal().Err(err).Msg("Creating spot cache")
			}
			spots = spotCache
		}
		spotsHandler = handler.NewSpotsHandler(spot.NewRegistry(spots))
	})
}

func handleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	setup()
	log.Info().Msg("Handling spots request")
	if spotCache != nil {
		stats := spotCache.Stats()
		log.Debug().Uint64("hits", stats["hits"]).Uint64("misses", stats["misses"]).Msg("Spot cache")
	}
	return spotsHandler.HandleRequest(ctx, request)
}

func main() {
	lambdaStart(handleRequest)
}
