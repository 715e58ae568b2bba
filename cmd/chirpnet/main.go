package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chirpnet/internal/auth"
	"chirpnet/internal/config"
	"chirpnet/internal/constants"
	"chirpnet/internal/db"
	"chirpnet/internal/routes"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Info().Msg("Chirpnet program initiated")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := db.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal().Err(err).Msg("Unable to connect to database")
	}
	defer func() {
		if err := db.Disconnect(context.Background(), client); err != nil {
			log.Error().Err(err).Msg("Disconnect failed")
		}
	}()

	database := client.Database(constants.MAIN_DATABASE)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		log.Fatal().Err(err).Msg("Unable to create indexes")
	}

	store := db.NewStore(database)
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	api := routes.New(store, tokens, cfg, log.Logger)

	log.Info().Msg(fmt.Sprintf("Server is running on http://localhost%v", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, api.Router()); err != nil {
		log.Error().Msg(fmt.Sprintf("Unable to start server : %v", err))
	}
}
