package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/joho/godotenv/autoload"

	"github.com/wjteo/rankrouter/internal/data"
	"github.com/wjteo/rankrouter/internal/rerank"
	"github.com/wjteo/rankrouter/internal/router"
	"github.com/wjteo/rankrouter/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	settingsPath := flag.String("settings", "settings.json", "path to the settings file")
	requestsPath := flag.String("requests", "", "path to a JSON file holding the rerank requests")
	outputPath := flag.String("output", "", "write ranked results to this file instead of stdout")
	withHistory := flag.Bool("history", false, "record model invocations on the results")
	flag.Parse()

	if *requestsPath == "" {
		log.Fatal().Msg("-requests is required")
	}

	settings, err := storage.LoadSettings(*settingsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *settingsPath).Msg("could not load settings")
	}

	keys := settings.ApiKeys
	if env := os.Getenv("OPENROUTER_API_KEYS"); env != "" {
		keys = splitKeys(env)
	} else if env := os.Getenv("OPENROUTER_API_KEY"); env != "" {
		keys = []string{env}
	}
	if len(keys) == 0 {
		log.Fatal().Msg("no API keys: set api_keys in settings or OPENROUTER_API_KEY in the environment")
	}

	client, err := router.NewClient(router.Config{
		Model:       settings.Model,
		ContextSize: settings.ContextSize,
		Keys:        keys,
		APIBase:     settings.ApiBase,
		SiteURL:     settings.SiteURL,
		SiteName:    settings.SiteName,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("could not create OpenRouter client")
	}

	requests, err := loadRequests(*requestsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *requestsPath).Msg("could not load requests")
	}
	log.Info().Int("requests", len(requests)).Msg("requests loaded")

	reranker := rerank.NewReranker(client)
	if settings.WindowSize > 0 {
		reranker.WindowSize = settings.WindowSize
	}
	if settings.StepSize > 0 {
		reranker.StepSize = settings.StepSize
	}
	reranker.PopulateInvocations = *withHistory || settings.HistoryFilePath != ""

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	results, err := reranker.RerankBatch(ctx, requests)
	if err != nil {
		log.Fatal().Err(err).Msg("reranking failed")
	}

	if settings.HistoryFilePath != "" {
		var invocations []data.InferenceInvocation
		for _, result := range results {
			invocations = append(invocations, result.InvocationsHistory...)
		}
		if err := storage.AppendInvocationHistory(settings.HistoryFilePath, invocations); err != nil {
			log.Error().Err(err).Msg("could not persist invocation history")
		}
	}

	if err := writeResults(*outputPath, results); err != nil {
		log.Fatal().Err(err).Msg("could not write results")
	}
}

func splitKeys(env string) []string {
	var keys []string
	for _, key := range strings.Split(env, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

func loadRequests(filePath string) ([]data.Request, error) {
	byteVal, err := storage.ReadFromFile(filePath)
	if err != nil {
		return nil, err
	}

	var requests []data.Request
	if err := json.Unmarshal(byteVal, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func writeResults(filePath string, results []data.Result) error {
	byteVal, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}

	if filePath == "" {
		_, err = os.Stdout.Write(append(byteVal, '\n'))
		return err
	}
	return storage.WriteToFile(filePath, byteVal)
}
