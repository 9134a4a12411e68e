// Command invoke runs the caption handler once against an S3 event file,
// outside of Lambda, using the local AWS credentials.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"

	"image-captioner/internal/app"
	"image-captioner/internal/config"
)

func main() {
	var eventPath, envPath string
	flag.StringVar(&eventPath, "event", "", "path to an S3 event JSON file")
	flag.StringVar(&envPath, "env", "", "path to load env from")
	flag.Parse()

	if eventPath == "" {
		slog.Error("missing required flag", "flag", "-event")
		os.Exit(2)
	}
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			slog.Error("failed to load env file", "path", envPath, "err", err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	log, err := app.NewLogger(cfg, os.Stderr)
	if err != nil {
		slog.Error("failed to create logger", "err", err)
		os.Exit(1)
	}

	event, err := readEvent(eventPath)
	if err != nil {
		log.Error("failed to read event", "path", eventPath, "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}
	h, err := app.NewHandler(cfg, app.NewAPIs(awsCfg, cfg), log)
	if err != nil {
		log.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	resp, err := h.Handle(ctx, event)
	if err != nil {
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		log.Error("failed to write response", "err", err)
		os.Exit(1)
	}
}

func readEvent(path string) (events.S3Event, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return events.S3Event{}, err
	}
	var event events.S3Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return events.S3Event{}, err
	}
	return event, nil
}
