package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/slidedeckflow/internal/config"
	"github.com/Lllllllleong/slidedeckflow/internal/deck"
	"github.com/Lllllllleong/slidedeckflow/internal/logging"
	"github.com/Lllllllleong/slidedeckflow/internal/models"
)

var (
	generator *deck.Generator
	once      sync.Once
	initErr   error
)

func init() {
	functions.HTTP("HandleGenerateDeck", handleGenerateDeck)
}

// main is required by the Go Functions Framework.
func main() {}

func setup(ctx context.Context) (*deck.Generator, error) {
	cfg, err := config.Load(os.Getenv("DECK_CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logging.Init(level, "json", os.Stdout)
	return deck.New(ctx, cfg, deck.Options{Storage: true})
}

func handleGenerateDeck(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		generator, initErr = setup(context.Background())
	})
	if initErr != nil {
		slog.Error("CRITICAL: Deck generator initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.DeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := generator.Process(r.Context(), req)
	status := http.StatusOK
	if err != nil {
		var runErr *deck.RunError
		switch {
		case errors.Is(err, deck.ErrInvalidRequest):
			status = http.StatusBadRequest
		case errors.As(err, &runErr):
			status = http.StatusUnprocessableEntity
		default:
			status = http.StatusInternalServerError
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
