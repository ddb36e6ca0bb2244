// Command score runs the fraud scoring pipeline on a single transaction
// without starting the HTTP server. Useful for smoke-testing an artifact
// bundle or replaying a suspect transaction.
//
// Usage:
//
//	go run ./cmd/score -artifacts ./artifacts < transaction.json
//	go run ./cmd/score -artifacts ./artifacts -f transaction.json
//
// The input is either a bare transaction object or a request envelope
// with "transaction" and optional "customer_history" keys.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sentra-io/sentra/internal/artifact"
	"github.com/sentra-io/sentra/internal/decision"
	"github.com/sentra-io/sentra/internal/fraud"
	"github.com/sentra-io/sentra/internal/logging"
	"github.com/sentra-io/sentra/internal/pipeline"
)

type input struct {
	Transaction     *fraud.Transaction     `json:"transaction"`
	CustomerHistory *fraud.CustomerHistory `json:"customer_history"`
}

func main() {
	artifactDir := flag.String("artifacts", "artifacts", "directory with the exported model bundle")
	file := flag.String("f", "", "read the transaction from this file instead of stdin")
	pretty := flag.Bool("pretty", true, "indent the JSON output")
	flag.Parse()

	logger := logging.New("warn", "text")

	data, err := readInput(*file)
	if err != nil {
		logger.Error("failed to read input", "error", err)
		os.Exit(1)
	}

	tx, hist, err := parseInput(data)
	if err != nil {
		logger.Error("failed to parse input", "error", err)
		os.Exit(1)
	}

	svc := pipeline.New(artifact.NewLazy(*artifactDir), decision.NewMemoryStore())

	ctx := logging.WithLogger(context.Background(), logger)
	result, err := svc.Score(ctx, tx, hist)
	if err != nil {
		logger.Error("scoring failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(result); err != nil {
		logger.Error("failed to encode result", "error", err)
		os.Exit(1)
	}

	// Non-zero exit for blocks so shell pipelines can branch on it
	if result.Decision.Action == fraud.ActionBlock {
		os.Exit(2)
	}
}

func readInput(file string) ([]byte, error) {
	if file != "" {
		return os.ReadFile(file)
	}
	return io.ReadAll(os.Stdin)
}

func parseInput(data []byte) (*fraud.Transaction, *fraud.CustomerHistory, error) {
	var in input
	if err := json.Unmarshal(data, &in); err == nil && in.Transaction != nil {
		return in.Transaction, in.CustomerHistory, nil
	}

	var tx fraud.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, nil, fmt.Errorf("input is neither a request envelope nor a transaction: %w", err)
	}
	return &tx, nil, nil
}
