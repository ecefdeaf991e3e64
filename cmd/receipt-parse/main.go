package main

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-reader/internal/dates"
	"github.com/zombor/receipt-reader/internal/parsing"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("receipt-parse")
	var (
		dateOrder     = fs.StringLong("date-order", "MDY", "How to read ambiguous dates like 03/04/2024: 'MDY' or 'DMY'")
		confidence    = fs.StringLong("confidence", "", "OCR engine confidence, 0-100 (optional)")
		dateHint      = fs.StringLong("date-hint", "", "Date already read by the OCR engine, YYYY-MM-DD (optional)")
		minConfidence = fs.IntLong("min-confidence", 0, "Flag receipts whose OCR confidence is below this (0-100, 0 disables)")
		debug         = fs.BoolLong("debug", "Log every parsing decision to stderr")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("RECEIPT_READER")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	order, err := dates.ParseOrder(*dateOrder)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var engineConfidence float64
	if *confidence != "" {
		engineConfidence, err = strconv.ParseFloat(*confidence, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid confidence %q\n", *confidence)
			os.Exit(1)
		}
	}

	text, err := readTranscript(fs.GetArgs())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	engine := parsing.NewEngine(parsing.Options{
		DateOrder:     order,
		MinConfidence: float64(*minConfidence),
		Recorder:      parsing.NewSlogRecorder(slog.Default()),
	})

	parsed, err := engine.Process(parsing.Input{
		Text:             text,
		EngineConfidence: engineConfidence,
		DateHint:         *dateHint,
	})
	if errors.Is(err, parsing.ErrEmptyInput) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(parsed); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// readTranscript reads the named file, or stdin when no file or "-" is given
func readTranscript(args []string) (string, error) {
	if len(args) > 1 {
		return "", fmt.Errorf("expected at most one file, got %d", len(args))
	}
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading transcript: %w", err)
	}
	return string(data), nil
}
