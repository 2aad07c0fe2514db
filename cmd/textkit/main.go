package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"textkit/internal/cache"
	"textkit/internal/classify"
	"textkit/internal/config"
	"textkit/internal/extract"
	"textkit/internal/llm"
	"textkit/internal/logging"
	"textkit/internal/server"
	"textkit/internal/stats"
)

// ANSI escape codes
const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorCyan  = "\033[36m"

	iconCheck = "✓"
	iconCross = "✗"
	iconArrow = "→"
)

func printSuccess(message string) {
	fmt.Printf("%s%s%s %s\n", colorGreen, iconCheck, colorReset, message)
}

func printError(message string) {
	fmt.Fprintf(os.Stderr, "%s%s%s %s\n", colorRed, iconCross, colorReset, message)
}

func printInfo(message string) {
	fmt.Printf("%s%s%s %s\n", colorCyan, iconArrow, colorReset, message)
}

func printUsage() {
	fmt.Printf("%stextkit%s %s - disposable text tools\n\n", colorBold, colorReset, server.Version)
	fmt.Println("Usage: textkit <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve     Start the web UI and HTTP API")
	fmt.Println("  convert   Classify text from stdin or a file into JSON")
	fmt.Println("  extract   Run lead extraction over a spreadsheet")
	fmt.Println("  version   Print the version")
	fmt.Println()
	fmt.Println("Run 'textkit <command> -h' for command options.")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		handleServe(os.Args[2:])
	case "convert":
		handleConvert(os.Args[2:])
	case "extract":
		handleExtract(os.Args[2:])
	case "version":
		fmt.Printf("textkit %s\n", server.Version)
	case "help", "-h", "--help":
		printUsage()
	default:
		printError(fmt.Sprintf("Unknown command: %s", os.Args[1]))
		printUsage()
		os.Exit(1)
	}
}

func loadConfig(path string) *config.Config {
	cfg, err := config.LoadWithPriority(path)
	if err != nil {
		printError(fmt.Sprintf("Failed to load configuration: %v", err))
		os.Exit(1)
	}
	logging.Default().
		SetLevel(logging.ParseLevel(cfg.LogLevel)).
		SetJSON(cfg.LogJSON)
	return cfg
}

func handleServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a YAML or JSON config file")
	fs.Parse(args)

	cfg := loadConfig(*configPath)

	srv, err := server.New(cfg)
	if err != nil {
		printError(fmt.Sprintf("Failed to start: %v", err))
		os.Exit(1)
	}

	printInfo(fmt.Sprintf("Serving on http://%s:%d", cfg.ServerHost, cfg.ServerPort))
	if err := srv.Start(); err != nil {
		printError(err.Error())
		os.Exit(1)
	}
}

// handleConvert classifies text into the JSON shape and prints it.
func handleConvert(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a YAML or JSON config file")
	inPath := fs.String("in", "", "input file (defaults to stdin)")
	keepOther := fs.Bool("keep-other", false, "include unmatched lines under \"other\"")
	fs.Parse(args)

	cfg := loadConfig(*configPath)

	var text []byte
	var err error
	if *inPath != "" {
		text, err = os.ReadFile(*inPath)
	} else {
		text, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		printError(fmt.Sprintf("Failed to read input: %v", err))
		os.Exit(1)
	}

	result := classify.ClassifyWith(string(text), classify.Options{
		KeepOther: *keepOther || cfg.ConvertKeepOther,
	})

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		printError(fmt.Sprintf("Failed to encode result: %v", err))
		os.Exit(1)
	}
	fmt.Println(string(payload))
}

// handleExtract runs the lead pipeline over a local spreadsheet and
// writes the results to a JSON file.
func handleExtract(args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a YAML or JSON config file")
	inPath := fs.String("in", "", "input spreadsheet (.csv or .xlsx)")
	outPath := fs.String("out", "leads.json", "output JSON file")
	fs.Parse(args)

	if *inPath == "" {
		printError("Missing required -in flag")
		fs.Usage()
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	if cfg.LLMAPIKey == "" {
		printError("No API key configured. Set TEXTKIT_LLM_API_KEY or OPENROUTER_API_KEY.")
		os.Exit(1)
	}

	f, err := os.Open(*inPath)
	if err != nil {
		printError(fmt.Sprintf("Failed to open input: %v", err))
		os.Exit(1)
	}
	defer f.Close()

	rows, err := extract.ReadRows(*inPath, f)
	if err != nil {
		printError(fmt.Sprintf("Failed to read spreadsheet: %v", err))
		os.Exit(1)
	}
	if len(rows) == 0 {
		printError("Spreadsheet has no data rows")
		os.Exit(1)
	}
	printInfo(fmt.Sprintf("Extracting %d rows with %s", len(rows), cfg.LLMModel))

	client := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel,
		time.Duration(cfg.LLMTimeout)*time.Second)
	respCache := cache.New(cfg.CacheMaxEntries, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	tracker := stats.NewTracker()
	processor := extract.NewProcessor(client, cfg.LLMModel, cfg.ExtractConcurrency, respCache, tracker)

	start := time.Now()
	leads := processor.Process(context.Background(), rows)

	failed := 0
	for i, lead := range leads {
		if lead.Error != "" {
			failed++
			printError(fmt.Sprintf("Row %d: %s", i+1, lead.Error))
			continue
		}
		fmt.Printf("  %-20s %-20s %s\n", lead.ClientName, lead.CompanyName,
			extract.StatusLabel(lead.SentimentScore))
	}

	payload, err := json.MarshalIndent(leads, "", "  ")
	if err != nil {
		printError(fmt.Sprintf("Failed to encode leads: %v", err))
		os.Exit(1)
	}
	if err := os.WriteFile(*outPath, append(payload, '\n'), 0644); err != nil {
		printError(fmt.Sprintf("Failed to write %s: %v", *outPath, err))
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Wrote %d leads (%d failed) to %s in %s",
		len(leads), failed, *outPath, time.Since(start).Round(time.Millisecond)))
}
