package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/expensescan/expensescan/internal/api"
	"github.com/expensescan/expensescan/internal/currency"
	"github.com/expensescan/expensescan/internal/expense"
	"github.com/expensescan/expensescan/internal/insights"
	"github.com/expensescan/expensescan/internal/scanning"
	"github.com/expensescan/expensescan/internal/secrets"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("expensescan")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "expensescan.db", "Database file path")
		mediaPath   = fs.StringLong("media", "./media", "Media storage directory path")
		scannerType = fs.StringLong("scanner", "gemini", "Scanner type: 'gemini' or 'ollama'")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set EXPENSESCAN_GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, bakllava, qwen2-vl)")
		localeCode  = fs.StringLong("locale-currency", "USD", "Currency assumed for the local locale")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("EXPENSESCAN"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := expense.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize model caller based on scanner type
	var caller scanning.ModelCaller
	switch *scannerType {
	case "gemini":
		// A flag-supplied key takes precedence over the environment store.
		var store secrets.Store = secrets.NewEnvStore("EXPENSESCAN")
		if *geminiKey != "" {
			store = secrets.Static{secrets.GeminiAPIKey: *geminiKey}
		}
		apiKey, ok := store.Get(secrets.GeminiAPIKey)
		if !ok {
			slog.Error("Gemini API key is required. Set --gemini-key flag or EXPENSESCAN_GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini scanner...", "model", *geminiModel)
		caller, err = scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", *ollamaURL, "model", *ollamaModel)
		caller, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "gemini or ollama")
		os.Exit(1)
	}
	defer caller.Close()

	// Initialize media storage
	slog.Info("Initializing media storage...")
	media, err := expense.NewLocalMediaStore(*mediaPath)
	if err != nil {
		slog.Error("Failed to initialize media storage", "error", err)
		os.Exit(1)
	}

	// Initialize expense pipeline
	resolver := currency.NewResolver(*localeCode)
	extractor := scanning.NewExtractor(caller)
	expenseService := expense.NewService(db, extractor, media, resolver)

	// Initialize insights
	cache, err := insights.NewBoltCache(db.Handle())
	if err != nil {
		slog.Error("Failed to initialize insights cache", "error", err)
		os.Exit(1)
	}
	analyzer := insights.NewAnalyzer(caller)
	scheduler := insights.NewScheduler(db, analyzer, cache)
	expenseService.SetChangeListener(scheduler.Notify)
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize server
	basicAuth := api.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := api.NewServer(expenseService, scheduler, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
