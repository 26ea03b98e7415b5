// Package main is the notes CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/globalfish/notes/internal/cli"
	"github.com/globalfish/notes/internal/config"
	"github.com/globalfish/notes/internal/embedding"
	"github.com/globalfish/notes/internal/indexer"
	"github.com/globalfish/notes/internal/models"
	"github.com/globalfish/notes/internal/notes"
	"github.com/globalfish/notes/internal/rag"
	"github.com/globalfish/notes/internal/server"
	"github.com/globalfish/notes/internal/storage"
	"github.com/globalfish/notes/internal/vector"
	"github.com/globalfish/notes/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "~/.notes/settings.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for settings.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "settings.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "index":
		runIndex()
	case "parse":
		runParse()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("notes version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "settings file path")
	notesDir := fs.String("notes-dir", "", "notes directory (overrides settings and environment)")
	port := fs.Int("port", 0, "listen port (overrides settings and environment)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	// Explicit flags win over environment and settings file.
	if *notesDir != "" {
		cfg.Notes.Dir = *notesDir
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	debugMode := cfg.Debug || *debug

	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("notes_dir", cfg.Notes.Dir),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(
		components.Pipeline,
		components.Indexer,
		components.Storage,
		components.Store,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if cfg.Storage.VectorStorePath != "" && components.Store != nil {
		if err := components.Store.Save(cfg.Storage.VectorStorePath); err != nil {
			logger.Warn("vector store save failed",
				zap.String("path", cfg.Storage.VectorStorePath), zap.Error(err))
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "settings file path")
	notesDir := fs.String("notes-dir", "", "notes directory (overrides settings and environment)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *notesDir != "" {
		cfg.Notes.Dir = *notesDir
	}

	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	result, err := components.Indexer.Scan(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Indexing failed: %v\n", err)
		os.Exit(1)
	}
	if cfg.Storage.VectorStorePath != "" {
		if err := components.Store.Save(cfg.Storage.VectorStorePath); err != nil {
			logger.Warn("vector store save failed", zap.Error(err))
		}
	}
	fmt.Println(result.Message())
}

func runParse() {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var src notes.Source
	if fs.NArg() < 1 || fs.Arg(0) == "-" {
		// No file argument: read from stdin.
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read stdin: %v\n", err)
			os.Exit(1)
		}
		src = notes.Source{Path: "stdin.md", Raw: string(raw)}
	} else {
		path := fs.Arg(0)
		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to stat file: %v\n", err)
			os.Exit(1)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read file: %v\n", err)
			os.Exit(1)
		}
		src = notes.Source{Path: path, ModTime: info.ModTime(), Raw: string(raw)}
	}

	records := notes.NewParser().Parse(src)
	recs := make([]*models.MeetingRecord, len(records))
	for i := range records {
		recs[i] = &records[i]
	}

	if err := cli.WriteRecords(os.Stdout, recs, outputFormatFromFlag(*outputFormat)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// buildQuestion joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// askArgsReorder moves any flags (and their values) that appear after the
// question to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func askArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func outputFormatFromFlag(name string) cli.OutputFormat {
	if name == "json" {
		return cli.OutputJSON
	}
	return cli.OutputText
}

func runAsk() {
	askArgs := askArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "settings file path")
	serverURL := fs.String("server", "http://localhost:8765", "server URL (empty = answer locally without the server)")
	attendee := fs.String("attendee", "", "only use notes with this attendee")
	date := fs.String("date", "", "only use notes from this date (YYYY-MM-DD)")
	topic := fs.String("topic", "", "only use notes whose title matches")
	topK := fs.Int("top-k", 4, "number of chunks to retrieve")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(askArgs)

	if fs.NArg() < 1 {
		fmt.Println("Usage: notes ask [flags] <question>")
		os.Exit(1)
	}
	question := buildQuestion(fs.Args())
	if question == "" {
		fmt.Println("Usage: notes ask [flags] <question>")
		os.Exit(1)
	}

	req := &models.AskRequest{
		Question: question,
		TopK:     *topK,
	}
	if *attendee != "" || *date != "" || *topic != "" {
		req.Filters = &models.RecordFilter{Attendee: *attendee, Date: *date, Topic: *topic}
	}

	var resp *models.AskResponse
	var err error
	if *serverURL != "" {
		resp, err = askViaHTTP(*serverURL, req)
	} else {
		resp, err = askLocally(*configPath, req)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAskResponse(os.Stdout, resp, outputFormatFromFlag(*outputFormat)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func askViaHTTP(serverURL string, req *models.AskRequest) (*models.AskResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.AskResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func askLocally(configPath string, req *models.AskRequest) (*models.AskResponse, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer components.Close()

	return components.Pipeline.Ask(context.Background(), req)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "settings file path")
	serverURL := fs.String("server", "http://localhost:8765", "server URL (empty = read local storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status map[string]interface{}
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		ctx := context.Background()
		recordCount, err := components.Storage.CountRecords(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count records failed: %v\n", err)
			os.Exit(1)
		}
		chunkCount, err := components.Storage.CountChunks(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count chunks failed: %v\n", err)
			os.Exit(1)
		}
		status = map[string]interface{}{
			"records":        recordCount,
			"chunks":         chunkCount,
			"vector_entries": components.Store.Count(),
			"config": map[string]interface{}{
				"notes_dir":     cfg.Notes.Dir,
				"database_path": cfg.Storage.DatabasePath,
				"chunk_size":    cfg.Index.ChunkSize,
				"chunk_overlap": cfg.Index.ChunkOverlap,
			},
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	default:
		for _, key := range []string{"records", "chunks", "vector_entries"} {
			if v, ok := status[key]; ok {
				fmt.Printf("%-16s %v\n", key+":", v)
			}
		}
		if cfgInfo, ok := status["config"].(map[string]interface{}); ok {
			fmt.Println()
			fmt.Println("# configuration")
			for _, key := range []string{"notes_dir", "database_path", "chunk_size", "chunk_overlap", "collection", "chat_model"} {
				if v, ok := cfgInfo[key]; ok {
					fmt.Printf("%-16s %v\n", key+":", v)
				}
			}
		}
	}
}

func statusViaHTTP(serverURL string) (map[string]interface{}, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return s, nil
}

// Components holds initialized services.
type Components struct {
	Storage  storage.Storage
	Embedder embedding.Embedder
	Store    *vector.MemoryStore
	Indexer  *indexer.Indexer
	Pipeline *rag.Pipeline
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedder := embedding.NewCachedEmbedder(embedding.NewMockEmbedder(cfg.Embedding.Dimensions), 1024)

	vecStore, err := vector.NewMemoryStore(cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	if cfg.Storage.VectorStorePath != "" {
		if loadErr := vecStore.Load(cfg.Storage.VectorStorePath); loadErr != nil {
			logger.Warn("vector store load skipped (run full index)",
				zap.String("path", cfg.Storage.VectorStorePath), zap.Error(loadErr))
		}
	}

	idxOpts := []indexer.IndexerOption{}
	if debug {
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
	}
	idx := indexer.NewIndexer(store, notes.NewParser(), embedder, vecStore, cfg, idxOpts...)

	// No chat model ships with the CLI; ask reports degraded mode until an
	// external driver is wired in.
	pipeline := rag.NewPipeline(embedder, vecStore, nil, rag.WithLogger(logger))

	return &Components{
		Storage:  store,
		Embedder: embedder,
		Store:    vecStore,
		Indexer:  idx,
		Pipeline: pipeline,
	}, nil
}

func printUsage() {
	fmt.Println(`notes - personal meeting notes indexer and assistant

Usage:
  notes server [flags]            Start the HTTP API server
  notes index [flags]             Scan the notes directory for new or modified notes
  notes parse [flags] [file.md]   Parse a meeting note (or stdin) and print its records
  notes ask [flags] <question>    Ask a question over indexed notes
  notes status [flags]            Show storage and index status
  notes version                   Show version
  notes help                      Show this help

Server Flags:
  --config string     Settings file path (default: ~/.notes/settings.yaml)
  --notes-dir string  Notes directory (overrides settings and environment)
  --port int          Listen port (overrides settings and environment)
  --debug             Enable debug logging

Index Flags:
  --config string     Settings file path
  --notes-dir string  Notes directory (overrides settings and environment)

Parse Flags:
  --output string     Output format: text or json (default: text)

Ask Flags:
  --server string     Server URL (default: http://localhost:8765). Use --server "" to answer locally.
  --attendee string   Only use notes with this attendee
  --date string       Only use notes from this date (YYYY-MM-DD)
  --topic string      Only use notes whose title matches
  --top-k int         Number of chunks to retrieve (default: 4)
  --output string     Output format: text or json (default: text)

Status Flags:
  --server string     Server URL (default: http://localhost:8765). Use --server "" for local storage.
  --output string     Output format: text or json (default: text)

Examples:
  notes server
  notes index --notes-dir ~/meeting_notes
  notes parse meeting_2025-06-10_planning.md
  notes ask "what did we decide about the rollout?"
  notes ask --attendee alice --date 2025-06-10 "action items?"
  notes status --output json`)
}
