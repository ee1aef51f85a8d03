package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/alexandria/internal/bookdb"
	"github.com/lepinkainen/alexandria/internal/config"
	"github.com/lepinkainen/alexandria/internal/covers"
	"github.com/lepinkainen/alexandria/internal/enrichment/book"
	"github.com/lepinkainen/alexandria/internal/enrichment/book/sources"
	"github.com/lepinkainen/alexandria/internal/pipeline"
	"github.com/lepinkainen/alexandria/internal/server"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"
)

// CLI represents the complete command structure for the alexandria application
type CLI struct {
	// Global flags
	DataDir string `help:"Directory for pipeline artifacts (CSV files, covers)" default:"./data"`
	DBFile  string `help:"Path to SQLite catalog database file" default:"./data/books.db"`

	Setup SetupCmd `cmd:"" help:"Run the enrichment pipeline over a library CSV export"`
	Sync  SyncCmd  `cmd:"" help:"Resolve and merge a single book into the catalog"`
	Serve ServeCmd `cmd:"" help:"Serve the catalog over HTTP"`
	Stats StatsCmd `cmd:"" help:"Print catalog statistics"`
	Cover CoverCmd `cmd:"" help:"Download cover art for a book"`
}

// SetupCmd represents the pipeline command and its stage selection
type SetupCmd struct {
	Stage string `help:"Pipeline stage to run" enum:"all,ingest,transform,store" default:"all"`
	Input string `short:"f" help:"Path to the raw library CSV export (defaults to <datadir>/books_data.csv)"`
	Limit int    `help:"Only process the first N rows (0 = all)"`
}

// SyncCmd represents the single-book sync command
type SyncCmd struct {
	ISBN      string `arg:"" help:"ISBN of the book to sync"`
	Title     string `help:"Title hint, wins over resolved metadata"`
	Author    string `help:"Author hint, wins over resolved metadata"`
	Year      string `help:"Publication year hint"`
	Edition   string `help:"Edition or volume hint"`
	Publisher string `help:"Publisher hint"`
}

// ServeCmd represents the HTTP server command
type ServeCmd struct {
	Addr string `help:"Address to listen on" default:":8000"`
}

// StatsCmd represents the stats command
type StatsCmd struct{}

// CoverCmd represents the cover download command
type CoverCmd struct {
	ISBN   string `arg:"" help:"ISBN of the book to fetch a cover for"`
	Output string `short:"o" help:"Directory to save covers into (defaults to <datadir>/covers)"`
}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging()
	initConfig()

	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("alexandria"),
		kong.Description("A tool to enrich library CSV exports into a searchable book catalog."),
		kong.UsageOnError(),
	)

	updateGlobalConfig(&cli)

	err := ctx.Run()
	if err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetDefault("DataDir", "./data")
	viper.SetDefault("DBFile", "./data/books.db")

	// Enable environment variable support
	viper.AutomaticEnv()
	if err := viper.BindEnv("GoogleBooksAPIKey", "GOOGLE_BOOKS_API_KEY"); err != nil {
		slog.Error("Failed to bind environment variable", "error", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("Fatal error config file", "error", err)
			os.Exit(1)
		}
	}

	// Initialize global config
	config.InitConfig()
}

func updateGlobalConfig(cli *CLI) {
	config.SetDataDir(cli.DataDir)
	config.SetDBFile(cli.DBFile)
}

func initLogging() {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("ALEXANDRIA_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	handler := humanlog.NewHandler(os.Stdout, &humanlog.Options{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func newResolver() *book.Resolver {
	client := &http.Client{Timeout: 10 * time.Second}
	return book.NewResolver(sources.Waterfall(client))
}

func openDB() (*bookdb.DB, error) {
	if dir := filepath.Dir(config.DBFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	return bookdb.Open(config.DBFile)
}

func pipelinePaths(input string) pipeline.Paths {
	if input == "" {
		input = filepath.Join(config.DataDir, "books_data.csv")
	}
	return pipeline.Paths{
		Raw:      input,
		Enriched: filepath.Join(config.DataDir, "books_enriched.csv"),
		Cleaned:  filepath.Join(config.DataDir, "books_cleaned.csv"),
	}
}

// Run methods for each command

func (s *SetupCmd) Run() error {
	paths := pipelinePaths(s.Input)
	ctx := context.Background()

	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	switch s.Stage {
	case "ingest":
		_, err := pipeline.Ingest(ctx, newResolver(), paths.Raw, paths.Enriched, s.Limit)
		return err
	case "transform":
		_, err := pipeline.Transform(paths.Enriched, paths.Cleaned)
		return err
	case "store":
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		_, err = pipeline.Store(db, paths.Cleaned)
		return err
	default:
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		return pipeline.RunAll(ctx, newResolver(), db, paths, s.Limit)
	}
}

func (s *SyncCmd) Run() error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	srv := server.New(db, newResolver(), nil)
	return srv.SyncOne(context.Background(), server.SyncInput{
		ISBN:      s.ISBN,
		Title:     s.Title,
		Author:    s.Author,
		Year:      s.Year,
		Edition:   s.Edition,
		Publisher: s.Publisher,
	})
}

func (s *ServeCmd) Run() error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	coverDir := filepath.Join(config.DataDir, "covers")
	srv := server.New(db, newResolver(), covers.NewFetcher(&http.Client{Timeout: 15 * time.Second}, coverDir))

	slog.Info("Listening", "addr", s.Addr)
	return http.ListenAndServe(s.Addr, srv.Handler())
}

func (s *StatsCmd) Run() error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("Books:                %d\n", stats.Books)
	fmt.Printf("With description:     %d\n", stats.WithDescription)
	fmt.Printf("Distinct publishers:  %d\n", stats.Publishers)
	if stats.YearMin != 0 {
		fmt.Printf("Publication years:    %d-%d\n", stats.YearMin, stats.YearMax)
	}
	fmt.Printf("Avg description len:  %d\n", stats.AvgDescriptionLen)
	if len(stats.TopAuthors) > 0 {
		fmt.Println("Top authors:")
		for _, ac := range stats.TopAuthors {
			fmt.Printf("  %3d  %s\n", ac.Count, ac.Author)
		}
	}
	return nil
}

func (c *CoverCmd) Run() error {
	out := c.Output
	if out == "" {
		out = filepath.Join(config.DataDir, "covers")
	}

	fetcher := covers.NewFetcher(&http.Client{Timeout: 15 * time.Second}, out)
	path, err := fetcher.Download(context.Background(), c.ISBN)
	if err != nil {
		return err
	}
	slog.Info("Cover saved", "path", path)
	return nil
}
