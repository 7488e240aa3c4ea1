package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/filab/fi-dashboard/internal/config"
	"github.com/filab/fi-dashboard/internal/domain/chart"
	"github.com/filab/fi-dashboard/internal/domain/patient"
	"github.com/filab/fi-dashboard/internal/domain/selection"
	"github.com/filab/fi-dashboard/internal/platform/auth"
	"github.com/filab/fi-dashboard/internal/platform/db"
	"github.com/filab/fi-dashboard/internal/platform/middleware"
	"github.com/filab/fi-dashboard/internal/web"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fi-dashboard",
		Short: "FI-Lab patient timeline dashboard",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		RunE:  runServer,
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load the configured patient source and report data issues",
		RunE:  runValidate,
	}
	validateCmd.Flags().Bool("strict", false, "exit non-zero when any record needed repair")

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Copy a patient JSON file into PostgreSQL",
		RunE:  runImport,
	}
	importCmd.Flags().String("file", "", "fixture to import (defaults to DATA_PATH)")

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Render one patient's timeline to a .png, .xlsx or .json file",
		RunE:  runRender,
	}
	renderCmd.Flags().String("hcn", "", "health card number of the patient")
	renderCmd.Flags().String("out", "", "output file; the extension picks the format")
	renderCmd.MarkFlagRequired("hcn")
	renderCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(serveCmd, validateCmd, importCmd, renderCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// openSource builds the configured patient source. The returned pool is nil
// unless the source is PostgreSQL; the caller closes it.
func openSource(ctx context.Context, cfg *config.Config) (patient.Source, *pgxpool.Pool, error) {
	switch cfg.DataSource {
	case config.SourceFile:
		return patient.NewFileSource(cfg.DataPath), nil, nil
	case config.SourceS3:
		client, err := patient.NewS3Client(ctx, cfg.S3Endpoint)
		if err != nil {
			return nil, nil, fmt.Errorf("s3 client: %w", err)
		}
		return patient.NewS3Source(client, cfg.S3Bucket, cfg.S3Key), nil, nil
	case config.SourcePostgres:
		pool, err := db.NewPool(ctx, db.PoolConfig{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		return patient.NewPGSource(pool), pool, nil
	}
	return nil, nil, fmt.Errorf("unknown data source %q", cfg.DataSource)
}

func loadSnapshot(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*patient.Snapshot, *pgxpool.Pool, error) {
	src, pool, err := openSource(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	snap, err := patient.LoadSnapshot(ctx, src, logger)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, nil, err
	}
	return snap, pool, nil
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	loadCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	snap, pool, err := loadSnapshot(loadCtx, cfg, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	// A nil *pgxpool.Pool inside the interface would not compare equal to nil.
	var probe db.Probe
	if pool != nil {
		probe = pool
	}

	e, err := newServer(cfg, snap, probe, logger)
	if err != nil {
		return err
	}

	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Int("patients", snap.Len()).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return e.Shutdown(ctx)
}

// newServer wires every route onto a fresh echo instance. probe may be nil
// when the patients were not loaded from PostgreSQL.
func newServer(cfg *config.Config, snap *patient.Snapshot, probe db.Probe, logger zerolog.Logger) (*echo.Echo, error) {
	opts, err := cfg.ChartOptions()
	if err != nil {
		return nil, err
	}
	sessions, err := auth.NewSessions(auth.SessionConfig{
		SigningKey: []byte(cfg.SessionSigningKey),
		TTL:        cfg.SessionTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("sessions: %w", err)
	}
	if cfg.SessionSigningKey == "" {
		logger.Warn().Msg("SESSION_SIGNING_KEY not set; sessions will not survive a restart")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	if len(cfg.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, middleware.RequestIDHeader},
		}))
	}

	page, err := web.NewHandler(web.Page{Env: cfg.Env})
	if err != nil {
		return nil, fmt.Errorf("web: %w", err)
	}
	page.RegisterRoutes(e)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":   "ok",
			"patients": snap.Len(),
		})
	})
	e.GET("/health/db", db.HealthHandler(probe))

	rl := middleware.DefaultRateLimitConfig()
	rl.RequestsPerSecond = cfg.RateLimitRPS
	rl.BurstSize = cfg.RateLimitBurst
	rl.Skipper = unlockAttempt

	apiV1 := e.Group("/api/v1")
	apiV1.Use(auth.RequireSession(sessions, auth.AuthSkipper))
	apiV1.Use(middleware.RateLimit(rl))
	apiV1.Use(middleware.Audit(logger))

	patients := patient.NewService(snap)
	auth.NewSessionHandler(auth.NewGate(cfg.AccessSecret), sessions, logger).RegisterRoutes(apiV1)
	patient.NewHandler(patients).RegisterRoutes(apiV1)
	chart.NewHandler(chart.NewService(patients, opts)).RegisterRoutes(apiV1)
	selection.NewHandler(patients, opts).RegisterRoutes(apiV1)

	return e, nil
}

// unlockAttempt exempts the password form from rate limiting.
func unlockAttempt(c echo.Context) bool {
	return c.Request().Method == http.MethodPost && c.Path() == auth.SessionPath
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateSource(); err != nil {
		return err
	}
	strict, _ := cmd.Flags().GetBool("strict")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	src, pool, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}
	records, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("load %s source: %w", src.Name(), err)
	}
	snap, issues, err := patient.NewSnapshot(records)
	if err != nil {
		return err
	}
	return reportIssues(cmd.OutOrStdout(), src.Name(), snap.Len(), issues, strict)
}

func reportIssues(w io.Writer, source string, patients int, issues []patient.Issue, strict bool) error {
	for _, is := range issues {
		fmt.Fprintf(w, "  %s\n", is)
	}
	fmt.Fprintf(w, "%s: %d patients, %d issues\n", source, patients, len(issues))
	if strict && len(issues) > 0 {
		return fmt.Errorf("%d records needed repair", len(issues))
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for import")
	}
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		path = cfg.DataPath
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	records, err := patient.NewFileSource(path).Load(ctx)
	if err != nil {
		return err
	}
	// Import what serve would see, so repairs happen once.
	snap, issues, err := patient.NewSnapshot(records)
	if err != nil {
		return err
	}
	all, _ := snap.All(ctx)

	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	n, err := patient.Import(ctx, pool, all)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d patients from %s (%d issues repaired)\n", n, path, len(issues))
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateSource(); err != nil {
		return err
	}
	opts, err := cfg.ChartOptions()
	if err != nil {
		return err
	}
	hcn, _ := cmd.Flags().GetString("hcn")
	out, _ := cmd.Flags().GetString("out")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	snap, pool, err := loadSnapshot(ctx, cfg, zerolog.Nop())
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}
	rec, err := snap.GetByHCN(ctx, hcn)
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := renderTo(f, filepath.Ext(out), rec, opts); err != nil {
		f.Close()
		os.Remove(out)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
	return nil
}

// renderTo writes rec in the format named by ext.
func renderTo(w io.Writer, ext string, rec *patient.Record, opts chart.Options) error {
	switch strings.ToLower(ext) {
	case ".png":
		return chart.RenderPNG(w, rec, opts)
	case ".xlsx":
		b, err := chart.ExportXLSX(rec, opts)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case ".json":
		spec := chart.Derive(rec, opts)
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(spec)
	}
	return fmt.Errorf("unsupported output format %q; use .png, .xlsx or .json", ext)
}
