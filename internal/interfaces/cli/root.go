package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/turtacn/alchemist/internal/config"
	"github.com/turtacn/alchemist/internal/infrastructure/dataset"
	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/alchemist/internal/infrastructure/storage/minio"
	"github.com/turtacn/alchemist/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	EnvFile      string
	LogLevel     string
	OutputFormat string
	DataDir      string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration
}

// ObjectStoreFactory opens the dataset bucket.
type ObjectStoreFactory func(ctx context.Context, cfg *config.Config, logger logging.Logger) (minio.ObjectStore, error)

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration

	openStore ObjectStoreFactory
	dataDir   string

	once    sync.Once
	dataset *dataset.Dataset
	loadErr error
}

// Option customizes the root command. Tests use it to inject fixtures.
type Option func(*rootSettings)

type rootSettings struct {
	config    *config.Config
	dataset   *dataset.Dataset
	logger    logging.Logger
	openStore ObjectStoreFactory
}

// WithConfig skips config discovery and uses cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *rootSettings) { s.config = cfg }
}

// WithDataset skips dataset loading and uses ds.
func WithDataset(ds *dataset.Dataset) Option {
	return func(s *rootSettings) { s.dataset = ds }
}

// WithLogger replaces the stderr logger.
func WithLogger(l logging.Logger) Option {
	return func(s *rootSettings) { s.logger = l }
}

// WithObjectStore replaces the MinIO connection used by dataset commands.
func WithObjectStore(f ObjectStoreFactory) Option {
	return func(s *rootSettings) { s.openStore = f }
}

// NewRootCommand creates the root cobra command with all global flags and subcommands.
func NewRootCommand(options ...Option) *cobra.Command {
	opts := &RootOptions{}
	settings := &rootSettings{openStore: openMinIOStore}
	for _, o := range options {
		o(settings)
	}

	cmd := &cobra.Command{
		Use:   "alchemist",
		Short: "alchemist predicts chemical reactions from reactants or plain text",
		Long: "alchemist picks the balanced reaction with the lowest standard Gibbs free energy\n" +
			"for a set of reactants, using bundled thermodynamic and stoichiometric tables.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts, settings)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./alchemist.yaml)")
	pf.StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before the config")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json, yaml, table)")
	pf.StringVar(&opts.DataDir, "data-dir", "", "dataset directory (overrides dataset.dir)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose output")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "global operation timeout")

	cmd.AddCommand(
		NewPredictCmd(),
		NewBalanceCmd(),
		NewLookupCmd(),
		NewCandidatesCmd(),
		NewResolveCmd(),
		NewExtractCmd(),
		NewClassifyCmd(),
		NewDatasetCmd(),
		NewVersionCmd(),
	)
	return cmd
}

// persistentPreRun initializes config and logger, then stores CLIContext.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions, s *rootSettings) error {
	switch strings.ToLower(opts.OutputFormat) {
	case "text", "json", "yaml", "table":
	default:
		return errors.InvalidParam("unsupported output format").WithDetail(opts.OutputFormat)
	}

	if err := loadEnvFile(cmd, opts.EnvFile); err != nil {
		return err
	}

	cfg := s.config
	if cfg == nil {
		var err error
		if cfg, err = initConfig(opts); err != nil {
			return fmt.Errorf("config initialization failed: %w", err)
		}
	}

	logger := s.logger
	if logger == nil {
		var err error
		if logger, err = initLogger(opts); err != nil {
			return fmt.Errorf("logger initialization failed: %w", err)
		}
	}

	if opts.NoColor {
		color.NoColor = true
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		OutputFormat: strings.ToLower(opts.OutputFormat),
		Verbose:      opts.Verbose,
		NoColor:      opts.NoColor,
		Timeout:      opts.Timeout,
		openStore:    s.openStore,
		dataDir:      opts.DataDir,
	}
	if s.dataset != nil {
		cliCtx.once.Do(func() { cliCtx.dataset = s.dataset })
	}

	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
	return nil
}

// loadEnvFile loads path into the environment. A missing default .env is not
// an error; an explicitly named file must exist.
func loadEnvFile(cmd *cobra.Command, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !cmd.Flags().Changed("env-file") {
			return nil
		}
		return errors.InvalidParam("cannot read env file").WithDetail(path)
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrap(err, errors.CodeInvalidParam, "invalid env file").WithDetail(path)
	}
	return nil
}

// initConfig loads configuration with priority: flags > env > file > defaults.
func initConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.Load(opts.ConfigPath)
	}

	searchPaths := []string{"./alchemist.yaml", "./configs/config.yaml"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(homeDir, ".alchemist", "config.yaml"))
	}
	for _, p := range searchPaths {
		if _, statErr := os.Stat(p); statErr == nil {
			return config.Load(p)
		}
	}
	return config.LoadFromEnv()
}

// initLogger creates a console logger on stderr.
func initLogger(opts *RootOptions) (logging.Logger, error) {
	level := logging.LevelWarn
	switch strings.ToLower(opts.LogLevel) {
	case "debug":
		level = logging.LevelDebug
	case "info":
		level = logging.LevelInfo
	case "error":
		level = logging.LevelError
	}
	if opts.Verbose {
		level = logging.LevelDebug
	}
	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Internal("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.Internal("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Dataset loads the tables once, from the directory or the bucket named by
// the dataset config.
func (c *CLIContext) Dataset(ctx context.Context) (*dataset.Dataset, error) {
	c.once.Do(func() {
		src, err := c.source(ctx)
		if err != nil {
			c.loadErr = err
			return
		}
		start := time.Now()
		c.dataset, c.loadErr = dataset.Load(ctx, src, c.Config.Dataset.ThermoKey, c.Config.Dataset.StoichKey)
		if c.loadErr == nil {
			c.Logger.Debug("Dataset loaded",
				logging.Int("thermo_rows", c.dataset.Thermo.Len()),
				logging.Duration("elapsed", time.Since(start)))
		}
	})
	return c.dataset, c.loadErr
}

func (c *CLIContext) source(ctx context.Context) (dataset.Source, error) {
	if c.dataDir != "" {
		return dataset.NewFileSource(c.dataDir), nil
	}
	if c.Config.Dataset.Source == "minio" {
		store, err := c.ObjectStore(ctx)
		if err != nil {
			return nil, err
		}
		return dataset.NewMinIOSource(store, ""), nil
	}
	return dataset.NewFileSource(c.Config.Dataset.Dir), nil
}

// ObjectStore connects to the dataset bucket.
func (c *CLIContext) ObjectStore(ctx context.Context) (minio.ObjectStore, error) {
	if c.openStore == nil {
		return nil, errors.Unavailable("object storage is not configured")
	}
	return c.openStore(ctx, c.Config, c.Logger)
}

// commandContext applies the global timeout to the command context.
func (c *CLIContext) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), c.Timeout)
}

func openMinIOStore(_ context.Context, cfg *config.Config, logger logging.Logger) (minio.ObjectStore, error) {
	if !cfg.MinIO.Enabled {
		return nil, errors.Unavailable("minio is disabled").WithDetail("set minio.enabled in the config")
	}
	client, err := minio.NewMinIOClient(&minio.MinIOConfig{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		UseSSL:    cfg.MinIO.UseSSL,
		Region:    cfg.MinIO.Region,
		Bucket:    cfg.MinIO.Bucket,
	}, logger)
	if err != nil {
		return nil, err
	}
	return minio.NewObjectStore(client, logger), nil
}

// Execute is the main entry point for the CLI application.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}
