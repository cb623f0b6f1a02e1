package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"site-backup/internal/backup"
	"site-backup/internal/config"
	"site-backup/internal/display"
	"site-backup/internal/logging"
	"site-backup/internal/prompt"
	"site-backup/internal/site"
)

var cfgFile string

// CLI flag variables
var (
	rootDir          string
	nginxDir         string
	marker           string
	timeout          time.Duration
	compression      string
	compressionLevel int
	selectAll        bool
	verbose          bool
	quiet            bool
	noColor          bool
	logFile          string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "site-backup [destination]",
	Short: "Interactively back up web application installations on this host",
	Long: `site-backup scans a root directory for web application installations,
lets you pick which ones to back up, and writes timestamped snapshots of each
site's files, database, and nginx virtual host configuration to a backup
destination.

A directory under the root counts as a site when it contains the
configuration file marker (wp-config.php by default). Database credentials
are read from that file and handed to mysqldump; the dump and the file
archive are compressed on the destination.

Examples:
  # Interactive run with the default destination
  site-backup

  # Back up into a custom destination directory
  site-backup /mnt/backups

  # Non-interactive: back up every discovered site
  site-backup --all

  # Different installations root and zstd-compressed dumps
  site-backup --root-dir=/srv/www --compression=zstd`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBackup,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.site-backup.yaml)")

	rootCmd.Flags().StringVar(&rootDir, "root-dir", "", fmt.Sprintf("installations root directory (default %q)", config.DefaultRootDir))
	rootCmd.Flags().StringVar(&nginxDir, "nginx-dir", "", fmt.Sprintf("nginx virtual host directory (default %q)", config.DefaultNginxDir))
	rootCmd.Flags().StringVar(&marker, "marker", "", fmt.Sprintf("configuration file marker identifying a site (default %q)", config.DefaultMarker))
	rootCmd.Flags().DurationVar(&timeout, "timeout", config.DefaultTimeout, "timeout per external process invocation")
	rootCmd.Flags().StringVar(&compression, "compression", "gzip", "dump compression algorithm (none, gzip, zstd, lz4)")
	rootCmd.Flags().IntVar(&compressionLevel, "compression-level", 0, "compression level (0 = algorithm default)")
	rootCmd.Flags().BoolVarP(&selectAll, "all", "a", false, "back up every discovered site without prompting")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "disable color output")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "write logs to file in addition to stderr")

	viper.BindPFlag("root_dir", rootCmd.Flags().Lookup("root-dir"))
	viper.BindPFlag("nginx_dir", rootCmd.Flags().Lookup("nginx-dir"))
	viper.BindPFlag("marker", rootCmd.Flags().Lookup("marker"))
	viper.BindPFlag("timeout", rootCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("compression", rootCmd.Flags().Lookup("compression"))
	viper.BindPFlag("compression_level", rootCmd.Flags().Lookup("compression-level"))
	viper.BindPFlag("select_all", rootCmd.Flags().Lookup("all"))
	viper.BindPFlag("log_file", rootCmd.Flags().Lookup("log-file"))
}

// runBackup is the main execution function: discovery, selection, and the
// orchestrated backup run.
func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:   cfg.LogLevel,
		Format:  "text",
		LogFile: cfg.LogFile,
	})
	if err != nil {
		return err
	}
	displayService := display.NewService(cfg.ColorEnabled)

	// Missing external tools and an empty root are both fatal; nothing has
	// been attempted yet, so terminating here is safe.
	if err := backup.CheckRequiredTools(backup.RequiredTools); err != nil {
		return err
	}

	sites, err := site.Discover(cfg.RootDir, cfg.Marker)
	if err != nil {
		return err
	}

	selected, quit, err := resolveSelection(cfg, sites, displayService)
	if err != nil {
		return err
	}
	if quit {
		displayService.Info("Nothing selected, exiting")
		return nil
	}

	extractor := site.NewCredentialExtractor()
	orchestrator := backup.NewOrchestrator(
		backup.NewArchiveStage(cfg.DestDir, cfg.Timeout, logger, displayService),
		backup.NewDatabaseDumpStage(cfg.DestDir, cfg.Timeout, cfg.Compression, cfg.CompressionLevel, extractor, logger, displayService),
		backup.NewConfigSnapshotStage(cfg.NginxDir, cfg.DestDir, logger, displayService),
		cfg.DestDir,
		logger,
		displayService,
	)

	if err := orchestrator.Prepare(); err != nil {
		return err
	}

	orchestrator.RunAll(context.Background(), selected)

	// Per-site failures are reported in the summary, not via the exit
	// code; only fatal conditions terminate nonzero.
	return nil
}

// resolveSelection applies --all or runs the interactive prompt. The quit
// return distinguishes explicit cancellation (a normal exit) from a fatal
// error.
func resolveSelection(cfg *config.Config, sites []site.Site, displayService display.Service) ([]site.Site, bool, error) {
	if cfg.SelectAll {
		return sites, false, nil
	}

	prompter := prompt.NewPrompter(os.Stdin, displayService)
	selection, err := prompter.Select(sites)
	if err != nil {
		return nil, false, err
	}

	switch selection.Kind {
	case prompt.SelectionAll:
		return sites, false, nil
	case prompt.SelectionOne:
		return []site.Site{sites[selection.Index]}, false, nil
	default:
		return nil, true, nil
	}
}

// buildConfig assembles the runtime configuration from the config file,
// environment, flags, and the optional positional destination argument.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if len(args) > 0 {
		cfg.DestDir = args[0]
	}

	if verbose && quiet {
		return nil, fmt.Errorf("--verbose and --quiet flags are mutually exclusive")
	}
	if cmd.Flags().Changed("verbose") && verbose {
		cfg.LogLevel = logging.LogLevelVerbose
	}
	if cmd.Flags().Changed("quiet") && quiet {
		cfg.LogLevel = logging.LogLevelQuiet
	}

	if cmd.Flags().Changed("no-color") {
		cfg.ColorEnabled = !noColor
	} else if !viper.IsSet("color_enabled") {
		cfg.ColorEnabled = true
	}

	if cmd.Flags().Changed("compression") {
		cfg.Compression = backup.CompressionType(compression)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// initConfig reads in the config file and environment variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".site-backup")
	}

	viper.SetEnvPrefix("SITE_BACKUP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// Version information (set by main package)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc string) {
	version = v
	buildTime = bt
	gitCommit = gc
}

// createVersionCommand creates the version subcommand
func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("site-backup version %s\n", version)
			fmt.Printf("Built: %s\n", buildTime)
			fmt.Printf("Commit: %s\n", gitCommit)
		},
	}
}

// sampleConfig mirrors config.Config for YAML rendering
type sampleConfig struct {
	RootDir          string `yaml:"root_dir"`
	NginxDir         string `yaml:"nginx_dir"`
	DestDir          string `yaml:"dest_dir"`
	Marker           string `yaml:"marker"`
	Timeout          string `yaml:"timeout"`
	Compression      string `yaml:"compression"`
	CompressionLevel int    `yaml:"compression_level"`
	SelectAll        bool   `yaml:"select_all"`
	LogLevel         string `yaml:"log_level"`
	LogFile          string `yaml:"log_file"`
	ColorEnabled     bool   `yaml:"color_enabled"`
}

// createConfigCommand creates the config subcommand for generating a sample
// configuration file
func createConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Generate a sample configuration file",
		Long: `Generate a sample configuration file that can be used with the --config
flag. Redirect the output to a file and customize it for your environment:

  site-backup config > ~/.site-backup.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sample := sampleConfig{
				RootDir:      config.DefaultRootDir,
				NginxDir:     config.DefaultNginxDir,
				DestDir:      config.DefaultDestDir,
				Marker:       config.DefaultMarker,
				Timeout:      config.DefaultTimeout.String(),
				Compression:  string(backup.CompressionTypeGzip),
				LogLevel:     string(logging.LogLevelNormal),
				ColorEnabled: true,
			}

			data, err := yaml.Marshal(sample)
			if err != nil {
				return fmt.Errorf("failed to render sample configuration: %w", err)
			}

			fmt.Println("# site-backup configuration file")
			fmt.Println("# All options can also be set via SITE_BACKUP_* environment variables.")
			fmt.Print(string(data))
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createConfigCommand())
}
