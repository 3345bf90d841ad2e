// Package command implements the rc2matrix command line.
package command

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mattermost/rocketchat-matrix-migrator/config"
)

// options holds the persistent flags.
type options struct {
	configPath string
	envFile    string

	homeserverURL string
	serverName    string
	inputDir      string
	database      string
	concurrency   int
	logLevel      string
	logDir        string
	rateLimit     bool
}

// NewRootCommand builds the rc2matrix command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "rc2matrix",
		Short: "Migrate a Rocket.Chat export into a Matrix homeserver",
		Long: `rc2matrix imports the users, rooms and messages of a Rocket.Chat export
into a Synapse homeserver and then reconciles direct chats, pinned messages,
room memberships and read markers.

The export is read from three JSON-lines files in the input directory:
users.json, rocketchat_room.json and rocketchat_message.json.

Every created entity is recorded in a sqlite mapping database, so an
interrupted run can be started again and continues where it stopped.

Settings come from the environment, a .env file and an optional YAML file,
and can be overridden with the flags below.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "dotenv file, ignored when missing")
	flags.StringVar(&opts.homeserverURL, "homeserver-url", "", "homeserver base URL (overrides "+config.EnvHomeserverURL+")")
	flags.StringVar(&opts.serverName, "server-name", "", "server name used in Matrix ids (overrides "+config.EnvServerName+")")
	flags.StringVar(&opts.inputDir, "input-dir", "", "directory holding the export files (overrides "+config.EnvInputDir+")")
	flags.StringVar(&opts.database, "database", "", "sqlite mapping database (overrides "+config.EnvDatabase+")")
	flags.IntVar(&opts.concurrency, "concurrency", 0, "maximum parallel requests (overrides "+config.EnvConcurrency+")")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides "+config.EnvLogLevel+")")
	flags.StringVar(&opts.logDir, "log-dir", "", "directory for combined.log and warn.log (overrides "+config.EnvLogDir+")")
	flags.BoolVar(&opts.rateLimit, "rate-limit", false, "throttle requests client side (overrides "+config.EnvRateLimit+")")

	rootCmd.AddCommand(
		newMigrateCommand(opts),
		newImportCommand(opts),
		newReconcileCommand(opts),
		newStatusCommand(opts),
		newWhoAmICommand(opts),
	)
	return rootCmd
}

// Execute runs the command line. An interrupt cancels the running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

// loadConfig resolves the configuration and applies the flags the user set.
func (o *options) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath, o.envFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("homeserver-url") {
		cfg.HomeserverURL = o.homeserverURL
	}
	if flags.Changed("server-name") {
		cfg.ServerName = o.serverName
	}
	if flags.Changed("input-dir") {
		cfg.InputDir = o.inputDir
	}
	if flags.Changed("database") {
		cfg.DatabasePath = o.database
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = o.concurrency
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("log-dir") {
		cfg.LogDir = o.logDir
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit = o.rateLimit
	}
	return cfg, nil
}
