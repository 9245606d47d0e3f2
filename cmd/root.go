// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/inview/internal/config"
	"github.com/xkilldash9x/inview/internal/observability"
)

// app carries the state every subcommand shares once PersistentPreRunE ran.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

// NewRootCommand builds a fresh command tree with its own viper instance, so
// flags and config never leak between executions.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)
	config.BindEnv(a.v)

	rootCmd := &cobra.Command{
		Use:   "inview",
		Short: "inview reports whether page elements are visible in their viewport.",
		Long: `inview measures element visibility and scrollbars in HTML documents.
Local files and inline markup are laid out offline; http(s) URLs are loaded
in headless Chrome.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.Int("concurrency", 0, "number of jobs run in parallel")
	// Lookup never fails for flags registered just above.
	_ = a.v.BindPFlag("logger.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("runner.concurrency", flags.Lookup("concurrency"))

	rootCmd.AddCommand(
		newCheckCmd(a),
		newScrollbarCmd(a),
		newScrollbarWidthCmd(a),
		newBatchCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// initialize reads the config file and environment, then sets up logging.
func (a *app) initialize() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := config.NewConfigFromViper(a.v)
	if err != nil {
		observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "inview"})
		return err
	}
	observability.InitializeLogger(cfg.Logger())
	a.cfg = cfg
	a.logger = observability.GetLogger()
	a.logger.Debug("Configuration loaded.", zap.String("version", Version), zap.String("config_file", a.v.ConfigFileUsed()))
	return nil
}

// Execute runs the command tree against os.Args.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	observability.Sync()
	return err
}
