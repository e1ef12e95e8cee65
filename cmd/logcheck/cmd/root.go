package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/psantana5/logcheck/internal/config"
	"github.com/psantana5/logcheck/internal/logging"
)

var (
	cfgFile string

	// resolved in PersistentPreRunE
	settings *config.Settings
	logger   *logging.Logger
)

// flag name -> config key, for flags whose names differ from their keys
var flagKeys = map[string]string{
	"adb":           "adb_path",
	"clear-timeout": "clear_timeout",
	"grace-period":  "grace_period",
	"log-level":     "log_level",
	"log-format":    "log_format",
	"metrics-file":  "metrics_file",
}

// rootCmd represents the base command. With no subcommand it watches.
var rootCmd = &cobra.Command{
	Use:   "logcheck",
	Short: "Clear and follow an Android app's log over adb",
	Long: `logcheck clears the device log buffer and then follows the device log,
filtered to one application tag, until the stream ends or you press Ctrl+C.

Running logcheck with no subcommand is the same as "logcheck watch".`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
	RunE:              runWatch,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.logcheck/config.yaml)")
	rootCmd.PersistentFlags().String("adb", "", "path to the adb executable (default adb on PATH)")
	rootCmd.PersistentFlags().StringP("serial", "s", "", "device serial (default $ANDROID_SERIAL or the only attached device)")
	rootCmd.PersistentFlags().String("log-level", "", "diagnostic log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "diagnostic log format: console or json")

	addWatchFlags(rootCmd)
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	config.SetDefaults(viper.GetViper())
	config.BindEnv(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		return
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	viper.AddConfigPath(filepath.Join(home, ".logcheck"))
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
}

// loadSettings merges file, env and the running command's flags
func loadSettings(cmd *cobra.Command, args []string) error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// an explicit --config must exist; the default location is optional
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || f.Name == "no-clear" || f.Name == "help" {
			return
		}
		key, ok := flagKeys[f.Name]
		if !ok {
			key = f.Name
		}
		if err := viper.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return bindErr
	}

	if f := cmd.Flags().Lookup("no-clear"); f != nil && f.Changed {
		noClear, _ := cmd.Flags().GetBool("no-clear")
		viper.Set("clear", !noClear)
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	s, err := cfg.Resolve()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	settings = s
	logger = logging.NewLogger(s.LogLevel, s.JSONLogs)
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("loaded config file", map[string]interface{}{"path": used})
	}
	return nil
}
