package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-gate/internal/config"
	"github.com/kozaktomas/face-gate/internal/logger"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "face-gate",
	Short: "Face signature enrollment and recognition service",
	Long: `Face Gate stores face signatures sent by camera sensors and answers
recognition requests with the closest enrolled label. An administrator arms a
name, the next signature from the sensor is registered under it, and later
queries are matched against every stored signature.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return applyLogLevel()
	},
}

func Execute() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

func applyLogLevel() error {
	name := logLevel
	if name == "" {
		name = config.Load().Log.Level
	}
	level, ok := logger.ParseLogLevel(name)
	if !ok {
		return fmt.Errorf("unknown log level %q", name)
	}
	logger.SetLevel(level)
	return nil
}
