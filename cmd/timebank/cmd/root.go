package cmd

import (
	"fmt"
	"os"

	"afd-timebank/cmd/timebank/config"
	"afd-timebank/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	envFile   string
	verbose   bool
	logFormat string
	version   = "dev"
	commit    = "unknown"
	date      = "unknown"

	// fs is the filesystem every command reads from and writes to
	fs = afero.NewOsFs()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "timebank",
	Short: "AFD time clock parser and time bank calculator",
	Long: `Timebank reads AFD exports from electronic time clocks, resolves the
employees registered in them and computes, per employee and per day, the
worked time, the time bank balance against the expected quota and the
anomalies found in the punches.

Examples:
  timebank employees --file AFD.txt
  timebank report --file AFD.txt --start 2024-03-01 --end 2024-03-31
  timebank report --file AFD.txt --start 2024-03-01 --end 2024-03-31 --format xlsx
  timebank serve --config timebank.yaml
  timebank --version`,
	Version:       getVersionString(),
	SilenceErrors: true,
	SilenceUsage:  true,

	// Flag names are shared between subcommands, so bind the running
	// command's flags only.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return viper.BindPFlags(cmd.Flags())
	},
}

// Execute runs the root command and returns the process exit code.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return NewCLIErrorHandler().HandleError(err)
	}
	return 0
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./timebank.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text, json")

	// Bind flags to viper
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in the dotenv file, the config file and ENV variables.
func initConfig() {
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error reading env file: %s\n", err)
		os.Exit(1)
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("timebank")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || cfgFile != "" {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}
	}

	// Read environment variables that match
	viper.SetEnvPrefix("TIMEBANK")
	viper.AutomaticEnv()

	if err := setupLogger(); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %s\n", err)
		os.Exit(1)
	}

	if viper.ConfigFileUsed() != "" {
		logger.WithField("config_file", viper.ConfigFileUsed()).Debug("Using config file")
	}
}

func setupLogger() error {
	logConfig, err := config.CreateLoggerConfig(viper.GetViper())
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(logConfig)
	if err != nil {
		return err
	}
	logger.SetGlobalLogger(log)
	return nil
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
