package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	serverURLKey = "server_url"
	addressKey   = "address"
	stunKey      = "stun"
	logLevelKey  = "log_level"
)

var rootCmd = &cobra.Command{
	Use:   "dialer",
	Short: "Command line softphone for a Dialtone server.",
	Long: `dialer registers an address on a Dialtone signaling server and places or
answers audio calls. Media is negotiated with a local WebRTC peer; received
audio can be echoed back for testing.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lvl, err := zerolog.ParseLevel(viper.GetString(logLevelKey))
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		zerolog.SetGlobalLevel(lvl)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dialer.yaml)")
	rootCmd.PersistentFlags().String("server", "ws://localhost:8080/api/ws/signal", "signal endpoint URL")
	rootCmd.PersistentFlags().StringP("address", "a", "", "address to register")
	rootCmd.PersistentFlags().String("stun", "stun:stun.l.google.com:19302", "STUN server, empty to disable")
	rootCmd.PersistentFlags().String("log-level", "info", "log level")

	_ = viper.BindPFlag(serverURLKey, rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag(addressKey, rootCmd.PersistentFlags().Lookup("address"))
	_ = viper.BindPFlag(stunKey, rootCmd.PersistentFlags().Lookup("stun"))
	_ = viper.BindPFlag(logLevelKey, rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(listenCmd, callCmd, listingsCmd)
}

// initConfig reads in config file and DIALER_* variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".dialer")
	}
	viper.SetEnvPrefix("DIALER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "Error reading config file:", err)
		}
	}
}
