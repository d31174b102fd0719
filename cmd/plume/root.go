// Package cli implements the plume command line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/plumeai/plume/internal/config"
	"github.com/plumeai/plume/internal/server"
)

// Version is set by the build.
var Version = "dev"

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "plume",
	Short: "Chat relay with history compression and memory extraction",
	Long: `Plume relays chat completions to upstream model providers, keeping
conversation history inside the model's token budget through incremental
summarization and distilling durable facts about the user into memories.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the relay server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "plume.yaml", "path to config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig() (config.Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	return config.Load(cfgPath)
}

func runServe() error {
	c, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal: %v - shutting down...\n", sig)
		cancel()
	}()

	return server.Run(ctx, c, server.Options{Version: Version})
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
