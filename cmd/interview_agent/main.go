// Package main provides the entry point for the interview session service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logJSON  bool
	logDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "interview_agent",
	Short: "AI interview session service",
	Long:  "interview_agent runs adaptive AI mock interviews over a REST API: it generates questions, evaluates text and voice answers, and writes the final report.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON); environment variables override it")
	rootCmd.PersistentFlags().BoolVarP(&logDebug, "debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&logJSON, "json", "j", false, "json format for logging")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
