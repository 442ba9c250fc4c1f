package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sqlq",
	Short: "Asynchronous MySQL statement engine",
	Long: `sqlq queues SQL statements, batches and transactions onto a pool of
workers that each hold a dedicated MySQL connection, and delivers results
back through a drain loop.

This CLI runs the engine with a status server, manages the compound side
tables and prints configuration templates.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(configCmd)
}
