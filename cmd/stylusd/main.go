package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stylusd",
	Short: "stylus - offline audio effect service",
	Long: `stylusd runs the stylus audio effect pipeline: clients upload a track,
pick the raw-dynamics or lofi preset, poll for completion, and download
the processed artifact.`,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(probeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
