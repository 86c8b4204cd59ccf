package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ValentinKolb/dMerge/cmd/data"
	"github.com/ValentinKolb/dMerge/cmd/serve"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dmerge",
		Short: "fetch-merge-persist pipeline service",
		Long: fmt.Sprintf(`dMerge (v%s)

A small web service that accepts a primary dataset via HTTP, periodically
fetches a secondary dataset from a remote API with bounded retries, merges
the two and serves the derived result.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dMerge",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dMerge v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(data.DataCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
