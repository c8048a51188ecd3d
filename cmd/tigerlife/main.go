package main

import (
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
)

// AppVersion is overridden by ldflags during release builds.
var AppVersion = "dev"

var nodeID int64

var rootCmd = &cobra.Command{
	Use:           "tigerlife",
	Short:         "Campus organization membership and approval service",
	SilenceUsage:  true,
	SilenceErrors: false,
	Version:       AppVersion,
}

func init() {
	rootCmd.PersistentFlags().Int64Var(&nodeID, "node-id", 1, "snowflake node id of this instance")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(nodeID)
}
