// Command farm2home runs and manages the Farm2Home marketplace API.
//
//	farm2home serve           # start the HTTP server
//	farm2home route:list      # list API routes
//	farm2home db:indexes      # create MongoDB indexes
//	farm2home seed            # insert sample accounts and products
//	farm2home stock:recover   # settle stale stock adjustments
//	farm2home queue:work      # run background job workers only
//	farm2home schedule:list   # list periodic tasks
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "farm2home",
	Short:         "Farm2Home marketplace API",
	Long:          "Farm2Home connects farmers selling produce with buyers. Use this CLI to run and manage the API.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Server
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	// Database
	rootCmd.AddCommand(indexesCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(recoverCmd)

	// Workers
	rootCmd.AddCommand(queueWorkCmd)
	rootCmd.AddCommand(scheduleListCmd)
}
