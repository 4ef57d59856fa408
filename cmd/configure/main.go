package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxscribe/voxscribe-api/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "voxscribe-configure",
		Short: "Configuration tool for the VoxScribe API",
		Long:  "CLI tool for managing CORS, rate limit and account settings",
	}

	rootCmd.AddCommand(commands.NewCorsCmd())
	rootCmd.AddCommand(commands.NewRatelimitCmd())
	rootCmd.AddCommand(commands.NewListCmd())
	rootCmd.AddCommand(commands.NewVerifyCmd())
	rootCmd.AddCommand(commands.NewTestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
