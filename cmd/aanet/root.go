package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "aanet",
	Short: "Discrete-event simulator for aerial ad-hoc wireless networks",
	Long: `aanet simulates drones moving in three-dimensional space while
generating and forwarding packets across a layered stack, contending for a
shared radio medium in which transmissions collide, interfere, or are lost.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
