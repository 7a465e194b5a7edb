package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/pubsieve/internal/alert"
)

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the supported alert sources",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range alert.NewRegistry().Names() {
			fmt.Println(name)
		}
	},
}
