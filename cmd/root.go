package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hotel-billing-service",
	Short: "Subscriptions, wallet ledger and platform-fee settlement for the hotel platform",
}

func Execute() error {
	return rootCmd.Execute()
}
