package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

func loyaltyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loyalty",
		Short: "Loyalty maintenance",
	}
	cmd.AddCommand(loyaltyExpireCmd())
	return cmd
}

// loyaltyExpireCmd runs the points expiry scan immediately instead of waiting
// for the daily worker.
func loyaltyExpireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Run the points expiry scan now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Shutdown() }()

			result, err := a.Loyalty.ScanExpiry(ctx)
			if err != nil {
				return err
			}
			return printResult(result.TxExpired + result.AlertsSent)
		},
	}
}
