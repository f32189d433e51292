package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
)

// opsResult is the uniform one-shot command output.
type opsResult struct {
	OK       bool `json:"ok"`
	Affected int  `json:"affected"`
}

func printResult(affected int) error {
	return json.NewEncoder(os.Stdout).Encode(opsResult{OK: true, Affected: affected})
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Cache maintenance",
	}
	cmd.AddCommand(cacheWarmCmd(), cacheFlushCmd())
	return cmd
}

func cacheWarmCmd() *cobra.Command {
	var hotelID string
	var horizon int
	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Precompute availability and prices for a hotel",
		RunE: func(cmd *cobra.Command, args []string) error {
			if hotelID == "" {
				return fmt.Errorf("--hotel is required")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Shutdown() }()

			if err := a.Availability.Warm(ctx, domain.HotelID(hotelID), horizon); err != nil {
				return err
			}
			return printResult(horizon)
		},
	}
	cmd.Flags().StringVar(&hotelID, "hotel", "", "hotel id")
	cmd.Flags().IntVar(&horizon, "days", 7, "warming horizon in days")
	return cmd
}

func cacheFlushCmd() *cobra.Command {
	var tag string
	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Invalidate cache entries by tag",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tag == "" {
				return fmt.Errorf("--tag is required")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Shutdown() }()

			a.Cache.Invalidate(ctx, domain.InvalidateImmediate, "", tag)
			return printResult(1)
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "cache tag (e.g. price:H1)")
	return cmd
}
