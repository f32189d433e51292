package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/cache"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/pricing"
)

func pricingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pricing",
		Short: "Pricing maintenance",
	}
	cmd.AddCommand(pricingRecomputeCmd())
	cmd.AddCommand(pricingReviewCmd())
	return cmd
}

// pricingReviewCmd resolves a price proposal held by the daily change guard.
func pricingReviewCmd() *cobra.Command {
	var roomID string
	var approve, reject bool
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Approve or reject a held price proposal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if roomID == "" {
				return fmt.Errorf("--room is required")
			}
			if approve == reject {
				return fmt.Errorf("exactly one of --approve or --reject is required")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Shutdown() }()

			if err := a.Pricing.Review(ctx, domain.RoomID(roomID), approve); err != nil {
				return err
			}
			return printResult(1)
		},
	}
	cmd.Flags().StringVar(&roomID, "room", "", "room id")
	cmd.Flags().BoolVar(&approve, "approve", false, "approve the pending proposal")
	cmd.Flags().BoolVar(&reject, "reject", false, "reject the pending proposal")
	return cmd
}

// pricingRecomputeCmd drops the cached quotes for a hotel and recomputes the
// next horizon of nightly prices for every room type.
func pricingRecomputeCmd() *cobra.Command {
	var hotelID string
	var horizon int
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Force price recomputation for a hotel",
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

			id := domain.HotelID(hotelID)
			a.Cache.Invalidate(ctx, domain.InvalidateImmediate, id, cache.TagPrice(id))

			affected := 0
			now := a.Clock.Now()
			for day := 0; day < horizon; day++ {
				in := now.AddDate(0, 0, day)
				out := in.AddDate(0, 0, 1)
				for _, rt := range domain.AllRoomTypes {
					if _, err := a.Pricing.Quote(ctx, pricing.Request{
						HotelID:  id,
						RoomType: rt,
						CheckIn:  in,
						CheckOut: out,
					}); err == nil {
						affected++
					}
				}
			}
			return printResult(affected)
		},
	}
	cmd.Flags().StringVar(&hotelID, "hotel", "", "hotel id")
	cmd.Flags().IntVar(&horizon, "days", 7, "recompute horizon in days")
	return cmd
}
