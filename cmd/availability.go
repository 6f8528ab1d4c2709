package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mesaflow/internal/availability"
	"mesaflow/internal/baas"
	"mesaflow/internal/config"
)

func newAvailabilityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Manage the remote availability system",
	}
	cmd.AddCommand(newAvailabilityInitCmd())
	cmd.AddCommand(newAvailabilityGenerateCmd())
	return cmd
}

func newAvailabilityService() *availability.Service {
	_ = godotenv.Load()
	cfg := config.Load()
	rc := baas.New(cfg.Baas)
	return availability.NewService(rc, zap.NewNop().Sugar())
}

func newAvailabilityInitCmd() *cobra.Command {
	var restaurantID string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize slots for the next 30 days",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			res := newAvailabilityService().InitializeAvailabilitySystem(ctx, restaurantID)
			printJSON(res)
			if !res.Success {
				return errors.New(res.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&restaurantID, "restaurant", "", "restaurant id")
	cmd.MarkFlagRequired("restaurant")
	return cmd
}

func newAvailabilityGenerateCmd() *cobra.Command {
	var restaurantID, startDate, endDate string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate slots for a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			var end *string
			if endDate != "" {
				end = &endDate
			}
			res := newAvailabilityService().GenerateAvailabilitySlots(ctx, restaurantID, startDate, end)
			printJSON(res)
			if !res.Success {
				return errors.New(res.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&restaurantID, "restaurant", "", "restaurant id")
	cmd.Flags().StringVar(&startDate, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "end date (YYYY-MM-DD), defaults to start date")
	cmd.MarkFlagRequired("restaurant")
	cmd.MarkFlagRequired("start")
	return cmd
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
