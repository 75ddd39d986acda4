package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zjoart/go-intouch-transfer/pkg/logger"
)

var (
	reconcileMinAge time.Duration
	reconcileBatch  int
)

// reconcileCmd runs one reconciliation pass, for operators and external schedulers.
func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Re-poll the provider once for transfers stuck in PENDING",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			minAge, batch := a.cfg.ReconcileMinAge, a.cfg.ReconcileBatch
			if cmd.Flags().Changed("min-age") {
				minAge = reconcileMinAge
			}
			if cmd.Flags().Changed("batch") {
				batch = reconcileBatch
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			settled, err := a.transfers.ReconcilePending(ctx, minAge, batch)
			if err != nil {
				return fmt.Errorf("reconcile pending transfers: %w", err)
			}
			logger.Info("Reconciliation pass finished", logger.Fields{"settled": settled})
			return nil
		},
	}

	cmd.Flags().DurationVar(&reconcileMinAge, "min-age", 0, "only transfers pending longer than this (default RECONCILE_MIN_AGE)")
	cmd.Flags().IntVar(&reconcileBatch, "batch", 0, "maximum transfers per pass (default RECONCILE_BATCH)")
	return cmd
}
