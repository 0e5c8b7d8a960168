package main

import (
	"context"
	"fmt"

	"insurance-settlement/internal/app"
	"insurance-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Refund stale payouts and reissue missing certificates once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				report, err := a.Sweeper.RunOnce(ctx)
				if perr := printJSON(cmd.OutOrStdout(), report); perr != nil {
					return perr
				}
				return err
			})
		},
	}
}

func stockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stock",
		Short: "Manage certificate stock",
	}
	cmd.AddCommand(stockAddCmd(), stockListCmd())
	return cmd
}

func stockAddCmd() *cobra.Command {
	var (
		managerID, insurerID, class string
		quantity                    int
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add certificates to a manager's stock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := parseID("manager", managerID)
			if err != nil {
				return err
			}
			insurer, err := parseID("insurer", insurerID)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				stock, err := a.Inventory.Replenish(ctx, domain.StockKey{
					ManagerID:    manager,
					InsurerID:    insurer,
					ProductClass: class,
				}, quantity)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stock)
			})
		},
	}
	cmd.Flags().StringVar(&managerID, "manager", "", "manager id")
	cmd.Flags().StringVar(&insurerID, "insurer", "", "insurer id")
	cmd.Flags().StringVar(&class, "class", "", "product class (the product name)")
	cmd.Flags().IntVar(&quantity, "quantity", 0, "certificates to add")
	_ = cmd.MarkFlagRequired("manager")
	_ = cmd.MarkFlagRequired("insurer")
	_ = cmd.MarkFlagRequired("class")
	_ = cmd.MarkFlagRequired("quantity")
	return cmd
}

func stockListCmd() *cobra.Command {
	var managerID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show a manager's certificate stock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := parseID("manager", managerID)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				rows, err := a.Inventory.ListForManager(ctx, manager)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rows)
			})
		},
	}
	cmd.Flags().StringVar(&managerID, "manager", "", "manager id")
	_ = cmd.MarkFlagRequired("manager")
	return cmd
}

func parseID(name, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", name, raw, err)
	}
	return id, nil
}
