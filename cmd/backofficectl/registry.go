package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"insurance-settlement/internal/app"
	"insurance-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func partyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "party",
		Short: "Provision managers and agents",
	}
	cmd.AddCommand(addManagerCmd(), addAgentCmd())
	return cmd
}

func addManagerCmd() *cobra.Command {
	var name, phone string
	cmd := &cobra.Command{
		Use:   "add-manager",
		Short: "Create a manager and its wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				now := time.Now().UTC()
				m := &domain.Manager{ID: uuid.New(), FullName: name, Phone: phone, CreatedAt: now}
				if err := a.Repos.Parties.CreateManager(ctx, m); err != nil {
					return err
				}
				if err := openWallet(ctx, a, m.ID, now); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), m)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&phone, "phone", "", "contact phone")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func addAgentCmd() *cobra.Command {
	var managerID, name, phone string
	cmd := &cobra.Command{
		Use:   "add-agent",
		Short: "Create an agent under a manager, with its wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := parseID("manager", managerID)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				now := time.Now().UTC()
				agent := &domain.Agent{ID: uuid.New(), ManagerID: manager, FullName: name, PayoutPhone: phone, CreatedAt: now}
				if err := a.Repos.Parties.CreateAgent(ctx, agent); err != nil {
					return err
				}
				if err := openWallet(ctx, a, agent.ID, now); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), agent)
			})
		},
	}
	cmd.Flags().StringVar(&managerID, "manager", "", "administering manager id")
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&phone, "phone", "", "mobile-money number payouts are sent to")
	_ = cmd.MarkFlagRequired("manager")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("phone")
	return cmd
}

func openWallet(ctx context.Context, a *app.App, ownerID uuid.UUID, now time.Time) error {
	w := &domain.Wallet{ID: uuid.New(), OwnerID: ownerID, Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now}
	if err := a.Repos.Wallets.Create(ctx, w); err != nil {
		return fmt.Errorf("open wallet: %w", err)
	}
	return nil
}

func productCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Manage insurance products",
	}
	cmd.AddCommand(addProductCmd())
	return cmd
}

func addProductCmd() *cobra.Command {
	var managerID, insurerID, name, percent, flat string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a product priced by percentage of insured value or a flat rate",
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
			calc, err := premiumFromFlags(percent, flat)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				p := &domain.Product{
					ID:          uuid.New(),
					ManagerID:   manager,
					InsurerID:   insurer,
					Name:        name,
					Calculation: calc,
					CreatedAt:   time.Now().UTC(),
				}
				if err := a.Repos.Products.Create(ctx, p); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"product":     p,
					"calculation": calc.Kind(),
					"rate":        calc.Rate(),
				})
			})
		},
	}
	cmd.Flags().StringVar(&managerID, "manager", "", "manager id")
	cmd.Flags().StringVar(&insurerID, "insurer", "", "insurer id")
	cmd.Flags().StringVar(&name, "name", "", "product name, also the certificate stock class")
	cmd.Flags().StringVar(&percent, "percent", "", "premium as a percentage of insured value")
	cmd.Flags().StringVar(&flat, "flat", "", "flat premium amount")
	cmd.MarkFlagsMutuallyExclusive("percent", "flat")
	_ = cmd.MarkFlagRequired("manager")
	_ = cmd.MarkFlagRequired("insurer")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func premiumFromFlags(percent, flat string) (domain.PremiumCalculation, error) {
	kind, raw := domain.CalculationPercentageOfValue, percent
	switch {
	case percent == "" && flat == "":
		return nil, errors.New("one of --percent or --flat is required")
	case flat != "":
		kind, raw = domain.CalculationFlatRate, flat
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid premium rate %q: %w", raw, err)
	}
	return domain.NewPremiumCalculation(kind, rate)
}
