package main

import (
	"fmt"
	"strings"
	"time"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	var id, role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for an agent, manager or admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return fmt.Errorf("jwt.secret is not configured")
			}
			r := domain.Role(strings.ToUpper(role))
			if !r.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			actor := uuid.New()
			if id != "" {
				if actor, err = parseID("actor", id); err != nil {
					return err
				}
			}

			tokens := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
			tok, exp, err := tokens.Generate(actor, r)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"actor_id":   actor.String(),
				"role":       string(r),
				"token":      tok,
				"expires_at": exp.UTC().Format(time.RFC3339),
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "actor id (generated when empty, which suits admins)")
	cmd.Flags().StringVar(&role, "role", "", "AGENT, MANAGER or ADMIN")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}
