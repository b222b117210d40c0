package cmd

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"energy-tariffs/internal/auth"
)

var (
	tokenRole    string
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token signed with the configured secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Auth.Enabled() {
			return fmt.Errorf("auth.secret is not configured")
		}
		role := auth.Role(tokenRole)
		if role != auth.RoleViewer && role != auth.RoleOperator {
			return fmt.Errorf("unknown role %q", tokenRole)
		}

		now := time.Now()
		claims := auth.Claims{
			Role: role,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:  tokenSubject,
				IssuedAt: jwt.NewNumericDate(now),
			},
		}
		if tokenTTL > 0 {
			claims.ExpiresAt = jwt.NewNumericDate(now.Add(tokenTTL))
		}

		token, err := auth.IssueToken(claims, []byte(cfg.Auth.Secret))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(auth.RoleViewer), "viewer or operator")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "token subject, e.g. the feeder name")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "lifetime (0 never expires)")
}
