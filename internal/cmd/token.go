package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/CyrilCartoux/watch-pros-sub002/pkg/config"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/jwtutil"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print an HS256 access token for local development",
	Long: `Sign an access token with JWT_SIGNING_KEY so the API can be exercised
without the auth provider. Pass --role with the admin role to reach the
review endpoints.`,
	RunE: runToken,
}

var tokenFlags struct {
	userID string
	email  string
	role   string
	ttl    time.Duration
}

func init() {
	tokenCmd.Flags().StringVar(&tokenFlags.userID, "user", "", "user id (random when empty)")
	tokenCmd.Flags().StringVar(&tokenFlags.email, "email", "dev@watch-pros.local", "email claim")
	tokenCmd.Flags().StringVar(&tokenFlags.role, "role", "", "app role claim")
	tokenCmd.Flags().DurationVar(&tokenFlags.ttl, "ttl", time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.JWT.SigningKey == "" {
		return errors.New("JWT_SIGNING_KEY is not set")
	}

	userID := uuid.New()
	if tokenFlags.userID != "" {
		if userID, err = uuid.Parse(tokenFlags.userID); err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}
	}

	token, err := jwtutil.GenerateToken([]byte(cfg.JWT.SigningKey), userID, tokenFlags.email, tokenFlags.role, tokenFlags.ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
