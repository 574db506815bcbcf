// Command tokengen mints development JWTs accepted by the taskr API.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/phrazzld/taskr/internal/config"
	"github.com/phrazzld/taskr/internal/service/auth"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		userID string
		expiry time.Duration
		secret string
	)

	cmd := &cobra.Command{
		Use:   "tokengen",
		Short: "Generate a signed token for local testing",
		Long: `Generate an HS256 token carrying a userId claim, signed with the API's secret.
The secret is taken from --secret, then TASKR_AUTH_JWT_SECRET, then JWT_SECRET,
and falls back to the development secret.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = secretFromEnv()
			}
			tokens, err := auth.NewTokenService(config.AuthConfig{JWTSecret: secret, TokenLifetime: expiry})
			if err != nil {
				return err
			}
			token, err := tokens.GenerateToken(context.Background(), userID, expiry)
			if err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Generated JWT Token:")
			fmt.Fprintln(out)
			fmt.Fprintln(out, token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "user123", "userId claim to embed")
	cmd.Flags().DurationVarP(&expiry, "expiry", "e", time.Hour, "Token lifetime")
	cmd.Flags().StringVar(&secret, "secret", "", "Signing secret (defaults to the environment)")
	return cmd
}

func secretFromEnv() string {
	v := viper.New()
	v.SetDefault("jwt_secret", config.DevJWTSecret)
	_ = v.BindEnv("jwt_secret", config.EnvPrefix+"_AUTH_JWT_SECRET", "JWT_SECRET")
	return v.GetString("jwt_secret")
}
