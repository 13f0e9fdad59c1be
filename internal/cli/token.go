package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	jwttoken "livecheck/internal/jwt_token"
	id "livecheck/pkg/domain"
)

func newTokenCommand() *cobra.Command {
	var (
		userID   string
		ttl      time.Duration
		key      string
		issuer   string
		audience string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var uid id.UserID
			if userID == "" {
				uid = id.UserID(uuid.New())
			} else {
				parsed, err := id.ParseUserID(userID)
				if err != nil {
					return err
				}
				uid = parsed
			}

			svc := jwttoken.NewJWTService(key, issuer, audience)
			token, err := svc.GenerateAccessToken(uid, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "user_id: %s\n", uid)
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID to embed (random when empty)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	cmd.Flags().StringVar(&key, "signing-key", envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"), "HMAC signing key")
	cmd.Flags().StringVar(&issuer, "issuer", envOr("JWT_ISSUER", "livecheck"), "token issuer")
	cmd.Flags().StringVar(&audience, "audience", envOr("JWT_AUDIENCE", "livecheck"), "token audience")
	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
