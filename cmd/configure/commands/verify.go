package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxscribe/voxscribe-api/internal/config"
	"github.com/voxscribe/voxscribe-api/internal/database"
)

// NewVerifyCmd creates the verify command
func NewVerifyCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Manually verify an account",
		Long:  "Mark an account's email as verified without an OTP, for support cases where the verification email never arrived",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()

			userRepo := database.NewUserRepository(db)
			ctx := context.Background()

			user, err := userRepo.GetByEmail(ctx, email)
			if err != nil {
				return fmt.Errorf("failed to find account: %w", err)
			}
			if user.EmailVerified {
				fmt.Printf("Account %s is already verified\n", user.Email)
				return nil
			}

			if err := userRepo.MarkVerified(ctx, user.ID); err != nil {
				return fmt.Errorf("failed to mark account verified: %w", err)
			}

			fmt.Printf("Account %s marked verified\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address of the account to verify (required)")

	return cmd
}
