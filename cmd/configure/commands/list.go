package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxscribe/voxscribe-api/internal/config"
	"github.com/voxscribe/voxscribe-api/internal/database"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		Long:  "List all user accounts with their verification state",
		RunE: func(cmd *cobra.Command, args []string) error {
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
			users, err := userRepo.List(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}

			if len(users) == 0 {
				fmt.Println("No user accounts")
				return nil
			}

			fmt.Printf("User accounts (%d):\n", len(users))
			for _, u := range users {
				kind := "password"
				if u.GoogleID != nil {
					kind = "google"
					if u.PasswordHash != nil {
						kind = "google+password"
					}
				}
				fmt.Printf("  - %s\n", u.Email)
				fmt.Printf("    ID: %s\n", u.ID)
				if u.Name != nil && *u.Name != "" {
					fmt.Printf("    Name: %s\n", *u.Name)
				}
				fmt.Printf("    Type: %s\n", kind)
				fmt.Printf("    Verified: %v\n", u.EmailVerified)
				if u.LastLoginAt != nil {
					fmt.Printf("    Last login: %s\n", u.LastLoginAt.Format("2006-01-02 15:04:05"))
				}
				fmt.Println()
			}

			return nil
		},
	}

	return cmd
}
