package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxscribe/voxscribe-api/internal/config"
	"github.com/voxscribe/voxscribe-api/internal/database"
	"github.com/voxscribe/voxscribe-api/internal/mailer"
	"github.com/voxscribe/voxscribe-api/internal/queue"
	"github.com/voxscribe/voxscribe-api/internal/session"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test service connectivity",
		Long:  "Verify connectivity to the database, Redis, RabbitMQ and the SMTP relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			failures := 0

			fmt.Println("Testing database connection...")
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				fmt.Printf("✗ database: %v\n", err)
				failures++
			} else {
				defer func() {
					_ = db.Close()
				}()
				if err := db.HealthCheck(ctx); err != nil {
					fmt.Printf("✗ database: %v\n", err)
					failures++
				} else {
					fmt.Println("✓ database is reachable")
				}
			}

			fmt.Println("\nTesting Redis connection...")
			sessions, err := session.NewStore(cfg.RedisURL, session.DefaultTTL)
			if err != nil {
				fmt.Printf("✗ redis: %v\n", err)
				failures++
			} else {
				defer func() {
					_ = sessions.Close()
				}()
				fmt.Println("✓ redis is reachable")
			}

			fmt.Println("\nTesting RabbitMQ connection...")
			if cfg.RabbitMQURL == "" {
				fmt.Println("- rabbitmq not configured, skipping")
			} else {
				jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
				if err != nil {
					fmt.Printf("✗ rabbitmq: %v\n", err)
					failures++
				} else {
					defer func() {
						_ = jobQueue.Close()
					}()
					fmt.Println("✓ rabbitmq is reachable")
				}
			}

			fmt.Println("\nTesting SMTP configuration...")
			if !cfg.MailConfigured() {
				fmt.Println("- smtp not configured, skipping")
			} else {
				_, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
					Host:     cfg.SMTPHost,
					Port:     cfg.SMTPPort,
					Username: cfg.SMTPUser,
					Password: cfg.SMTPPass,
					From:     cfg.MailFrom,
					HomeURL:  cfg.FrontendURL,
				}, nil)
				if err != nil {
					fmt.Printf("✗ smtp: %v\n", err)
					failures++
				} else {
					fmt.Println("✓ smtp client configured")
				}
			}

			if failures > 0 {
				fmt.Fprintf(os.Stderr, "\n%d check(s) failed\n", failures)
				return fmt.Errorf("connectivity test failed")
			}
			fmt.Println("\n✓ All connectivity checks passed")
			return nil
		},
	}

	return cmd
}
