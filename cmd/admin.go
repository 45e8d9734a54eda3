package main

import (
	"fmt"
	"log/slog"

	"github.com/Dosada05/alumni-network/repositories"
	"github.com/Dosada05/alumni-network/services"
	"github.com/spf13/cobra"
)

// createAdminCommand - единственный способ получить SUPER_ADMIN.
func createAdminCommand() *cobra.Command {
	var input services.CreateAdminInput

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a super administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			logger := setupLogger(cfg)
			dbConn, err := openDatabase(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeDatabase(dbConn, logger)

			dialect := repositories.Dialect(cfg.DatabaseDriver)
			authService := services.NewAuthService(
				repositories.NewSQLUserRepository(dbConn, dialect),
				repositories.NewSQLSubmissionRepository(dbConn, dialect),
				repositories.NewSQLAlumniRepository(dbConn, dialect),
				nil,
				logger,
			)

			user, err := authService.CreateSuperAdmin(cmd.Context(), input)
			if err != nil {
				return fmt.Errorf("failed to create admin: %w", err)
			}
			logger.Info("super admin created", slog.Int("user_id", user.ID), slog.String("email", user.Email))
			return nil
		},
	}

	cmd.Flags().StringVar(&input.Email, "email", "", "admin email")
	cmd.Flags().StringVar(&input.FullName, "name", "", "admin full name")
	cmd.Flags().StringVar(&input.Password, "password", "", "admin password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
