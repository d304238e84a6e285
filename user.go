package main

import (
	"fmt"

	"agritrace/internal/models"
	"agritrace/internal/service"

	"github.com/spf13/cobra"
)

func userCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var in service.RegisterInput
	var role string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an account, including admins",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := commonRun()
			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			in.Role = models.Role(role)
			// the CLI runs with operator rights
			operator := service.Actor{ID: "cli", Role: models.RoleAdmin}
			user, err := a.services.Users.Register(cmd.Context(), operator, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (%s)\n", user.Role, user.Username, user.ID)
			return nil
		},
	}
	add.Flags().StringVar(&in.Username, "username", "", "login name")
	add.Flags().StringVar(&in.Password, "password", "", "password")
	add.Flags().StringVar(&in.DisplayName, "name", "", "display name")
	add.Flags().StringVar(&role, "role", string(models.RoleFarmer), "farmer, distributor, retailer, consumer or admin")
	_ = add.MarkFlagRequired("username")
	_ = add.MarkFlagRequired("password")

	cmd.AddCommand(add)
	return cmd
}
