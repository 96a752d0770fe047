package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub-api/internal/models"
	"github.com/taskhub/taskhub-api/internal/users"
)

var errMissingURI = errors.New("MONGODB_URI is not set")

func newUserCmd(open openUsers) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(newUserPromoteCmd(open), newUserCreateCmd(open), newUserListCmd(open))
	return cmd
}

func newUserPromoteCmd(open openUsers) *cobra.Command {
	var email, role string
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Set the role of an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			u, err := svc.SetRoleByEmail(cmd.Context(), email, models.Role(role))
			if err != nil {
				return fmt.Errorf("promote %s: %w", email, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", u.Email, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the user")
	cmd.Flags().StringVar(&role, "role", string(models.RoleAdmin), "role to assign")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUserCreateCmd(open openUsers) *cobra.Command {
	var in users.CreateInput
	var role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user ahead of their first login",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			in.Role = models.Role(role)
			u, err := svc.Create(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("create %s: %w", in.Email, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) id=%s\n", u.Email, u.Role, u.ID.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&role, "role", string(models.RoleUser), "role")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUserListCmd(open openUsers) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			list, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tROLE\tNAME")
			for _, u := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID.Hex(), u.Email, u.Role, u.Name)
			}
			return w.Flush()
		},
	}
}
