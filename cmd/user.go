package cmd

import (
	"fmt"

	"github.com/go-authgate/consentgate/internal/auth"
	"github.com/go-authgate/consentgate/internal/config"
	"github.com/go-authgate/consentgate/internal/models"

	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage local user accounts",
	}
	cmd.AddCommand(newUserCreateCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var (
		user                  models.User
		role, password        string
		generation, admission int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user that can sign in with nickname and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user.Role = models.Role(role)
			if user.Role != models.RoleStudent && user.Role != models.RoleTeacher {
				return fmt.Errorf("role must be %q or %q", models.RoleStudent, models.RoleTeacher)
			}
			if len(password) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			user.PasswordHash = hash

			graduated := false
			user.IsGraduated = &graduated
			if cmd.Flags().Changed("generation") {
				user.Generation = &generation
			}
			if cmd.Flags().Changed("admission") {
				user.Admission = &admission
			}

			db, err := openStore(cmd.Context(), config.Load())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.CreateUser(cmd.Context(), &user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s created (id %d)\n", user.Nickname, user.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&user.Email, "email", "", "email address")
	f.StringVar(&user.Nickname, "nickname", "", "login name")
	f.StringVar(&password, "password", "", "initial password")
	f.StringVar(&role, "role", string(models.RoleStudent), "student or teacher")
	f.StringVar(&user.Major, "major", models.MajorSoftware, "major")
	f.IntVar(&generation, "generation", 0, "generation number")
	f.IntVar(&admission, "admission", 0, "admission year")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("nickname")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
