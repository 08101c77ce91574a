package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	errNotSignedIn    = errors.New("not signed in, run carga login")
	errSessionExpired = errors.New("session expired, run carga login")
	errAdminOnly      = errors.New("this action needs the admin role")
	errLoginFailed    = errors.New("login failed: check username and password")
)

func (a *app) loginCmd() *cobra.Command {
	var (
		username string
		password string
		remember bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the token",
		Long: `Signs in and stores the token in the credentials file.

The password is read from --password, then $CARGA_PASSWORD, then one line
of standard input.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" {
				return errors.New("--username is required")
			}
			if password == "" {
				password = os.Getenv("CARGA_PASSWORD")
			}
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password given")
				}
				password = strings.TrimRight(line, "\r\n")
			}

			if !a.session.Login(cmd.Context(), username, password, remember) {
				return errLoginFailed
			}
			user := a.session.User()
			a.printf("Signed in as %s (%s)\n", user.Username, user.Role)
			if user.MustChangePassword {
				a.printf("This account still uses a generated password; run carga passwd.\n")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username or email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	cmd.Flags().BoolVar(&remember, "remember", false, "ask for a long-lived token")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		RunE: func(*cobra.Command, []string) error {
			a.session.Logout()
			a.printf("Signed out\n")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and check the token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			user := a.auth.Me(cmd.Context())
			if err := a.expired(); err != nil {
				return err
			}
			if user == nil {
				return errors.New("could not reach the server")
			}
			email := "-"
			if user.Email != nil && *user.Email != "" {
				email = *user.Email
			}
			a.printf("%s\n", renderTable([]string{"ID", "Username", "Email", "Role"}, [][]string{{
				fmt.Sprint(user.ID), user.Username, email, string(user.Role),
			}}))
			return nil
		},
	}
}

func (a *app) passwdCmd() *cobra.Command {
	var newPassword string
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change your password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			if newPassword == "" {
				return errors.New("--new is required")
			}
			if !a.session.ChangePassword(cmd.Context(), newPassword) {
				if err := a.expired(); err != nil {
					return err
				}
				return errors.New("password not changed")
			}
			a.printf("Password changed\n")
			return nil
		},
	}
	cmd.Flags().StringVar(&newPassword, "new", "", "new password (6+ characters)")
	return cmd
}
