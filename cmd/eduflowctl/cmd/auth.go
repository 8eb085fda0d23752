package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication for eduflowctl",
}

func promptLine(label string) (string, error) {
	fmt.Print(label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(label string) (string, error) {
	fmt.Print(label)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the learning platform and store the session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if manager.Snapshot().IsAuthenticated() {
			confirm, err := promptLine("Already logged in. Re-login? (yes/no): ")
			if err != nil {
				return err
			}
			if strings.ToLower(confirm) != "yes" {
				fmt.Println("Login cancelled.")
				return nil
			}
		}

		email, err := promptLine("Enter email: ")
		if err != nil {
			return err
		}
		password, err := promptPassword("Enter password: ")
		if err != nil {
			return err
		}

		if err := manager.Login(cmd.Context(), email, password); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		snap := manager.Snapshot()
		fmt.Printf("Login successful. Logged in as: %s\n", snap.User.Email)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		username, err := promptLine("Choose a username: ")
		if err != nil {
			return err
		}
		email, err := promptLine("Enter email: ")
		if err != nil {
			return err
		}
		name, err := promptLine("Display name (optional): ")
		if err != nil {
			return err
		}
		password, err := promptPassword("Choose a password: ")
		if err != nil {
			return err
		}

		if err := manager.Register(cmd.Context(), username, email, password, name); err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}

		fmt.Println("Registration successful.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and clear the stored session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := manager.Logout(cmd.Context()); err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the currently authenticated user",
	RunE: func(*cobra.Command, []string) error {
		snap := manager.Snapshot()
		if !snap.IsAuthenticated() {
			fmt.Println("Not logged in.")
			return nil
		}
		fmt.Printf("Logged in as: %s (%s)\n", snap.User.Username, snap.User.Email)
		return nil
	},
}

var forgotPasswordCmd = &cobra.Command{
	Use:   "forgot-password <email>",
	Short: "Request a password reset email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := manager.ForgotPassword(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to request password reset: %w", err)
		}
		fmt.Println("Password reset email sent.")
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password <code>",
	Short: "Reset the password with a code from the reset email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptPassword("New password: ")
		if err != nil {
			return err
		}
		confirmation, err := promptPassword("Confirm password: ")
		if err != nil {
			return err
		}

		if err := manager.ResetPassword(cmd.Context(), args[0], password, confirmation); err != nil {
			return fmt.Errorf("password reset failed: %w", err)
		}

		fmt.Println("Password reset. You are now logged in.")
		return nil
	},
}

var changePasswordCmd = &cobra.Command{
	Use:   "change-password",
	Short: "Change the password of the logged-in account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		current, err := promptPassword("Current password: ")
		if err != nil {
			return err
		}
		next, err := promptPassword("New password: ")
		if err != nil {
			return err
		}

		if err := manager.ChangePassword(cmd.Context(), current, next); err != nil {
			return fmt.Errorf("password change failed: %w", err)
		}

		fmt.Println("Password changed.")
		return nil
	},
}

var verifyEmailCmd = &cobra.Command{
	Use:   "verify-email <token>",
	Short: "Confirm an email address with a token from the confirmation mail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := manager.VerifyEmail(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("email verification failed: %w", err)
		}
		fmt.Println("Email verified.")
		return nil
	},
}

var sendConfirmationCmd = &cobra.Command{
	Use:   "send-confirmation <email>",
	Short: "Resend the email confirmation mail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := manager.SendEmailConfirmation(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to send confirmation email: %w", err)
		}
		fmt.Println("Confirmation email sent.")
		return nil
	},
}

func init() {
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(registerCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(whoamiCmd)
	authCmd.AddCommand(forgotPasswordCmd)
	authCmd.AddCommand(resetPasswordCmd)
	authCmd.AddCommand(changePasswordCmd)
	authCmd.AddCommand(verifyEmailCmd)
	authCmd.AddCommand(sendConfirmationCmd)
}
