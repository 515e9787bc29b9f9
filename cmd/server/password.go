package main

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"go-trip-planner/internal/auth"
	"go-trip-planner/internal/config"
	"go-trip-planner/internal/database"
	"go-trip-planner/internal/model"
	"go-trip-planner/internal/repository"
	"go-trip-planner/internal/service"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

// promptPassword reads without echo from a terminal, or a single line from
// piped input.
func promptPassword(cmd *cobra.Command, prompt string) (string, error) {
	if !stdinIsTerminal() {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return "", oops.Code("CLI_READ_PASSWORD_FAILED").Wrap(err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	cmd.Print(prompt)
	raw, err := readPassword(int(os.Stdin.Fd()))
	cmd.Println()
	if err != nil {
		return "", oops.Code("CLI_READ_PASSWORD_FAILED").Wrap(err)
	}
	return string(raw), nil
}

func readNewPassword(cmd *cobra.Command) (string, error) {
	password, err := promptPassword(cmd, "Password: ")
	if err != nil {
		return "", err
	}
	if err := auth.ValidatePasswordPolicy(password); err != nil {
		return "", err
	}

	if stdinIsTerminal() {
		confirm, err := promptPassword(cmd, "Confirm password: ")
		if err != nil {
			return "", err
		}
		if confirm != password {
			return "", oops.Code("CLI_PASSWORD_MISMATCH").Errorf("passwords do not match")
		}
	}
	return password, nil
}

func newHashPasswordCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Read a password and print its bcrypt hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hasher, err := auth.NewBcryptHasher(cost)
			if err != nil {
				return err
			}

			password, err := readNewPassword(cmd)
			if err != nil {
				return err
			}

			hash, err := hasher.Hash(password)
			if err != nil {
				return err
			}
			cmd.Println(hash)
			return nil
		},
	}

	cmd.Flags().IntVar(&cost, "cost", auth.ProductionCost, "bcrypt cost")
	return cmd
}

func newCreateUserCmd() *cobra.Command {
	var email, role string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Provision an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			password, err := readNewPassword(cmd)
			if err != nil {
				return err
			}

			db, err := database.New(cmd.Context(), cfg.DatabaseURL, database.Options{
				MaxConns:       2,
				ConnectRetries: cfg.DBConnectRetries,
			})
			if err != nil {
				return err
			}
			defer db.Close()

			svc, err := newProvisioningService(cfg, repository.NewUserRepository(db.Pool), repository.NewResetTokenRepository(db.Pool))
			if err != nil {
				return err
			}

			user, err := svc.CreateUser(cmd.Context(), email, password, role)
			if err != nil {
				return err
			}
			cmd.Printf("created %s user %s (%s)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&role, "role", model.RoleTraveler, "account role (traveler or admin)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newProvisioningService(cfg *config.Config, users service.UserStore, resets auth.ResetTokenStore) (*service.AuthService, error) {
	hasher, err := auth.NewBcryptHasher(cfg.HashCost())
	if err != nil {
		return nil, err
	}
	sessions, err := auth.NewSessionTokenService(cfg.SessionSecret)
	if err != nil {
		return nil, err
	}

	return service.NewAuthService(service.AuthDeps{
		Users:    users,
		Hasher:   hasher,
		Sessions: sessions,
		Resets:   auth.NewPasswordResetTokenService(resets),
	})
}
