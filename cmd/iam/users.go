package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/layer-3/barong-iam/adapters/hasher"
	"github.com/layer-3/barong-iam/adapters/users/sqlite"
	"github.com/layer-3/barong-iam/core"
)

var (
	userPassword string
	userNickname string
	userTenant   int64
	userRoles    []string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create an enabled user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd.Context(), func(ctx context.Context, db *sqlite.Storage) error {
			if userPassword == "" {
				return fmt.Errorf("%w: --password is required", core.ErrInvalidArgument)
			}
			hash, err := hasher.NewBcryptHasher(bcryptCost).Hash(userPassword)
			if err != nil {
				return err
			}

			user := &core.User{
				Username:     args[0],
				PasswordHash: hash,
				Nickname:     userNickname,
				TenantID:     userTenant,
				Status:       core.StatusEnabled,
			}
			if err := db.CreateUser(ctx, user); err != nil {
				return err
			}
			if len(userRoles) > 0 {
				if err := db.AssignRoles(ctx, user.ID, userRoles); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", user.Username, user.ID)
			return nil
		})
	},
}

var userStatusCmd = &cobra.Command{
	Use:       "status <username> <enabled|disabled>",
	Short:     "Enable or disable a user",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"enabled", "disabled"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var status int
		switch args[1] {
		case "enabled":
			status = core.StatusEnabled
		case "disabled":
			status = core.StatusDisabled
		default:
			return fmt.Errorf("%w: status must be enabled or disabled", core.ErrInvalidArgument)
		}

		return withStorage(cmd.Context(), func(ctx context.Context, db *sqlite.Storage) error {
			if err := db.UpdateStatus(ctx, args[0], status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s %s\n", args[0], args[1])
			return nil
		})
	},
}

var userRolesCmd = &cobra.Command{
	Use:   "roles <username> [role...]",
	Short: "Replace the roles of a user",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd.Context(), func(ctx context.Context, db *sqlite.Storage) error {
			user, err := db.GetUserByUsername(ctx, args[0])
			if err != nil {
				return err
			}
			if err := db.AssignRoles(ctx, user.ID, args[1:]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s roles %v\n", user.Username, args[1:])
			return nil
		})
	},
}

var roleCmd = &cobra.Command{
	Use:   "role",
	Short: "Manage role permissions",
}

var roleGrantCmd = &cobra.Command{
	Use:   "grant <role> <permission...>",
	Short: "Grant permissions to a role",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd.Context(), func(ctx context.Context, db *sqlite.Storage) error {
			if err := db.GrantPermissions(ctx, args[0], args[1:]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "role %s granted %v\n", args[0], args[1:])
			return nil
		})
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userPassword, "password", "", "initial password")
	userAddCmd.Flags().StringVar(&userNickname, "nickname", "", "display name")
	userAddCmd.Flags().Int64Var(&userTenant, "tenant", 0, "tenant id")
	userAddCmd.Flags().StringSliceVar(&userRoles, "roles", nil, "comma separated roles")
	userAddCmd.Flags().IntVar(&bcryptCost, "bcrypt-cost", 0, "bcrypt cost (default bcrypt.DefaultCost)")

	userCmd.AddCommand(userAddCmd, userStatusCmd, userRolesCmd)
	roleCmd.AddCommand(roleGrantCmd)
	rootCmd.AddCommand(userCmd, roleCmd)
}

// withStorage opens the configured user database for the duration of fn
func withStorage(ctx context.Context, fn func(context.Context, *sqlite.Storage) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := sqlite.New(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, db)
}
