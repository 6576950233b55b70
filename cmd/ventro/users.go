package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BuildWithWisdom/VentroPay/internal/config"
	"github.com/BuildWithWisdom/VentroPay/internal/identity"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Administer user records",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all user records",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := identityClient()
		if err != nil {
			return err
		}

		users, err := client.ListUsers(cmd.Context())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(users)
	},
}

var usersPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete ALL user records (development only)",
	Long: `Permanently deletes every row in the users table.
Use only against development and testing projects.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !purgeConfirmed {
			return fmt.Errorf("refusing to purge without --yes")
		}

		client, err := identityClient()
		if err != nil {
			return err
		}

		if err := client.DeleteAllUsers(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("All users deleted successfully.")
		return nil
	},
}

var purgeConfirmed bool

func init() {
	usersPurgeCmd.Flags().BoolVar(&purgeConfirmed, "yes", false, "confirm the purge")
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersPurgeCmd)
}

func identityClient() (*identity.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return identity.NewClient(identity.Config{
		BaseURL: cfg.Supabase.BaseURL,
		APIKey:  cfg.Supabase.APIKey,
	}, logger.Named("identity"))
}
