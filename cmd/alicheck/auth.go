package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"alicheck/pkg/auth"
)

var authProfile string

// authCmd groups credential management subcommands
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored RapidAPI credentials",
	Long: `Store, inspect and remove the RapidAPI key used for marketplace lookups.

Keys are kept in the system keychain when one is available, falling back to
an encrypted file under the user config directory. The RAPIDAPI_KEY
environment variable always works as a read-only override.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a RapidAPI key",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := auth.NewManager()
		if err != nil {
			return fmt.Errorf("failed to initialize credential manager: %w", err)
		}

		key, err := auth.PromptAPIKey()
		if err != nil {
			return err
		}
		if key == "" {
			return fmt.Errorf("no key entered")
		}

		cred := &auth.Credential{
			Profile: authProfile,
			APIKey:  key,
			APIHost: os.Getenv("RAPIDAPI_HOST"),
		}
		if err := manager.Store(cred); err != nil {
			return err
		}

		fmt.Printf("Credential stored for profile %q\n", authProfile)
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove a stored RapidAPI key",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := auth.NewManager()
		if err != nil {
			return fmt.Errorf("failed to initialize credential manager: %w", err)
		}

		if err := manager.Delete(authProfile); err != nil {
			return err
		}

		fmt.Printf("Credential removed for profile %q\n", authProfile)
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := auth.NewManager()
		if err != nil {
			return fmt.Errorf("failed to initialize credential manager: %w", err)
		}

		creds, err := manager.List()
		if err != nil {
			return err
		}
		if len(creds) == 0 && os.Getenv("RAPIDAPI_KEY") == "" {
			fmt.Println("No credentials stored. Run 'alicheck auth login' to add one.")
			return nil
		}

		for _, cred := range creds {
			masked := auth.Sanitize(cred)
			fmt.Printf("%-12s %s  (updated %s)\n",
				masked.Profile, masked.APIKey, masked.LastModified.Format("2006-01-02 15:04"))
		}
		if os.Getenv("RAPIDAPI_KEY") != "" {
			fmt.Println("environment  RAPIDAPI_KEY is set and takes effect for runs")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authStatusCmd)

	authCmd.PersistentFlags().StringVar(&authProfile, "profile", auth.DefaultProfile, "credential profile name")
}
