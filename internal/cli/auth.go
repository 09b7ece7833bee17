package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newRegisterCmd() *cobra.Command {
	var name, user, pass string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" || pass == "" {
				return fmt.Errorf("--user and --pass are required")
			}

			req := map[string]string{
				"display_name": name,
				"username":     user,
				"password":     pass,
			}
			var result AuthResult

			if err := client.Post("/api/v1/auth/register", req, &result); err != nil {
				return err
			}

			// Save token
			if err := cfg.SaveToken(result.Token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the username)")
	cmd.Flags().StringVar(&user, "user", "", "Username, 3-20 characters (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password, at least 6 characters (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newLoginCmd() *cobra.Command {
	var user, pass string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login with existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" || pass == "" {
				return fmt.Errorf("--user and --pass are required")
			}

			req := map[string]string{
				"username": user,
				"password": pass,
			}
			var result AuthResult

			if err := client.Post("/api/v1/auth/login", req, &result); err != nil {
				return err
			}

			// Save token
			if err := cfg.SaveToken(result.Token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the logged-in profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Profile

			if err := client.Get("/api/v1/profiles/me", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newAppearanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "appearance key=value...",
		Short: "Change the stored appearance",
		Long: `Change the appearance saved on your profile. Unspecified keys keep their
current value. Keys: skin, hair, haircolor, shirt, pants, hat (-1 for none).

Live sessions keep their look until they send an appearance change themselves.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var me Profile
			if err := client.Get("/api/v1/profiles/me", &me); err != nil {
				return err
			}

			appearance, err := parseAppearance(me.Appearance, args)
			if err != nil {
				return err
			}

			var result Profile
			req := map[string]Appearance{"appearance": appearance}
			if err := client.Put("/api/v1/profiles/me/appearance", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

// parseAppearance applies key=value pairs on top of base
func parseAppearance(base Appearance, pairs []string) (Appearance, error) {
	a := base
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return a, fmt.Errorf("expected key=value, got %q", pair)
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return a, fmt.Errorf("%s: %q is not a number", key, raw)
		}
		switch strings.ToLower(key) {
		case "skin":
			a.SkinColor = value
		case "hair":
			a.HairStyle = value
		case "haircolor":
			a.HairColor = value
		case "shirt":
			a.ShirtColor = value
		case "pants":
			a.PantsColor = value
		case "hat":
			a.HatStyle = value
		default:
			return a, fmt.Errorf("unknown appearance key %q", key)
		}
	}
	return a, nil
}
