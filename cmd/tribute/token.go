package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xxxsen/tribute/internal/config"
	"github.com/xxxsen/tribute/internal/pkg/jwt"
)

func newTokenCmd() *cobra.Command {
	var configPath, userID, email string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "issue an access token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("config", configPath); err != nil {
				return err
			}
			if err := requireFlag("user", userID); err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			token, err := jwt.GenerateToken(userID, email, []byte(cfg.JWTSecret), time.Duration(cfg.JWTTTLHours)*time.Hour)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&email, "email", "", "user email")
	return cmd
}
