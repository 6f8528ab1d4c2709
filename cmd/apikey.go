package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"mesaflow/internal/config"
	"mesaflow/internal/db"
)

func newAPIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage widget API keys",
	}
	cmd.AddCommand(newAPIKeyCreateCmd())
	return cmd
}

func newAPIKeyCreateCmd() *cobra.Command {
	var restaurantID, name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a widget API key and print it once",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg := config.Load()

			mysql, err := db.OpenMySQL(cfg.MySQL)
			if err != nil {
				return err
			}
			defer mysql.Close()

			raw := make([]byte, 24)
			if _, err := rand.Read(raw); err != nil {
				return err
			}
			secret := hex.EncodeToString(raw)

			hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
			if err != nil {
				return err
			}

			keyID := uuid.NewString()
			_, err = mysql.ExecContext(cmd.Context(), `
				INSERT INTO widget_api_keys (id, restaurant_id, name, secret_hash, active)
				VALUES (?, ?, ?, ?, 1)
			`, keyID, restaurantID, name, string(hash))
			if err != nil {
				return err
			}

			// The secret is not stored; this is the only time it is shown.
			fmt.Printf("%s.%s\n", keyID, secret)
			return nil
		},
	}

	cmd.Flags().StringVar(&restaurantID, "restaurant", "", "restaurant id")
	cmd.Flags().StringVar(&name, "name", "widget", "key label")
	cmd.MarkFlagRequired("restaurant")
	return cmd
}
