package main

import (
	"fmt"
	"os"

	"github.com/car-storefront-api/internal/client"
	"github.com/car-storefront-api/internal/config"
	"github.com/car-storefront-api/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	backendURL string
	token      string
	verbose    bool

	cfg     config.ClientConfig
	log     zerolog.Logger
	backend *client.Client
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dealerctl",
	Short: "Operator CLI for the car storefront backend",
	Long: `dealerctl talks to the storefront backend over its REST API.

It previews and imports CSV inventories, lists sellers, watches the
site settings and writes the import template.

BACKEND_URL and DEALER_TOKEN are read from the environment or a .env file;
the flags override them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.LoadClient()
		if backendURL != "" {
			cfg.BackendURL = backendURL
		}
		if token != "" {
			cfg.Token = token
		}
		if verbose {
			cfg.Log.Level = "debug"
		}

		log = logger.New(logger.Options{
			Level:   cfg.Log.Level,
			Format:  "pretty",
			Service: "dealerctl",
			Out:     os.Stderr,
		})
		backend = client.New(cfg, log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "backend base URL (default $BACKEND_URL)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "admin bearer token (default $DEALER_TOKEN)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	loginCmd.Flags().String("username", "admin", "admin username")
	loginCmd.Flags().String("password", "", "admin password")
	_ = loginCmd.MarkFlagRequired("password")

	importCmd.Flags().String("seller", "", "seller ID the cars are assigned to")
	importCmd.Flags().Bool("dry-run", false, "only print the preview")

	settingsCmd.Flags().Duration("watch", 0, "refresh interval; keeps running until interrupted")

	templateCmd.Flags().StringP("output", "o", "", "write the template to this file instead of stdout")

	rootCmd.AddCommand(loginCmd, sellersCmd, importCmd, settingsCmd, templateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
