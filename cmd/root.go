// Package cmd wires the cdpreq command line.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cdp-tools/cdpreq/pkg/client"
	"github.com/cdp-tools/cdpreq/pkg/config"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var v *viper.Viper

var rootCmd = &cobra.Command{
	Use:   "cdpreq",
	Short: "Make one authenticated request to the CDP API",
	Long: `cdpreq builds a short-lived ES256-signed bearer token from a configured
API key and uses it to make exactly one authenticated HTTPS request.

Configuration comes from the environment (KEY_ID, KEY_SECRET, REQUEST_METHOD,
REQUEST_PATH, REQUEST_HOST); flags override the corresponding variable.`,
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRequest,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Non-200 responses were already written to stderr by the formatter.
		var statusErr *client.StatusError
		if !errors.As(err, &statusErr) {
			fmt.Fprintf(os.Stderr, "cdpreq: %v (see --help)\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	v = config.InitViper()
	config.BindFlags(rootCmd, v)
}
