package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cdp-tools/cdpreq/pkg/client"
	"github.com/cdp-tools/cdpreq/pkg/config"
	"github.com/cdp-tools/cdpreq/pkg/keys"
	"github.com/cdp-tools/cdpreq/pkg/logger"
	"github.com/cdp-tools/cdpreq/pkg/token"
)

// requestScheme is overridden by tests to point at a plain-HTTP stub server.
var requestScheme = "https"

// runRequest drives the pipeline: configure, decode key, build token, sign,
// assemble, dispatch, format. Strictly linear; any failure aborts the rest.
func runRequest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	log := logger.New(logger.ComponentCLI, cfg.Verbose)

	key, err := keys.Decode(cfg.KeySecret)
	if err != nil {
		return err
	}

	log.Component(logger.ComponentToken).Debug("building bearer token", "kid", cfg.KeyID, "host", cfg.Host)
	bearer, err := token.NewBuilder().Token(key, cfg.KeyID, cfg.Method, cfg.Host, cfg.Path)
	if err != nil {
		return err
	}

	c := client.New(cfg.Timeout(), "cdpreq/"+version, log.Component(logger.ComponentHTTP))
	url := requestScheme + "://" + cfg.Host + cfg.Path
	ex, err := c.Do(cmd.Context(), cfg.Method, url, bearer, cfg.Data)
	if err != nil {
		return err
	}

	return formatResponse(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, ex)
}

// formatResponse prints the exchange. A 200 goes pretty-printed to stdout
// (or to the --output file); anything else goes to stderr as the status line
// followed by the raw body.
func formatResponse(stdout, stderr io.Writer, cfg *config.Config, ex *client.Exchange) error {
	if ex.StatusCode != 200 {
		fmt.Fprintf(stderr, "%s\n%s\n", ex.Status, ex.Body)
		return &client.StatusError{
			StatusCode: ex.StatusCode,
			Status:     ex.Status,
			Body:       ex.Body,
		}
	}

	if cfg.Output != "" {
		if err := os.WriteFile(cfg.Output, ex.Body, 0600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return nil
	}

	if ex.JSON != nil {
		pretty, err := json.MarshalIndent(ex.JSON, "", "  ")
		if err == nil {
			fmt.Fprintf(stdout, "%s\n", pretty)
			return nil
		}
	}
	fmt.Fprintf(stdout, "%s\n", ex.Body)
	return nil
}
