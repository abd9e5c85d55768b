package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check whether a mapgame server is up and ready",
		Long:  "Query the readiness probe of a running server and print the result of each check.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				host := cfg.Server.Host
				if host == "" || host == "0.0.0.0" {
					host = "127.0.0.1"
				}
				addr = fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)
			}
			client := &http.Client{Timeout: 2 * time.Second}
			return runStatus(client, addr, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Server base URL (default: from config)")

	return cmd
}

func runStatus(client *http.Client, addr string, out io.Writer) error {
	readyURL := addr + "/readyz"
	resp, err := client.Get(readyURL)
	if err != nil {
		return fmt.Errorf("server at %s is not responding: %w", addr, err)
	}
	defer resp.Body.Close()

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("unexpected response from %s (%d): %w", readyURL, resp.StatusCode, err)
	}

	fmt.Fprintf(out, "Server:  %s\n", addr)
	fmt.Fprintf(out, "Status:  %s (%d)\n", body.Status, resp.StatusCode)
	for name, result := range body.Checks {
		fmt.Fprintf(out, "  %-10s %s\n", name+":", result)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server is not ready")
	}
	return nil
}
