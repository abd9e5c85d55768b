package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mapgame/mapgame/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage mapgame configuration",
		Long:  "Initialize a default configuration file, check it, or display the current effective configuration.",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigValidateCmd())

	return cmd
}

// ---------- config init ----------

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default " + config.FileName + " configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(path, force, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")
	cmd.Flags().StringVarP(&path, "output", "o", config.FileName, "Path of the file to write")

	return cmd
}

func runConfigInit(path string, force bool, out io.Writer) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	if err := config.WriteDefault(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(out, "Created %s\n", path)
	fmt.Fprintln(out, "Edit the file, create an admin with 'mapgame admin create', then run 'mapgame serve'.")
	return nil
}

// ---------- config show ----------

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runConfigShow(cfg, configUsed, cmd.OutOrStdout())
		},
	}
}

func runConfigShow(cfg *config.Config, path string, out io.Writer) error {
	if path != "" {
		fmt.Fprintf(out, "# Config file: %s\n", path)
	} else {
		fmt.Fprintln(out, "# Config file: (none found, using defaults and environment)")
	}
	fmt.Fprintln(out)

	// Mask credentials embedded in a postgres DSN.
	shown := *cfg
	if shown.Database.DSN != "" {
		shown.Database.DSN = "********"
	}
	data, err := shown.YAML()
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

// ---------- config validate ----------

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and report every problem",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return fmt.Errorf("configuration is invalid:\n%w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
			return nil
		},
	}
}
