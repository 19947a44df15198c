package cli

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/text2trait/t2t/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage t2t-admin configuration",
		Long:  "Initialize a default configuration file, check one, or display the current effective configuration.",
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
		Short: "Create a default t2t.yaml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}
			if err := config.WriteDefaultConfig(path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), "Edit the store section, then run 't2t-admin admin create EMAIL'.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")
	cmd.Flags().StringVarP(&path, "output", "o", "t2t.yaml", "Path of the file to write")

	return cmd
}

// ---------- config validate ----------

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Check a configuration file for errors",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := viper.ConfigFileUsed()
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no config file found; pass a path or use --config")
			}
			return runConfigValidate(cmd.OutOrStdout(), path)
		},
	}
}

func runConfigValidate(w io.Writer, path string) error {
	cfg, err := config.LoadYAMLConfig(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Auth.SkipAuth {
		fmt.Fprintln(w, "warning: auth.skip_auth is enabled; never deploy this file to production")
	}
	fmt.Fprintf(w, "%s is valid\n", path)
	return nil
}

// ---------- config show ----------

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}
}

// redactedKeys may hold database credentials.
var redactedKeys = map[string]bool{"store.dsn": true}

func runConfigShow(w io.Writer) error {
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		fmt.Fprintf(w, "Config file: %s\n", configFile)
	} else {
		fmt.Fprintln(w, "Config file: (none found, using defaults)")
	}
	fmt.Fprintln(w)

	keys := viper.AllKeys()
	sort.Strings(keys)
	for _, key := range keys {
		value := viper.Get(key)
		if redactedKeys[key] && viper.GetString(key) != "" {
			value = "********"
		}
		fmt.Fprintf(w, "  %s: %v\n", key, value)
	}
	return nil
}
