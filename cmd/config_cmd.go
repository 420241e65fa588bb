package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const (
	configFileMode = 0o600
	configDirMode  = 0o700
)

var errConfigExists = errors.New("config file already exists")

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and initialize the CLI configuration",
	}

	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write ~/.incident/config.toml with the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := defaultConfigPath()
			if err != nil {
				return err
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%w: %s (use --force to overwrite)", errConfigExists, path)
			}

			s, err := loadSettings(newConfig(path), path)
			if err != nil {
				return err
			}

			data, err := marshalConfig(s.file())
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(path), configDirMode); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := os.WriteFile(path, data, configFileMode); err != nil {
				return fmt.Errorf("write config: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := defaultConfigPath()
			if err != nil {
				return err
			}

			s, err := loadSettings(newConfig(path), path)
			if err != nil {
				return err
			}

			file := s.file()
			if file.Session.Redis.Password != "" {
				file.Session.Redis.Password = "********"
			}

			data, err := marshalConfig(file)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "# %s\n", s.configPath); err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
}
