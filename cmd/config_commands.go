package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"lid-inspector/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Работа с файлом конфигурации",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	cmd.AddCommand(newConfigSampleCommand())
	cmd.AddCommand(newConfigInitCommand())
	return cmd
}

func newConfigSampleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Вывести пример конфигурации",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), config.SampleConfig())
			return err
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var path string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Создать файл конфигурации из примера",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := path
			if target == "" {
				p, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				target = p
			}
			return writeSampleConfig(cmd, target, overwrite)
		},
	}
	cmd.Flags().StringVarP(&path, "path", "p", "", "Destination path (defaults to ~/.config/lid-inspector/config.toml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing file")
	return cmd
}

func writeSampleConfig(cmd *cobra.Command, target string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(target); err == nil {
			return fmt.Errorf("config file %s already exists (use --overwrite)", target)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", target, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(target, []byte(config.SampleConfig()), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample config to %s\n", target)
	return nil
}
