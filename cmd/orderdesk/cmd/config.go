package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/orderdesk/internal/config"
	deskerrors "github.com/Aman-CERP/orderdesk/internal/errors"
	"github.com/Aman-CERP/orderdesk/internal/output"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage user configuration",
		Long: `Manage the orderdesk configuration.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/orderdesk/config.yaml)
  3. Project config (.orderdesk.yaml in the working directory)
  4. Environment variables (ORDERDESK_*)`,
		Example: `  # Create user config with the defaults
  orderdesk config init

  # Show effective configuration
  orderdesk config show

  # Print user config file path
  orderdesk config path`,
		// Config commands must work while the configuration is broken.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		PersistentPostRun: func(*cobra.Command, []string) {},
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd(a))
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	})

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create user configuration file",
		Long: `Create the user configuration file with the default settings.

With --force an existing file is backed up and rewritten: your settings
are kept and options it does not mention are added with their defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Back up and rewrite an existing configuration")
	return cmd
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())
	configPath := config.GetUserConfigPath()

	if !config.UserConfigExists() {
		if err := config.NewConfig().WriteYAML(configPath); err != nil {
			return deskerrors.ConfigError("failed to create user configuration", err)
		}
		out.Success("Created user configuration")
		out.Statusf("📁", "Location: %s", configPath)
		out.Status("💡", "Run 'orderdesk config show' to verify")
		return nil
	}

	if !force {
		out.Warning("User configuration already exists")
		out.Statusf("📁", "Location: %s", configPath)
		out.Status("💡", "Use --force to rewrite it with new defaults (preserves your settings)")
		return nil
	}

	cfg, err := readConfigFile(configPath)
	if err != nil {
		return err
	}
	backupPath, err := config.BackupUserConfig()
	if err != nil {
		return deskerrors.ConfigError("failed to back up user configuration", err)
	}
	if err := cfg.WriteYAML(configPath); err != nil {
		return deskerrors.ConfigError("failed to rewrite user configuration", err)
	}

	out.Success("Configuration upgraded")
	out.Statusf("📁", "Location: %s", configPath)
	out.Statusf("💾", "Backup: %s", backupPath)
	return nil
}

// readConfigFile overlays one file onto the defaults.
func readConfigFile(path string) (*config.Config, error) {
	cfg := config.NewConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, deskerrors.ConfigError("failed to read "+path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, deskerrors.ConfigError("failed to parse "+path, err).
			WithSuggestion("Fix the YAML or run 'orderdesk config init --force'")
	}
	return cfg, nil
}

func newConfigShowCmd(a *app) *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Example: `  orderdesk config show
  orderdesk config show --json
  orderdesk config show --source user`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())

			var cfg *config.Config
			var sourceDesc string
			switch source {
			case "merged":
				cwd, err := os.Getwd()
				if err != nil {
					cwd = "."
				}
				cfg, err = config.Load(cwd)
				if err != nil {
					return deskerrors.ConfigError("failed to load configuration", err)
				}
				if a.dataDir != "" {
					cfg.DataDir = a.dataDir
				}
				sourceDesc = "merged (defaults + user + project + env)"

			case "user", "project":
				path := config.GetUserConfigPath()
				if source == "project" {
					cwd, _ := os.Getwd()
					path = filepath.Join(cwd, config.ProjectFileName)
				}
				if _, err := os.Stat(path); err != nil {
					out.Warningf("No %s configuration file found", source)
					out.Statusf("📁", "Expected at: %s", path)
					return nil
				}
				var err error
				if cfg, err = readConfigFile(path); err != nil {
					return err
				}
				sourceDesc = fmt.Sprintf("%s (%s)", source, path)

			case "defaults":
				cfg = config.NewConfig()
				sourceDesc = "defaults (hardcoded)"

			default:
				return deskerrors.ValidationError(fmt.Sprintf("invalid source: %s", source), nil).
					WithSuggestion("Use merged, user, project or defaults")
			}

			if jsonOutput {
				return out.JSON(cfg)
			}
			out.Statusf("📋", "Configuration source: %s", sourceDesc)
			out.Newline()
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, project, defaults")

	return cmd
}
