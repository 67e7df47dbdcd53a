// Package config implements the 'xrpl-probe config' command family.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/seelabs/xrpl-probe/internal/cli/helpers"
	"github.com/seelabs/xrpl-probe/internal/config"
)

// NewConfigCmd creates the config command and its subcommands.
func NewConfigCmd(g *helpers.GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage xrpl-probe configuration",
		Long: `Manage xrpl-probe configuration.

Configuration Priority:
  1. Command line flags (highest)
  2. XRPL_PROBE_* environment variables
  3. Config file (--config, $XRPL_PROBE_CONFIG or ~/.xrpl-probe/config.yaml)
  4. Built-in defaults`,
	}

	cmd.AddCommand(newShowCmd(g))
	cmd.AddCommand(newValidateCmd(g))
	cmd.AddCommand(newInitCmd(g))
	cmd.AddCommand(newSchemaCmd())

	return cmd
}

// newShowCmd creates the 'config show' command.
func newShowCmd(g *helpers.GlobalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Display the configuration after defaults, the config file and environment
variables are merged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.LoadConfig()
			if err != nil {
				return err
			}
			return runShow(cmd, cfg, format)
		},
	}

	helpers.AddFormatFlag(cmd, &format, helpers.FormatYAML, []helpers.OutputFormat{
		helpers.FormatYAML,
		helpers.FormatJSON,
	})

	return cmd
}

func runShow(cmd *cobra.Command, cfg *config.Config, format string) error {
	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}

	switch helpers.OutputFormat(format) {
	case helpers.FormatYAML:
		_, err = cmd.OutOrStdout().Write(data)
		return err
	case helpers.FormatJSON:
		// Go through the YAML form so durations keep their text encoding.
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return err
		}
		formatter, err := helpers.NewFormatter(helpers.FormatJSON)
		if err != nil {
			return err
		}
		return formatter.Format(doc, cmd.OutOrStdout())
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// newValidateCmd creates the 'config validate' command.
func newValidateCmd(g *helpers.GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long: `Load and validate the configuration, reporting every invalid field.

Checks include:
- Storage driver and path
- A process id or executable to trace
- Timeslice, table capacity and outcome band
- Filter expression syntax
- Remote write URL`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.LoadConfig()
			if err != nil {
				return err
			}
			return runValidate(cmd, cfg)
		},
	}

	return cmd
}

func runValidate(cmd *cobra.Command, cfg *config.Config) error {
	err := cfg.Validate()
	if err == nil {
		cmd.Println("✓ Configuration is valid")
		return nil
	}

	var multi *config.MultiValidationError
	if !errors.As(err, &multi) {
		return err
	}
	for _, e := range multi.Errors {
		cmd.Printf("✗ %s: %s\n", e.Field, e.Message)
	}
	return fmt.Errorf("%d invalid field(s)", len(multi.Errors))
}

// newInitCmd creates the 'config init' command.
func newInitCmd(g *helpers.GlobalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader(g.ConfigPath)
			if _, err := os.Stat(loader.Path()); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", loader.Path())
			}
			if err := loader.Save(config.DefaultConfig()); err != nil {
				return err
			}
			cmd.Printf("Wrote %s\n", loader.Path())
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

// newSchemaCmd creates the 'config schema' command.
func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the config file",
		Long: `Print a JSON schema describing config.yaml, for editor completion and
validation of config files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := helpers.NewFormatter(helpers.FormatJSON)
			if err != nil {
				return err
			}
			return formatter.Format(Schema(), cmd.OutOrStdout())
		},
	}
}

// Schema reflects the config file schema from config.Config, keyed by the
// YAML field names.
func Schema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		FieldNameTag:   "yaml",
		DoNotReference: true,
	}
	s := r.Reflect(&config.Config{})
	s.Title = "xrpl-probe configuration"
	return s
}
