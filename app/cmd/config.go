package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lexcodex/reagent/agents"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or modify .reagent/config.yaml",
	}
	cmd.AddCommand(newConfigGetCmd(), newConfigSetCmd(), newConfigShowCmd())
	return cmd
}

// newConfigGetCmd prints a dotted key. Keys missing from the file resolve
// against the effective config, so defaults and env values show too.
func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Read a config value by dotted key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readConfigMap(cfgFile)
			if err != nil {
				return err
			}
			value, ok := getConfigValue(data, args[0])
			if !ok {
				effective, err := effectiveConfigMap(globalCfg)
				if err != nil {
					return err
				}
				if value, ok = getConfigValue(effective, args[0]); !ok {
					return fmt.Errorf("key %s not found", args[0])
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), prettyValue(value))
			return nil
		},
	}
}

// newConfigSetCmd writes a dotted key into the file; the value is typed by
// parseValue.
func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Update a config value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readConfigMap(cfgFile)
			if err != nil {
				return err
			}
			if err := setConfigValue(data, args[0], parseValue(args[1])); err != nil {
				return err
			}
			if err := writeConfigMap(cfgFile, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", args[0])
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective config with the API key masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *globalCfg
			if cfg.Model.APIKey != "" {
				cfg.Model.APIKey = maskSecret(cfg.Model.APIKey)
			}
			out, err := yaml.Marshal(&cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", cfgFile, out)
			return nil
		},
	}
}

// effectiveConfigMap flattens the loaded config back into the generic map
// shape used by dotted lookups.
func effectiveConfigMap(cfg *agents.GlobalConfig) (map[string]interface{}, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	data := map[string]interface{}{}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	if model, ok := data["model"].(map[string]interface{}); ok {
		if key, ok := model["api_key"].(string); ok && key != "" {
			model["api_key"] = maskSecret(key)
		}
	}
	return data, nil
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
