package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/meridian-news/meridian-ml/am"
	"github.com/meridian-news/meridian-ml/display"
	"github.com/meridian-news/meridian-ml/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage meridian-ml configuration",
	Long: `am: manage meridian-ml configuration ("I am")

Configuration sources (in order of precedence):
1. Environment variables (MERIDIAN_ML_* prefix)
2. Project config (./am.toml, searched upward)
3. User config (~/.meridian-ml/am.toml)
4. System config (/etc/meridian-ml/am.toml)
5. Default values

Examples:
  meridian-ml am show                           # Show current configuration
  meridian-ml am show --format json             # Show configuration as JSON
  meridian-ml am get clustering.min_cluster_size
  meridian-ml am set server.rate_limit_per_second 50
  meridian-ml am where                          # Show where each value comes from`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the merged configuration with secrets masked",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a configuration value using dot notation (e.g., clustering.min_cluster_size)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a configuration value",
	Long: `Write a value to the project am.toml (or the user file with --user).
The previous file is kept as .back1; a running server picks the change up
through its config watcher.`,
	Args: cobra.ExactArgs(2),
	RunE: runAmSet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	RunE:  runAmWhere,
}

var (
	configFormat string
	setUser      bool
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amSetCmd.Flags().BoolVar(&setUser, "user", false, "Write ~/.meridian-ml/am.toml instead of the project file")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amSetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	red := cfg.Redacted()
	out := cmd.OutOrStdout()

	switch configFormat {
	case "json":
		return display.OutputJSON(out, red)
	case "yaml":
		data, err := yaml.Marshal(red)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Fprintf(out, "# meridian-ml configuration\n%s", data)
	case "toml":
		data, err := toml.Marshal(red)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to TOML")
		}
		fmt.Fprintf(out, "# meridian-ml configuration\n%s", data)
	default:
		return errors.Newf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}
	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !am.IsSet(key) {
		return errors.Newf("configuration key %q not found", key)
	}
	value := am.Get(key)
	if am.IsSecretKey(key) && value != "" {
		value = am.Masked
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runAmSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]
	if !am.IsSet(key) {
		return errors.WithHint(
			errors.Newf("unknown configuration key %q", key),
			"run `meridian-ml am show` to list keys")
	}

	path := am.UserConfigPath()
	if !setUser {
		if path = am.ProjectConfigPath(); path == "" {
			path = "am.toml"
		}
	}

	value, err := coerceValue(am.Get(key), raw)
	if err != nil {
		return errors.Wrapf(err, "invalid value for %s", key)
	}
	if err := am.SetValue(path, key, value); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	am.Reset()

	cfg, err := am.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		pterm.Warning.Printfln("Wrote %s = %s to %s, but the configuration is now invalid: %v", key, raw, path, err)
		return nil
	}
	pterm.Success.Printfln("%s = %s (%s)", key, raw, path)
	return nil
}

// coerceValue parses raw as the type the key currently holds, so
// `am set server.port 9000` writes an integer, not a string
func coerceValue(current interface{}, raw string) (interface{}, error) {
	switch current.(type) {
	case bool:
		b, err := strconv.ParseBool(raw)
		return b, errors.Wrapf(err, "expected a boolean, got %q", raw)
	case int, int32, int64, uint, uint32, uint64:
		n, err := strconv.ParseInt(raw, 10, 64)
		return n, errors.Wrapf(err, "expected an integer, got %q", raw)
	case float32, float64:
		f, err := strconv.ParseFloat(raw, 64)
		return f, errors.Wrapf(err, "expected a number, got %q", raw)
	case []string, []interface{}:
		if raw == "" {
			return []string{}, nil
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	default:
		return raw, nil
	}
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	intro, err := am.GetConfigIntrospection()
	if err != nil {
		return errors.Wrap(err, "failed to get config introspection")
	}

	out := cmd.OutOrStdout()
	if intro.ConfigFile != "" {
		fmt.Fprintf(out, "Project config: %s\n", intro.ConfigFile)
	} else {
		fmt.Fprintln(out, "Project config: none")
	}

	data := [][]string{{"Key", "Value", "Source", "From"}}
	for _, s := range intro.Settings {
		value := fmt.Sprintf("%v", s.Value)
		data = append(data, []string{s.Key, truncate(value, 50), string(s.Source), s.SourcePath})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(data).Render()
}
