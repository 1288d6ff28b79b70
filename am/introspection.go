package am

import (
	"os"
	"sort"
	"strings"

	"github.com/meridian-news/meridian-ml/errors"
)

// Masked replaces secret values wherever configuration is printed.
const Masked = "********"

// ConfigSource names the layer a setting was resolved from.
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"      // /etc/meridian-ml/am.toml
	SourceUser        ConfigSource = "user"        // ~/.meridian-ml/am.toml
	SourceProject     ConfigSource = "project"     // ./am.toml
	SourceEnvironment ConfigSource = "environment" // MERIDIAN_ML_* and aliases
)

// SourceInfo is recorded per key while files are merged.
type SourceInfo struct {
	Source ConfigSource
	Path   string // file path or variable name
}

// SettingInfo is one effective setting and where it came from.
type SettingInfo struct {
	Key        string       `json:"key"`
	Value      interface{}  `json:"value"`
	Source     ConfigSource `json:"source"`
	SourcePath string       `json:"source_path,omitempty"`
}

// ConfigIntrospection backs `meridian-ml am where`.
type ConfigIntrospection struct {
	ConfigFile string        `json:"config_file"`
	Settings   []SettingInfo `json:"settings"`
}

// GetConfigIntrospection loads the configuration and reports every
// effective key, sorted, with its source. Secrets are masked.
func GetConfigIntrospection() (*ConfigIntrospection, error) {
	if _, err := Load(); err != nil {
		return nil, errors.Wrap(err, "failed to load config for introspection")
	}
	return &ConfigIntrospection{
		ConfigFile: ProjectConfigPath(),
		Settings:   collectSettings(GetViper().AllSettings(), ConfigSources),
	}, nil
}

// IsSecretKey reports whether the value of key must never be printed.
func IsSecretKey(key string) bool {
	return key == "server.auth_token" || key == "embeddings.api_key"
}

// collectSettings flattens viper's nested settings into dotted keys and
// resolves each one's source. The environment outranks every file.
func collectSettings(settings map[string]interface{}, sources map[string]SourceInfo) []SettingInfo {
	flat := make(map[string]interface{})
	flatten("", settings, flat)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]SettingInfo, 0, len(keys))
	for _, key := range keys {
		info, ok := sources[key]
		if !ok {
			info = SourceInfo{Source: SourceDefault, Path: "built-in default"}
		}
		if name, set := envVarFor(key); set {
			info = SourceInfo{Source: SourceEnvironment, Path: name}
		}

		value := flat[key]
		if IsSecretKey(key) && value != "" {
			value = Masked
		}
		out = append(out, SettingInfo{Key: key, Value: value, Source: info.Source, SourcePath: info.Path})
	}
	return out
}

func flatten(prefix string, in, out map[string]interface{}) {
	for k, v := range in {
		if prefix != "" {
			k = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			flatten(k, nested, out)
			continue
		}
		out[k] = v
	}
}

// envVarFor returns the variable that currently sets key, checking aliases
// first in the order viper does.
func envVarFor(key string) (string, bool) {
	names := append([]string(nil), envAliases[key]...)
	names = append(names, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	for _, name := range names {
		if os.Getenv(name) != "" {
			return name, true
		}
	}
	return "", false
}
