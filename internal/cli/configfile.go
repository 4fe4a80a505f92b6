package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// applyConfigFile sets every flag named in the YAML file at path that was not given on the
// command line. Keys are flag names; lists are joined with commas. Keys that name no flag of the
// running command are ignored so one file can serve every subcommand.
func applyConfigFile(fs *pflag.FlagSet, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	for name, raw := range values {
		f := fs.Lookup(name)
		if f == nil || f.Changed {
			continue
		}
		value, err := flagValue(raw)
		if err != nil {
			return fmt.Errorf("config file %s: %s: %w", path, name, err)
		}
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("config file %s: invalid value for %s: %w", path, name, err)
		}
	}
	return nil
}

func flagValue(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			s, err := flagValue(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	case map[string]any:
		return "", fmt.Errorf("nested values are not supported")
	default:
		return fmt.Sprint(v), nil
	}
}
