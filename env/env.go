// Package env assembles the string-keyed configuration mapping consumed
// by the payment config. It understands .env files and layers three
// sources in increasing precedence: a base mapping (usually the process
// environment), an env file, and explicit overrides.
package env

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
)

// ParseFile reads KEY=VALUE pairs from an env file. A missing file is not
// an error; it yields an empty map so the remaining layers still apply.
func ParseFile(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to parse env file %s: %w", path, err)
	}
	return values, nil
}

// FromEnviron converts the os.Environ() slice form into a map. Entries
// without an equals sign are skipped.
func FromEnviron(environ []string) map[string]string {
	values := make(map[string]string, len(environ))
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		values[key] = value
	}
	return values
}

// Build merges the three configuration layers into a single mapping.
// Overrides win over file values, which win over base values. Pass an
// empty envFile to skip file loading.
func Build(base map[string]string, envFile string, overrides map[string]string) (map[string]string, error) {
	merged := make(map[string]string, len(base)+len(overrides))
	for key, value := range base {
		merged[key] = value
	}

	if envFile != "" {
		fileValues, err := ParseFile(envFile)
		if err != nil {
			return nil, err
		}
		for key, value := range fileValues {
			merged[key] = value
		}
	}

	for key, value := range overrides {
		merged[key] = value
	}

	return merged, nil
}
