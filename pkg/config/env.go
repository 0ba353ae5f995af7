package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"
)

// envVarPattern matches ${VAR}, ${VAR:-default}, and bare $VAR references.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// ExpandEnvVars substitutes environment variable references in s.
// ${VAR:-default} falls back to default when VAR is unset or empty;
// ${VAR} and $VAR expand to the empty string when unset.
func ExpandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		name := groups[1]
		if name == "" {
			name = groups[3]
		}
		if val := os.Getenv(name); val != "" {
			return val
		}
		return groups[2]
	})
}

// LoadDotEnv loads environment variables from the first .env file found,
// searching the given paths and then the working directory. Already-set
// variables are never overridden. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	candidates := append([]string{}, paths...)
	candidates = append(candidates, ".env")

	for _, p := range candidates {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", filepath.Clean(p), err)
		}
		return nil
	}
	return nil
}
