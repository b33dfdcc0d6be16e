package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/go-envparse"
)

// LoadEnvFile reads a .env file and returns its variables as sorted
// KEY=VALUE pairs. A missing file yields no variables.
func LoadEnvFile(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening env file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	vars, err := envparse.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing env file %q: %w", path, err)
	}
	env := make([]string, 0, len(vars))
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env, nil
}
