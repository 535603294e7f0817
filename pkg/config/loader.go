package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is read by Load when no files are given.
const DefaultEnvFile = ".env"

// Load merges the given .env files (default ".env") into the process
// environment and parses it into v.
func Load[T any](v *T, envFiles ...string) error {
	if v == nil {
		return ErrNilPointer
	}
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}

	for _, f := range envFiles {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		// godotenv.Load never overrides variables that are already set.
		if err := godotenv.Load(f); err != nil {
			return errors.Join(ErrLoadingEnvFile, fmt.Errorf("%s: %w", f, err))
		}
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad works like Load but panics on failure. Use it for configuration the
// process cannot start without.
func MustLoad[T any](v *T, envFiles ...string) {
	if err := Load(v, envFiles...); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}
