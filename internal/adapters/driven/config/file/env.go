package file

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/kairoscope/internal/logger"
)

// LoadDotEnv loads KEY=value pairs from the given .env files into the process
// environment. Variables already set are not overridden and missing files are
// skipped. Returns the files that were loaded.
func LoadDotEnv(paths ...string) ([]string, error) {
	var loaded []string
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, err
		}
		logger.Debug("loaded environment from %s", path)
		loaded = append(loaded, path)
	}
	return loaded, nil
}
