package configuration

import (
	"os"

	"newsroom/infrastructure/logger"

	"github.com/joho/godotenv"
)

// LoadEnvFromFile loads KEY=VALUE pairs from the given files. Existing env vars are not overridden
// and missing files are skipped.
func LoadEnvFromFile(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			logger.GetLogger().WithField("file", p).Info("env file not found in working directory")
			continue
		}
		if err := godotenv.Load(p); err != nil {
			logger.GetLogger().WithField("file", p).WithField("error", err).Warn("failed to load env file")
			continue
		}
		logger.GetLogger().WithField("file", p).Info("Detected env file in working directory")
	}
}
