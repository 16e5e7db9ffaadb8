package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/livyn-inc/cursor-to-notion/internal/index"
)

// Environment variable names.
const (
	EnvToken   = "NOTION_TOKEN"
	EnvAPIKey  = "NOTION_API_KEY"
	EnvRootURL = "NOTION_ROOT_URL"
)

// ErrAuthMissing means no usable token was found in the environment; the
// command must abort before issuing any request.
var ErrAuthMissing = errors.New("no Notion token: set NOTION_TOKEN or NOTION_API_KEY")

// LoadEnv loads .env files for a project. Order matters: godotenv never
// overrides variables that are already set, so the first definition wins.
// Search order: <project>/.c2n/.env, <project>/.env, then the .env next to
// the executable.
func LoadEnv(projectDir string) {
	candidates := []string{
		filepath.Join(projectDir, index.MetaDirName, ".env"),
		filepath.Join(projectDir, ".env"),
	}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
		}
	}
	bridgeTokenEnv()
}

// bridgeTokenEnv mirrors whichever of NOTION_TOKEN / NOTION_API_KEY is set
// into the other, so both spellings work everywhere.
func bridgeTokenEnv() {
	token := os.Getenv(EnvToken)
	apiKey := os.Getenv(EnvAPIKey)
	if token == "" && apiKey != "" {
		os.Setenv(EnvToken, apiKey)
	}
	if apiKey == "" && token != "" {
		os.Setenv(EnvAPIKey, token)
	}
}

// Token returns the authentication token, or ErrAuthMissing.
func Token() (string, error) {
	if t := os.Getenv(EnvToken); t != "" {
		return t, nil
	}
	if t := os.Getenv(EnvAPIKey); t != "" {
		return t, nil
	}
	return "", ErrAuthMissing
}
