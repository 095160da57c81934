package env

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	envPrefix  = "MCLAUNCHER_"
	configFile = "launcher.yaml"
)

// Load reads .env, launcher.yaml and MCLAUNCHER_ overrides from root on top of
// Defaults, then validates the result.  Missing files are not an error.
func Load(root string) (*Config, error) {
	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, configFile)
	if _, err := os.Stat(yamlPath); err == nil {
		if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
			zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
			return nil, fmt.Errorf("failed to load %s: %w", yamlPath, err)
		}
		zap.S().Debugw("config yaml loaded", "file", yamlPath)
	}

	// MCLAUNCHER_UPDATE__DEFAULT_URL → update.default_url
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	zap.S().Infow("config loaded",
		"root", root,
		"data_dir", cfg.Paths.DataDir,
		"update_url", cfg.Update.DefaultURL,
	)
	return &cfg, nil
}
