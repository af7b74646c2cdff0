package config

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/queued/errors"
	"github.com/grovetools/queued/pkg/paths"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// Format identifies a configuration file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// configNames are searched, in order, in each directory.
var configNames = []string{
	"queued.yml",
	"queued.yaml",
	"queued.toml",
	".queued.yml",
	".queued.yaml",
}

// overrideNames are merged over the project file when present beside it.
var overrideNames = []string{
	"queued.override.yml",
	"queued.override.yaml",
	"queued.override.toml",
}

// FormatOf returns the format implied by path's extension.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads, validates and returns a single configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	cfg, err := LoadFromBytes(data, FormatOf(path))
	if err != nil {
		return nil, err
	}
	cfg.Sources = []string{path}
	return cfg, nil
}

// LoadFromBytes parses, validates and defaults configuration data.
func LoadFromBytes(data []byte, format Format) (*Config, error) {
	cfg, err := parse(data, format)
	if err != nil {
		return nil, err
	}
	return finalize(cfg)
}

// LoadDefault loads configuration layered from the current directory.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}
	return LoadFrom(cwd)
}

// LoadFrom loads configuration with hierarchical merging starting from startDir.
func LoadFrom(startDir string) (*Config, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return LoadFromWithLogger(startDir, logger)
}

// LoadFromWithLogger loads configuration with hierarchical merging:
// 1. Global config (<config dir>/queued.yml) - base layer
// 2. Project config (queued.yml found from startDir upward) - overrides global
// 3. Local override (queued.override.yml beside the project file) - overrides all
//
// At least one of the global or project files must exist.
func LoadFromWithLogger(startDir string, logger *logrus.Logger) (*Config, error) {
	var layers []*Config
	var sources []string

	if globalPath := globalConfigPath(); globalPath != "" {
		logger.WithField("path", globalPath).Debug("Loading global configuration")
		cfg, err := parseFile(globalPath)
		if err != nil {
			logger.WithError(err).Warn("Failed to parse global configuration, continuing without it")
		} else {
			layers = append(layers, cfg)
			sources = append(sources, globalPath)
		}
	}

	projectPath, err := FindConfigFile(startDir)
	if err == nil && !contains(sources, projectPath) {
		logger.WithField("path", projectPath).Debug("Loading project configuration")
		cfg, err := parseFile(projectPath)
		if err != nil {
			return nil, err
		}
		layers = append(layers, cfg)
		sources = append(sources, projectPath)

		for _, name := range overrideNames {
			overridePath := filepath.Join(filepath.Dir(projectPath), name)
			if _, statErr := os.Stat(overridePath); statErr != nil {
				continue
			}
			logger.WithField("path", overridePath).Debug("Loading local override configuration")
			override, err := parseFile(overridePath)
			if err != nil {
				logger.WithError(err).Warn("Failed to parse override file, skipping")
				continue
			}
			layers = append(layers, override)
			sources = append(sources, overridePath)
		}
	}

	if len(layers) == 0 {
		return nil, errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
	}

	final := layers[0]
	for _, layer := range layers[1:] {
		final = mergeConfigs(final, layer)
	}

	cfg, err := finalize(final)
	if err != nil {
		return nil, err
	}
	cfg.Sources = sources
	logger.WithField("sources", sources).Debug("Configuration loaded and validated successfully")
	return cfg, nil
}

// FindConfigFile searches from startDir up to the filesystem root for a
// queued configuration file.
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

func finalize(cfg *Config) (*Config, error) {
	cfg.SetDefaults()

	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create validator")
	}
	if err := validator.Validate(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "schema validation failed")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}
	cfg, err := parse(data, FormatOf(path))
	if err != nil {
		if qe, ok := err.(*errors.QueuedError); ok {
			return nil, qe.WithDetail("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

// parse decodes data without defaults or validation.
func parse(data []byte, format Format) (*Config, error) {
	expanded := []byte(expandEnvVars(string(data)))

	var cfg Config
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(expanded, &cfg); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
		}
		extensions, err := tomlExtensions(expanded)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
		}
		cfg.Extensions = extensions
	default:
		if len(bytes.TrimSpace(expanded)) == 0 {
			return &cfg, nil
		}
		if err := yaml.Unmarshal(expanded, &cfg); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
		}
	}
	return &cfg, nil
}

// knownKeys are the top-level keys decoded into Config fields.
var knownKeys = map[string]bool{
	"provider":      true,
	"sync":          true,
	"filters":       true,
	"pause_reasons": true,
	"status_labels": true,
	"server":        true,
	"redis":         true,
}

// tomlExtensions collects the top-level TOML tables that are not Config
// fields, mirroring the YAML inline map.
func tomlExtensions(data []byte) (map[string]interface{}, error) {
	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	var extensions map[string]interface{}
	for key, value := range raw {
		if knownKeys[key] {
			continue
		}
		if extensions == nil {
			extensions = make(map[string]interface{})
		}
		extensions[key] = value
	}
	return extensions, nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// globalConfigPath returns the first existing global configuration file.
func globalConfigPath() string {
	dir := paths.ConfigDir()
	if dir == "" {
		return ""
	}
	for _, name := range []string{"queued.yml", "queued.yaml", "queued.toml"} {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
