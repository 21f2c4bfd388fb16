package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix         = "TRIAGE_"
	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Load builds the configuration.
//
// Precedence (highest to lowest):
//  1. Legacy env vars (SCORING_USE_LLM, OPENAI_API_KEY, GEMINI_API_KEY),
//     which only fill values the TRIAGE_* layer left unset
//  2. TRIAGE_* env vars
//  3. YAML config file
//  4. Defaults
//
// configPath may be empty, in which case ~/.config/intaketriage/config.yaml
// is read if it exists. An explicit path must exist.
//
// # Security Considerations
//
// Config files must live under ~/.config/intaketriage/, /etc/intaketriage/
// or the working directory, must not be group or world writable, and must
// be smaller than 1MB.
//
// # Environment Variable Mapping
//
// The TRIAGE_ prefix is stripped and the first underscore separates the
// section from the field:
//
//	TRIAGE_SERVER_PORT            -> server.port
//	TRIAGE_EXTRACTION_LLM_ENABLED -> extraction.llm_enabled
//	TRIAGE_CACHE_REDIS_ADDR       -> cache.redis.addr
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	explicit := configPath != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "intaketriage", "config.yaml")
	}

	content, err := readConfigFile(configPath, explicit)
	if err != nil {
		return nil, err
	}
	if content != nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyLegacyEnv(cfg, k)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// envKey maps TRIAGE_SECTION_FIELD_NAME to section.field_name. Nested
// sections are listed explicitly.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	section, field := parts[0], parts[1]

	if section == "cache" && strings.HasPrefix(field, "redis_") {
		return "cache.redis." + strings.TrimPrefix(field, "redis_")
	}
	return section + "." + field
}

// applyLegacyEnv honours the env vars older deployments set.
func applyLegacyEnv(cfg *Config, k *koanf.Koanf) {
	if v, ok := os.LookupEnv("SCORING_USE_LLM"); ok && !k.Exists("extraction.llm_enabled") {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.Extraction.LLMEnabled = b
		}
	}

	if cfg.Extraction.APIKey.IsSet() {
		return
	}
	switch cfg.Extraction.Provider {
	case "openai":
		cfg.Extraction.APIKey = Secret(os.Getenv("OPENAI_API_KEY"))
	case "gemini":
		cfg.Extraction.APIKey = Secret(os.Getenv("GEMINI_API_KEY"))
	}
}

// readConfigFile returns the file content, or nil when an implicit path
// does not exist.
func readConfigFile(path string, mustExist bool) ([]byte, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	// Open once and validate the descriptor to avoid a TOCTOU race.
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// validateConfigPath checks that path resolves inside an allowed directory.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	// Follow symlinks so a link cannot escape the allowed directories.
	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolvedPath = absPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	allowedDirs := []string{
		filepath.Join(home, ".config", "intaketriage"),
		"/etc/intaketriage",
	}
	if wd, err := os.Getwd(); err == nil {
		allowedDirs = append(allowedDirs, wd)
	}

	for _, dir := range allowedDirs {
		if within(dir, resolvedPath) {
			return nil
		}
	}
	return fmt.Errorf("config file must be in ~/.config/intaketriage/, /etc/intaketriage/ or the working directory")
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// validateConfigFileProperties checks file permissions and size.
func validateConfigFileProperties(info os.FileInfo) error {
	// Skip on Windows (different permission model)
	if runtime.GOOS != "windows" {
		if perm := info.Mode().Perm(); perm&0o022 != 0 {
			return fmt.Errorf("insecure config file permissions: %v (must not be group or world writable)", perm)
		}
	}

	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}
