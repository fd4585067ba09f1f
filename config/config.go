package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	APIKeyEnvVar     = "OPENAI_API_KEY"
	APIKeyPathEnvVar = "OPENAI_API_KEY_FILE"
	EnvPathEnvVar    = "TRAY_TRANSLATE_ENV"

	DefaultModel    = "gpt-4o"
	DefaultBaseURL  = "https://api.openai.com/v1"
	DefaultHotkey   = "Ctrl+Alt+PrintScreen"
	DefaultDeadline = 60
)

type LoadOptions struct {
	APIKeyPathOverride string
	PromptPathOverride string
}

// Region is an optional fixed capture rectangle from CAPTURE_REGION.
// Width==0 means "not configured" and the primary display is used.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

type Config struct {
	APIKey               string
	APIKeyPath           string
	Model                string
	BaseURL              string
	Hotkey               string
	PromptPath           string
	CaptureRegion        Region
	EnableFileLogging    bool
	TranslateDeadlineSec int
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Configuration sources in priority order:
	// 1) .env in the executable's directory
	// 2) a file named by the TRAY_TRANSLATE_ENV environment variable
	envPath := resolveEnvPath()
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	deadlineSec := DefaultDeadline
	if v := os.Getenv("TRANSLATE_DEADLINE_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			deadlineSec = n
		}
	}

	region, err := parseRegion(os.Getenv("CAPTURE_REGION"))
	if err != nil {
		return nil, err
	}

	apiKeyPath := resolveAPIKeyPath(opts, dotenvValues)

	cfg := &Config{
		APIKey:               resolveAPIKey(apiKeyPath),
		APIKeyPath:           apiKeyPath,
		Model:                getEnvWithDefault("OPENAI_VISION_MODEL", DefaultModel),
		BaseURL:              strings.TrimRight(getEnvWithDefault("OPENAI_BASE_URL", DefaultBaseURL), "/"),
		Hotkey:               getEnvWithDefault("HOTKEY", DefaultHotkey),
		PromptPath:           resolvePromptPath(opts),
		CaptureRegion:        region,
		EnableFileLogging:    strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		TranslateDeadlineSec: deadlineSec,
	}

	return cfg, nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}

	execDir := filepath.Dir(execPath)
	exeEnv := filepath.Join(execDir, ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}

	if alt := os.Getenv(EnvPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

func resolveAPIKeyPath(opts LoadOptions, dotenvValues map[string]string) string {
	keyPath := ""

	if envPath := strings.TrimSpace(os.Getenv(APIKeyPathEnvVar)); envPath != "" {
		keyPath = envPath
	}

	if dotenvPath := strings.TrimSpace(dotenvValues[APIKeyPathEnvVar]); dotenvPath != "" {
		keyPath = dotenvPath
	}

	if overridePath := strings.TrimSpace(opts.APIKeyPathOverride); overridePath != "" {
		keyPath = overridePath
	}

	return keyPath
}

// resolveAPIKey prefers a key file when configured, then the environment.
func resolveAPIKey(keyPath string) string {
	if keyPath != "" {
		if data, err := os.ReadFile(keyPath); err == nil {
			if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
				return fileKey
			}
		}
	}

	return os.Getenv(APIKeyEnvVar)
}

// resolvePromptPath returns the prompt file path: explicit override first,
// then PROMPT_FILE, then prompt.txt next to the executable.
func resolvePromptPath(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.PromptPathOverride); override != "" {
		return override
	}
	if p := strings.TrimSpace(os.Getenv("PROMPT_FILE")); p != "" {
		return p
	}
	execPath, err := os.Executable()
	if err != nil {
		return "prompt.txt"
	}
	return filepath.Join(filepath.Dir(execPath), "prompt.txt")
}

// parseRegion parses "x,y,w,h". Empty input yields the zero Region.
func parseRegion(s string) (Region, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Region{}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("CAPTURE_REGION must be x,y,w,h, got %q", s)
	}

	vals := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Region{}, fmt.Errorf("CAPTURE_REGION component %d is not a number: %q", i, p)
		}
		vals[i] = n
	}

	if vals[2] <= 0 || vals[3] <= 0 {
		return Region{}, fmt.Errorf("CAPTURE_REGION needs positive width/height, got %dx%d", vals[2], vals[3])
	}

	return Region{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
