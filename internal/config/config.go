// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/samber/lo"

	apperrors "github.com/Corphon/PsychoPedia/internal/errors"
	"github.com/Corphon/PsychoPedia/internal/models"
	"github.com/Corphon/PsychoPedia/internal/render"
	"github.com/Corphon/PsychoPedia/internal/utils"
)

// MaxPaletteSize bounds the colors a reader can pick from.
const MaxPaletteSize = 12

// DefaultPalette is the highlight palette of a fresh install.
var DefaultPalette = []string{
	render.DefaultHighlightColor, // yellow
	"#a5d6a7",                    // green
	"#90caf9",                    // blue
	"#f48fb1",                    // pink
	"#ffcc80",                    // orange
}

// Singleton of the runtime configuration.
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
)

// AppConfig is Config plus the settings editable at runtime.
type AppConfig struct {
	Port             string `json:"port"`
	DataDir          string `json:"data_dir"`
	ContentDir       string `json:"content_dir"`
	StaticDir        string `json:"static_dir"`
	LogDir           string `json:"log_dir"`
	LogLevel         string `json:"log_level"`
	LogPretty        bool   `json:"log_pretty"`
	DebugMode        bool   `json:"debug_mode"`
	DefaultLocale    string `json:"default_locale"`
	MetricsEnabled   bool   `json:"metrics_enabled"`
	MaxSearchResults int    `json:"max_search_results"`
	WriteRateLimit   int    `json:"write_rate_limit"`

	// Highlight palette
	Palette      []string `json:"palette"`
	DefaultColor string   `json:"default_color"`
}

// Config is the environment-derived configuration.
type Config struct {
	Port             string
	DataDir          string
	ContentDir       string
	StaticDir        string
	LogDir           string
	LogLevel         string
	LogPretty        bool
	DebugMode        bool
	DefaultLocale    string
	MetricsEnabled   bool
	MaxSearchResults int
	WriteRateLimit   int // highlight writes per minute and client, 0 disables
}

// Load reads the configuration from the environment, after an optional .env file.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := &Config{
		Port:             getEnv("PORT", "8080"),
		DataDir:          getEnvPath("DATA_DIR", "data"),
		ContentDir:       getEnvPath("CONTENT_DIR", "content"),
		StaticDir:        getEnvPath("STATIC_DIR", "static"),
		LogDir:           getEnvPath("LOG_DIR", "logs"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogPretty:        getEnvBool("LOG_PRETTY", false),
		DebugMode:        getEnvBool("DEBUG_MODE", false),
		DefaultLocale:    getEnv("DEFAULT_LOCALE", models.LocaleEnglish),
		MetricsEnabled:   getEnvBool("METRICS_ENABLED", true),
		MaxSearchResults: getEnvInt("SEARCH_MAX_RESULTS", 20),
		WriteRateLimit:   getEnvInt("WRITE_RATE_LIMIT", 120),
	}

	if !models.IsSupportedLocale(config.DefaultLocale) {
		return nil, fmt.Errorf("unsupported DEFAULT_LOCALE %q (want one of %s)",
			config.DefaultLocale, strings.Join(models.SupportedLocales, ", "))
	}
	if config.MaxSearchResults <= 0 {
		config.MaxSearchResults = 20
	}

	return config, nil
}

// getEnv returns the variable or defaultValue when unset.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath returns a directory path and makes sure it exists.
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			utils.GetLogger().Warn("failed to create directory", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
		}
	}

	return path
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		utils.GetLogger().Warn("ignoring non-numeric environment value", map[string]interface{}{
			"key":   key,
			"value": value,
		})
		return defaultValue
	}
	return n
}

func fromBase(base *Config) *AppConfig {
	return &AppConfig{
		Port:             base.Port,
		DataDir:          base.DataDir,
		ContentDir:       base.ContentDir,
		StaticDir:        base.StaticDir,
		LogDir:           base.LogDir,
		LogLevel:         base.LogLevel,
		LogPretty:        base.LogPretty,
		DebugMode:        base.DebugMode,
		DefaultLocale:    base.DefaultLocale,
		MetricsEnabled:   base.MetricsEnabled,
		MaxSearchResults: base.MaxSearchResults,
		WriteRateLimit:   base.WriteRateLimit,
		Palette:          slices.Clone(DefaultPalette),
		DefaultColor:     DefaultPalette[0],
	}
}

// InitConfig loads the environment and merges the palette saved in
// dataDir/config.json. Environment values always win for the base fields.
func InitConfig(dataDir string) error {
	baseConfig, err := Load()
	if err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	configFile = filepath.Join(dataDir, "config.json")
	currentConfig = fromBase(baseConfig)

	if data, err := os.ReadFile(configFile); err == nil {
		var saved AppConfig
		if err := json.Unmarshal(data, &saved); err != nil {
			utils.GetLogger().Warn("ignoring unreadable config file", map[string]interface{}{
				"file":  configFile,
				"error": err.Error(),
			})
		} else if palette, color, err := validatePalette(saved.Palette, saved.DefaultColor); err == nil {
			currentConfig.Palette = palette
			currentConfig.DefaultColor = color
		}
	}

	return saveLocked()
}

// GetCurrentConfig returns a copy of the current configuration.
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		baseConfig, err := Load()
		if err != nil {
			baseConfig = &Config{Port: "8080", DataDir: "data", ContentDir: "content", DefaultLocale: models.LocaleEnglish, MaxSearchResults: 20}
		}
		return fromBase(baseConfig)
	}

	configCopy := *currentConfig
	configCopy.Palette = slices.Clone(currentConfig.Palette)
	return &configCopy
}

// DefaultColor is a shortcut for the current default highlight color.
func DefaultColor() string {
	return GetCurrentConfig().DefaultColor
}

// UpdatePalette replaces the palette. An empty defaultColor picks the first entry.
func UpdatePalette(palette []string, defaultColor string) (*AppConfig, error) {
	palette, defaultColor, err := validatePalette(palette, defaultColor)
	if err != nil {
		return nil, err
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return nil, fmt.Errorf("config not initialized")
	}

	currentConfig.Palette = palette
	currentConfig.DefaultColor = defaultColor

	if err := saveLocked(); err != nil {
		return nil, err
	}
	configCopy := *currentConfig
	configCopy.Palette = slices.Clone(palette)
	return &configCopy, nil
}

func validatePalette(palette []string, defaultColor string) ([]string, string, error) {
	palette = lo.Uniq(lo.Map(palette, func(c string, _ int) string {
		return strings.ToLower(strings.TrimSpace(c))
	}))
	palette = lo.Compact(palette)

	if len(palette) == 0 {
		return nil, "", apperrors.NewValidationError("palette must contain at least one color", nil)
	}
	if len(palette) > MaxPaletteSize {
		return nil, "", apperrors.NewValidationError(fmt.Sprintf("palette holds at most %d colors", MaxPaletteSize), nil)
	}
	for _, c := range palette {
		if !render.IsSafeColor(c) {
			return nil, "", apperrors.NewValidationError("invalid palette color: "+c, nil)
		}
	}

	defaultColor = strings.ToLower(strings.TrimSpace(defaultColor))
	if defaultColor == "" {
		defaultColor = palette[0]
	}
	if !slices.Contains(palette, defaultColor) {
		return nil, "", apperrors.NewValidationError("default color must be part of the palette", nil)
	}
	return palette, defaultColor, nil
}

// SaveConfig writes the current configuration to disk.
func SaveConfig() error {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return saveLocked()
}

func saveLocked() error {
	if currentConfig == nil {
		return fmt.Errorf("no config to save")
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(currentConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp := configFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Rename(tmp, configFile)
}

// PaletteSettings exposes the palette of the global configuration to the API.
type PaletteSettings struct{}

func (PaletteSettings) Palette() ([]string, string) {
	cfg := GetCurrentConfig()
	return cfg.Palette, cfg.DefaultColor
}

func (PaletteSettings) UpdatePalette(palette []string, defaultColor string) ([]string, string, error) {
	cfg, err := UpdatePalette(palette, defaultColor)
	if err != nil {
		return nil, "", err
	}
	return cfg.Palette, cfg.DefaultColor, nil
}
