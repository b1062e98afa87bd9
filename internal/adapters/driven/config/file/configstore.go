package file

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/adwatch/adwatch/internal/core/domain"
	"github.com/adwatch/adwatch/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// Config keys. Dot-notation maps to nested TOML tables.
const (
	KeySearchCity            = "search.city"
	KeySearchNeighborhoods   = "search.neighborhoods"
	KeySearchMinRooms        = "search.min_rooms"
	KeySearchMaxRooms        = "search.max_rooms"
	KeySearchMaxPrice        = "search.max_price"
	KeySearchParking         = "search.parking"
	KeySearchShelter         = "search.shelter"
	KeySearchExcludedStreets = "search.excluded_streets"

	KeyNotifyConcurrency = "notify.concurrency"
	KeyNotifyAttempts    = "notify.attempts"
	KeyNotifyRetryDelay  = "notify.retry_delay_seconds"
	KeyNotifyRemovals    = "notify.removals"

	KeyWatchSchedule = "watch.schedule"

	KeySourceBaseURL     = "source.base_url"
	KeySourceUserAgent   = "source.user_agent"
	KeySourceRequestRate = "source.requests_per_second"

	KeyTelegramToken  = "telegram.token"
	KeyTelegramChatID = "telegram.chat_id"
)

// Environment variables that override the TOML file for secrets.
const (
	EnvTelegramToken  = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"
)

// DefaultSchedule runs the watch daemon every 30 minutes.
const DefaultSchedule = "*/30 * * * *"

// ConfigStore is a file-based implementation of driven.ConfigStore using
// TOML. Configuration is stored in a TOML file within the adwatch config
// directory.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]any
}

// NewConfigStore creates a new TOML-based config store.
// If configDir is empty, defaults to ~/.adwatch/config.toml.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".adwatch")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		filePath: filepath.Join(configDir, "config.toml"),
		data:     make(map[string]any),
	}

	if err := s.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return s, nil
}

// LoadEnv seeds the process environment from a .env file next to the
// config file and from the working directory. Missing files are fine;
// already-set variables are never overwritten.
func (s *ConfigStore) LoadEnv() {
	godotenv.Load(filepath.Join(filepath.Dir(s.filePath), ".env")) //nolint:errcheck
	godotenv.Load()                                                //nolint:errcheck
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	return val, ok
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	val, ok := s.Get(key)
	if !ok {
		return ""
	}

	str, ok := val.(string)
	if !ok {
		return ""
	}
	return str
}

// GetInt retrieves an integer configuration value.
func (s *ConfigStore) GetInt(key string) int {
	val, ok := s.Get(key)
	if !ok {
		return 0
	}

	// TOML integers are parsed as int64
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// GetFloat retrieves a float configuration value. TOML integers widen.
func (s *ConfigStore) GetFloat(key string) float64 {
	val, ok := s.Get(key)
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) bool {
	val, ok := s.Get(key)
	if !ok {
		return false
	}

	b, ok := val.(bool)
	if !ok {
		return false
	}
	return b
}

// GetStringSlice retrieves a string slice configuration value.
func (s *ConfigStore) GetStringSlice(key string) []string {
	val, ok := s.Get(key)
	if !ok {
		return nil
	}

	// TOML arrays are parsed as []any
	switch v := val.(type) {
	case []string:
		return v
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	default:
		return nil
	}
}

// Set stores a configuration value and persists immediately.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return s.save()
}

// Save persists the current configuration to disk.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes configuration to the TOML file (caller must hold lock).
func (s *ConfigStore) save() error {
	data, err := toml.Marshal(s.data)
	if err != nil {
		return err
	}

	// The file can hold the bot token, keep it private.
	return os.WriteFile(s.filePath, data, 0600)
}

// Load reads configuration from the TOML file.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file yet - that's fine, start empty
			s.data = make(map[string]any)
			return nil
		}
		return err
	}

	var loaded map[string]any
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return err
	}

	if loaded == nil {
		loaded = make(map[string]any)
	}

	// Flatten nested maps into dot-notation keys for easier access
	s.data = flattenMap(loaded, "")
	return nil
}

// flattenMap converts nested maps to dot-notation keys.
// E.g., {"a": {"b": 1}} becomes {"a.b": 1}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			for k, v := range flattenMap(nested, fullKey) {
				result[k] = v
			}
		} else {
			result[fullKey] = value
		}
	}

	return result
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Criteria assembles the search criteria from the config file.
func (s *ConfigStore) Criteria() domain.SearchCriteria {
	return domain.SearchCriteria{
		City:            s.GetString(KeySearchCity),
		Neighborhoods:   s.GetStringSlice(KeySearchNeighborhoods),
		MinRooms:        s.GetFloat(KeySearchMinRooms),
		MaxRooms:        s.GetFloat(KeySearchMaxRooms),
		MaxPrice:        s.GetInt(KeySearchMaxPrice),
		Parking:         s.GetBool(KeySearchParking),
		Shelter:         s.GetBool(KeySearchShelter),
		ExcludedStreets: s.GetStringSlice(KeySearchExcludedStreets),
	}
}

// NotifySettings holds delivery tuning from the config file.
type NotifySettings struct {
	Concurrency int
	Attempts    int
	RetryDelay  time.Duration
	Removals    bool
}

// Notify returns the delivery settings, zero for unset keys.
func (s *ConfigStore) Notify() NotifySettings {
	return NotifySettings{
		Concurrency: s.GetInt(KeyNotifyConcurrency),
		Attempts:    s.GetInt(KeyNotifyAttempts),
		RetryDelay:  time.Duration(s.GetInt(KeyNotifyRetryDelay)) * time.Second,
		Removals:    s.GetBool(KeyNotifyRemovals),
	}
}

// SourceSettings holds the feed client tuning from the config file.
type SourceSettings struct {
	BaseURL           string
	UserAgent         string
	RequestsPerSecond float64
}

// Source returns the feed client settings, zero for unset keys.
func (s *ConfigStore) Source() SourceSettings {
	return SourceSettings{
		BaseURL:           s.GetString(KeySourceBaseURL),
		UserAgent:         s.GetString(KeySourceUserAgent),
		RequestsPerSecond: s.GetFloat(KeySourceRequestRate),
	}
}

// Schedule returns the watch daemon cron expression.
func (s *ConfigStore) Schedule() string {
	if schedule := s.GetString(KeyWatchSchedule); schedule != "" {
		return schedule
	}
	return DefaultSchedule
}

// TelegramCredentials returns the bot token and chat id. Environment
// variables win over the config file so a .env deployment never leaks
// secrets into config.toml.
func (s *ConfigStore) TelegramCredentials() (token, chatID string) {
	token = os.Getenv(EnvTelegramToken)
	if token == "" {
		token = s.GetString(KeyTelegramToken)
	}
	chatID = os.Getenv(EnvTelegramChatID)
	if chatID == "" {
		chatID = s.GetString(KeyTelegramChatID)
	}
	return token, chatID
}
