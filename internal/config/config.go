package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
)

// EnvConfigPath names the config file when no --config flag is given.
const EnvConfigPath = "DAILYTODO_CONFIG"

var ErrNoTelegramToken = errors.New("TELEGRAM_TOKEN is required")

// Config keeps runtime settings for the bot and the CLI.
type Config struct {
	TelegramToken        string
	DatabaseURL          string
	ReportInterval       time.Duration
	Location             *time.Location
	ReachabilityURL      string
	ReachabilityInterval time.Duration
	Notifications        bool
	// LocalUser is the identity the CLI acts as without --user.
	LocalUser string
}

type fileConfig struct {
	TelegramToken        string `toml:"telegram_token"`
	DatabaseURL          string `toml:"database_url"`
	ReportIntervalHours  *int   `toml:"report_interval_hours"`
	Timezone             string `toml:"timezone"`
	ReachabilityURL      string `toml:"reachability_url"`
	ReachabilityInterval string `toml:"reachability_interval"`
	Notifications        *bool  `toml:"notifications"`
	User                 string `toml:"user"`
}

func defaults() Config {
	user := strings.TrimSpace(os.Getenv("USER"))
	if user == "" {
		user = "me"
	}
	return Config{
		DatabaseURL:          "daily_todo.db",
		ReportInterval:       5 * time.Hour,
		Location:             time.Local,
		ReachabilityURL:      "https://api.telegram.org",
		ReachabilityInterval: 5 * time.Second,
		Notifications:        true,
		LocalUser:            user,
	}
}

// Path picks the config file: the flag value, else $DAILYTODO_CONFIG.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	return strings.TrimSpace(os.Getenv(EnvConfigPath))
}

// Load reads the optional TOML file at path and then applies environment
// variables on top.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return cfg, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// RequireTelegram checks what the bot needs before it starts.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return ErrNoTelegramToken
	}
	return nil
}

func applyFile(cfg *Config, path string) error {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	if fc.TelegramToken != "" {
		cfg.TelegramToken = strings.TrimSpace(fc.TelegramToken)
	}
	if fc.DatabaseURL != "" {
		cfg.DatabaseURL = fc.DatabaseURL
	}
	if fc.ReportIntervalHours != nil {
		if *fc.ReportIntervalHours < 0 {
			return fmt.Errorf("config %s: report_interval_hours must not be negative", path)
		}
		cfg.ReportInterval = time.Duration(*fc.ReportIntervalHours) * time.Hour
	}
	if fc.Timezone != "" {
		loc, err := time.LoadLocation(fc.Timezone)
		if err != nil {
			return fmt.Errorf("config %s: timezone: %w", path, err)
		}
		cfg.Location = loc
	}
	if fc.ReachabilityURL != "" {
		cfg.ReachabilityURL = fc.ReachabilityURL
	}
	if fc.ReachabilityInterval != "" {
		d, err := parsePositiveDuration(fc.ReachabilityInterval)
		if err != nil {
			return fmt.Errorf("config %s: reachability_interval: %w", path, err)
		}
		cfg.ReachabilityInterval = d
	}
	if fc.Notifications != nil {
		cfg.Notifications = *fc.Notifications
	}
	if fc.User != "" {
		cfg.LocalUser = fc.User
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := env("TELEGRAM_TOKEN"); v != "" {
		cfg.TelegramToken = v
	}
	if v := env("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := env("REPORT_INTERVAL_HOURS"); v != "" {
		d, err := parseInterval(v)
		if err != nil {
			return err
		}
		cfg.ReportInterval = d
	}
	if v := env("TIMEZONE"); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return fmt.Errorf("TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}
	if v := env("REACHABILITY_URL"); v != "" {
		cfg.ReachabilityURL = v
	}
	if v := env("REACHABILITY_INTERVAL"); v != "" {
		d, err := parsePositiveDuration(v)
		if err != nil {
			return fmt.Errorf("REACHABILITY_INTERVAL: %w", err)
		}
		cfg.ReachabilityInterval = d
	}
	if v := env("NOTIFICATIONS"); v != "" {
		on, err := parseSwitch(v)
		if err != nil {
			return fmt.Errorf("NOTIFICATIONS: %w", err)
		}
		cfg.Notifications = on
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// parseInterval reads a number of hours. Zero turns periodic reports off.
func parseInterval(raw string) (time.Duration, error) {
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("REPORT_INTERVAL_HOURS: invalid value %q", raw)
	}
	return hours, nil
}

func parsePositiveDuration(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", raw)
	}
	return d, nil
}

func parseSwitch(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(raw)
}
