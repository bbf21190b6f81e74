package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/facility-reservations/internal/timeutil"
)

// Config captures environment driven configuration values for the
// reservations service.
type Config struct {
	HTTPPort  int
	SQLiteDSN string

	// RedisAddr enables the shared availability report cache when non-empty.
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	ReportCacheTTL time.Duration

	StorageTimezone string
	DisplayTimezone string

	// DefaultOpenStart and DefaultOpenEnd are the institution fallback
	// operating hours as 24-hour HHMM clocks, applied when a location has no
	// weekly hours configured.
	DefaultOpenStart int
	DefaultOpenEnd   int

	// ReservationLimit caps a user's active reservations; zero disables the cap.
	ReservationLimit int

	ScheduleCacheTTL time.Duration
}

// Load parses configuration values from the current process environment.
//
// Every variable is optional; the loader applies defaults and reports the
// names of variables whose values could not be parsed.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:         8080,
		SQLiteDSN:        "file:reservations.db?_foreign_keys=on",
		ReportCacheTTL:   time.Minute,
		StorageTimezone:  "UTC",
		DisplayTimezone:  "America/New_York",
		DefaultOpenStart: 900,
		DefaultOpenEnd:   2100,
		ReservationLimit: 3,
		ScheduleCacheTTL: 30 * time.Second,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("RESERVATIONS_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "RESERVATIONS_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("RESERVATIONS_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("RESERVATIONS_REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("RESERVATIONS_REDIS_PASSWORD")
	if dbValue := strings.TrimSpace(os.Getenv("RESERVATIONS_REDIS_DB")); dbValue != "" {
		db, err := strconv.Atoi(dbValue)
		if err != nil || db < 0 {
			invalid = append(invalid, "RESERVATIONS_REDIS_DB")
		} else {
			cfg.RedisDB = db
		}
	}

	if ttlValue := strings.TrimSpace(os.Getenv("RESERVATIONS_REPORT_CACHE_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "RESERVATIONS_REPORT_CACHE_TTL")
		} else {
			cfg.ReportCacheTTL = ttl
		}
	}

	if zone := strings.TrimSpace(os.Getenv("RESERVATIONS_STORAGE_TIMEZONE")); zone != "" {
		if _, err := timeutil.LoadZone(zone); err != nil {
			invalid = append(invalid, "RESERVATIONS_STORAGE_TIMEZONE")
		} else {
			cfg.StorageTimezone = zone
		}
	}

	if zone := strings.TrimSpace(os.Getenv("RESERVATIONS_DISPLAY_TIMEZONE")); zone != "" {
		if _, err := timeutil.LoadZone(zone); err != nil {
			invalid = append(invalid, "RESERVATIONS_DISPLAY_TIMEZONE")
		} else {
			cfg.DisplayTimezone = zone
		}
	}

	openStart, startOK := parseClockEnv("RESERVATIONS_DEFAULT_OPEN_START", &invalid)
	openEnd, endOK := parseClockEnv("RESERVATIONS_DEFAULT_OPEN_END", &invalid)
	if startOK {
		cfg.DefaultOpenStart = openStart
	}
	if endOK {
		cfg.DefaultOpenEnd = openEnd
	}
	if cfg.DefaultOpenStart >= cfg.DefaultOpenEnd {
		invalid = append(invalid, "RESERVATIONS_DEFAULT_OPEN_START")
	}

	if limitValue := strings.TrimSpace(os.Getenv("RESERVATIONS_USER_LIMIT")); limitValue != "" {
		limit, err := strconv.Atoi(limitValue)
		if err != nil || limit < 0 {
			invalid = append(invalid, "RESERVATIONS_USER_LIMIT")
		} else {
			cfg.ReservationLimit = limit
		}
	}

	if ttlValue := strings.TrimSpace(os.Getenv("RESERVATIONS_SCHEDULE_CACHE_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "RESERVATIONS_SCHEDULE_CACHE_TTL")
		} else {
			cfg.ScheduleCacheTTL = ttl
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// parseClockEnv reads an HHMM clock from the environment. The bool result is
// false when the variable is unset, so callers keep their default.
func parseClockEnv(name string, invalid *[]string) (int, bool) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return 0, false
	}

	raw, err := strconv.Atoi(value)
	if err != nil {
		*invalid = append(*invalid, name)
		return 0, false
	}
	if _, err := timeutil.ParseClock(raw); err != nil {
		*invalid = append(*invalid, name)
		return 0, false
	}
	return raw, true
}
