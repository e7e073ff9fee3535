/*
Package config loads runtime configuration from the environment.

A .env file in the working directory is applied first when present
(godotenv), then every value falls back to a default, so a bare
`go run ./cmd/server` works out of the box. Window times are "HH:MM" in
the workspace timezone.
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/hotdesk/seat-engine/booking"
)

// Config holds all runtime configuration values.
type Config struct {
	Port     int
	DBPath   string
	SeedPath string // optional catalog seed file, empty to skip

	Timezone *time.Location
	Windows  booking.Windows

	// Daily instant at which the expiry run fires, local to Timezone.
	ExpireAt booking.ClockTime

	JWTSecret string

	CORSOrigins []string
}

// Defaults mirror the original deployment: booking opens 08:30-09:15,
// reservations run 09:00-18:00, expiry fires at 18:00, Asia/Karachi.
const (
	defaultPort             = 8080
	defaultDBPath           = "seats.db"
	defaultTimezone         = "Asia/Karachi"
	defaultBookingOpen      = "08:30"
	defaultBookingClose     = "09:15"
	defaultReservationStart = "09:00"
	defaultReservationEnd   = "18:00"
	defaultExpireAt         = "18:00"
	defaultJWTSecret        = "dev-secret-change-me"
)

// Load reads the configuration. Invalid values are errors rather than
// silent fallbacks.
func Load() (*Config, error) {
	// Best effort: absence of a .env file is not an error.
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:      getenv("DB_PATH", defaultDBPath),
		SeedPath:    os.Getenv("SEED_PATH"),
		JWTSecret:   getenv("JWT_SECRET", defaultJWTSecret),
		CORSOrigins: []string{getenv("CORS_ORIGIN", "http://localhost:5173")},
	}

	var err error
	if cfg.Port, err = getenvInt("PORT", defaultPort); err != nil {
		return nil, err
	}

	tz := getenv("TIMEZONE", defaultTimezone)
	if cfg.Timezone, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	windows := booking.Windows{Location: cfg.Timezone}
	for _, w := range []struct {
		key, def string
		dst      *booking.ClockTime
	}{
		{"BOOKING_OPEN", defaultBookingOpen, &windows.BookingOpen},
		{"BOOKING_CLOSE", defaultBookingClose, &windows.BookingClose},
		{"RESERVATION_START", defaultReservationStart, &windows.ReservationStart},
		{"RESERVATION_END", defaultReservationEnd, &windows.ReservationEnd},
		{"EXPIRE_AT", defaultExpireAt, &cfg.ExpireAt},
	} {
		ct, err := booking.ParseClockTime(getenv(w.key, w.def))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", w.key, err)
		}
		*w.dst = ct
	}
	cfg.Windows = windows

	return cfg, nil
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q", key, v)
	}
	return n, nil
}
