package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. Booking policy values that the source
// system looked up ambiently (grace windows, horizon, booking caps) are
// explicit fields here and are passed down to the services that need them.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	MaxBookingDays    int // default cap on booking length in days
	CheckinEarlyMin   int // minutes before start when check-in opens
	CheckinLateMin    int // minutes after start when check-in closes
	ReleaseGraceMin   int // minutes after start before a no-show is released
	ExpandHorizonDays int // rolling horizon for recurrence expansion
	SwapTTLHours      int // hours before a pending swap request expires
	WaitlistTTLHours  int // hours before a pending waitlist entry expires (0 = never)
}

// Load reads configuration values from environment variables and returns
// a Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message. Policy values have
// sensible defaults so a minimal .env is enough for local development.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		MaxBookingDays:    intDefault("MAX_BOOKING_DAYS", 14),
		CheckinEarlyMin:   intDefault("CHECKIN_EARLY_MIN", 15),
		CheckinLateMin:    intDefault("CHECKIN_LATE_MIN", 60),
		ReleaseGraceMin:   intDefault("RELEASE_GRACE_MIN", 15),
		ExpandHorizonDays: intDefault("EXPAND_HORIZON_DAYS", 60),
		SwapTTLHours:      intDefault("SWAP_TTL_HOURS", 24),
		WaitlistTTLHours:  intDefault("WAITLIST_TTL_HOURS", 0),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// intDefault reads an optional integer variable, falling back to def when
// the variable is unset. An unparseable value is fatal, the same as mustInt.
func intDefault(key string, def int) int {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
