package config // package config loads application configuration from environment variables

import (
	"log" // log is used to report configuration errors and halt execution
	"os"  // os provides access to environment variables
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations and costs.
// Signing and encryption keys are supplied externally at process start; the
// service never generates or persists its own keys.
type Config struct {
	Env             string // application environment (e.g. "dev", "prod")
	Port            string // HTTP port to listen on
	DBUser          string // database username
	DBPass          string // database password (optional)
	DBHost          string // database host address
	DBPort          string // database port number
	DBName          string // database name
	PublicBaseURL   string // base URL used when building links sent by email
	JWTSecret       string // secret used to sign access and refresh JWTs
	EmailEncKey     string // AES-256-GCM key material for email column encryption
	EmailHashKey    string // HMAC key for the deterministic email lookup hash
	TOTPIssuer      string // issuer label shown in authenticator apps
	AccessTTLMin    int    // access token time-to-live in minutes
	RefreshTTLDays  int    // refresh token TTL in days (default sessions)
	RememberTTLDays int    // refresh token TTL in days when "remember" is set
	BcryptCost      int    // bcrypt cost for password hashing
}

// IsProd reports whether the service runs with the production security
// posture (Secure cookies, sanitized error detail).
func (c Config) IsProd() bool { return c.Env == "prod" }

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Token lifetimes and
// the bcrypt cost have sensible defaults and may be overridden per
// environment.
func Load() Config {
	return Config{
		Env:             must("APP_ENV"),       // environment (dev/test/prod)
		Port:            must("APP_PORT"),      // port to bind the HTTP server
		DBUser:          must("DB_USER"),       // database user
		DBPass:          os.Getenv("DB_PASS"),  // database password (empty allowed)
		DBHost:          must("DB_HOST"),       // database host
		DBPort:          must("DB_PORT"),       // database port
		DBName:          must("DB_NAME"),       // database name
		PublicBaseURL:   envStr("PUBLIC_BASE_URL", "http://localhost:8080"),
		JWTSecret:       must("JWT_SECRET"),    // secret used for signing JWTs
		EmailEncKey:     must("EMAIL_ENC_KEY"), // email encryption key
		EmailHashKey:    must("EMAIL_HASH_KEY"), // email lookup-hash key
		TOTPIssuer:      envStr("TOTP_ISSUER", "NatalPlan"),
		AccessTTLMin:    envInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays:  envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		RememberTTLDays: envInt("REMEMBER_TOKEN_TTL_DAYS", 30),
		BcryptCost:      envInt("BCRYPT_COST", 12),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
