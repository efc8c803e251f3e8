package config

import (
	"os"
	"strconv"
	"time"
)

// LimiterRule defines one named rate-limit class: a point budget per window
// and a block duration applied once the budget is exhausted.  The block may
// exceed the window for high-risk endpoints.
type LimiterRule struct {
	Name   string
	Points int
	Window time.Duration
	Block  time.Duration
}

// RateLimitConfig carries the rules for the three limiter classes plus
// store-level settings shared by all of them.
type RateLimitConfig struct {
	Enabled      bool
	Prefix       string
	StoreTimeout time.Duration // per-call budget for the shared store
	Global       LimiterRule   // broad low-cost limiter for all traffic
	Auth         LimiterRule   // authentication-sensitive endpoints
	Strict       LimiterRule   // highest-risk operations (2FA, password reset)
}

func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:      envBool("RATE_LIMIT_ENABLED", true),
		Prefix:       envStr("RATE_LIMIT_PREFIX", "rl"),
		StoreTimeout: envDur("RATE_LIMIT_STORE_TIMEOUT", 500*time.Millisecond),
		Global: LimiterRule{
			Name:   "global",
			Points: envInt("RATE_LIMIT_GLOBAL_POINTS", 100),
			Window: envDur("RATE_LIMIT_GLOBAL_WINDOW", time.Minute),
			Block:  envDur("RATE_LIMIT_GLOBAL_BLOCK", time.Minute),
		},
		Auth: LimiterRule{
			Name:   "auth",
			Points: envInt("RATE_LIMIT_AUTH_POINTS", 10),
			Window: envDur("RATE_LIMIT_AUTH_WINDOW", time.Minute),
			Block:  envDur("RATE_LIMIT_AUTH_BLOCK", 5*time.Minute),
		},
		Strict: LimiterRule{
			Name:   "strict",
			Points: envInt("RATE_LIMIT_STRICT_POINTS", 5),
			Window: envDur("RATE_LIMIT_STRICT_WINDOW", time.Minute),
			Block:  envDur("RATE_LIMIT_STRICT_BLOCK", 15*time.Minute),
		},
	}
	for _, r := range []*LimiterRule{&cfg.Global, &cfg.Auth, &cfg.Strict} {
		if r.Points < 1 {
			r.Points = 1
		}
		if r.Window <= 0 {
			r.Window = time.Minute
		}
		if r.Block < r.Window {
			r.Block = r.Window
		}
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 500 * time.Millisecond
	}
	return cfg
}

// SecurityConfig holds brute-force and recovery tunables.  The defaults match
// the original product behavior; they are configuration, not invariants.
type SecurityConfig struct {
	TwoFAMaxFailures int           // failed 2FA attempts per (account, IP) before cooldown
	TwoFAWindow      time.Duration // trailing window for counting failures
	TOTPSkewSteps    uint          // accepted TOTP steps either side of now
	BackupCodeCount  int           // backup codes issued per batch
	ResetTokenTTL    time.Duration // password-reset token lifetime
}

func LoadSecurityConfig() SecurityConfig {
	cfg := SecurityConfig{
		TwoFAMaxFailures: envInt("TWOFA_MAX_FAILURES", 5),
		TwoFAWindow:      envDur("TWOFA_FAILURE_WINDOW", 15*time.Minute),
		TOTPSkewSteps:    uint(envInt("TOTP_SKEW_STEPS", 1)),
		BackupCodeCount:  envInt("BACKUP_CODE_COUNT", 10),
		ResetTokenTTL:    envDur("RESET_TOKEN_TTL", time.Hour),
	}
	if cfg.TwoFAMaxFailures < 1 {
		cfg.TwoFAMaxFailures = 1
	}
	if cfg.TwoFAWindow <= 0 {
		cfg.TwoFAWindow = 15 * time.Minute
	}
	if cfg.BackupCodeCount < 1 {
		cfg.BackupCodeCount = 10
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	return cfg
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(os.Getenv(k)); err == nil && dur > 0 {
		return dur
	}
	return d
}
