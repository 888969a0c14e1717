// Package config loads the deployment-time configuration for an imsd
// server from its environment.
package config

import (
	"os"
	"strings"
	"time"
)

// Config carries everything cmd/imsd needs to wire a server instance.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// Admins is the set of ranger handles granted the imsAdmin
	// authorization regardless of what the directory backend reports.
	Admins map[string]struct{}

	// JWTSigningKey signs and validates access tokens.
	JWTSigningKey string

	// TokenLifetime bounds how long an issued access token remains
	// valid before the client must re-authenticate.
	TokenLifetime time.Duration

	// MasterKey, if set, is a break-glass password accepted for any
	// ranger handle, bypassing the directory backend's verification.
	MasterKey string

	// DatabaseURL is the postgres connection string for the store.
	DatabaseURL string

	// DirectoryBackend selects which internal/directory implementation
	// to construct: "yamlfile" or "sqlfile".
	DirectoryBackend string

	// DirectoryPath is the YAML roster path when DirectoryBackend is
	// "yamlfile".
	DirectoryPath string

	// RosterDatabaseURL is the connection string for the external
	// personnel roster when DirectoryBackend is "sqlfile". The roster
	// lives in a separate database from the IMS store.
	RosterDatabaseURL string

	// RedisURL, if set, backs the token revocation list with Redis so
	// a logout on one replica is visible to all.
	RedisURL string

	// KafkaBrokers, if non-empty, enables the store-write audit trail.
	KafkaBrokers []string

	// AuditTopic overrides the audit trail's default topic name.
	AuditTopic string

	// PersonnelCacheInterval bounds how stale the in-process personnel
	// cache may grow before the next request re-queries the backend.
	PersonnelCacheInterval time.Duration

	// Deployment is a free-form label surfaced on the ping endpoint and
	// attached to log lines, e.g. "staging" or "2023-training".
	Deployment string

	// EventTypesSeed is the incident-type catalog to provision on boot,
	// on top of the always-present system types. Creation is
	// idempotent, so re-seeding on every start is harmless.
	EventTypesSeed []string
}

// FromEnv builds a Config from environment variables, applying the same
// defaults a developer running imsd locally would expect.
func FromEnv() Config {
	addr := os.Getenv("IMS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("IMS_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	tokenLifetime := 12 * time.Hour
	if raw := os.Getenv("IMS_TOKEN_LIFETIME"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			tokenLifetime = d
		}
	}

	directoryBackend := os.Getenv("IMS_DIRECTORY_BACKEND")
	if directoryBackend == "" {
		directoryBackend = "yamlfile"
	}

	directoryPath := os.Getenv("IMS_DIRECTORY_PATH")
	if directoryPath == "" {
		directoryPath = "directory.yaml"
	}

	deployment := os.Getenv("IMS_DEPLOYMENT")

	personnelCacheInterval := 5 * time.Minute
	if raw := os.Getenv("IMS_PERSONNEL_CACHE_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			personnelCacheInterval = d
		}
	}

	admins := make(map[string]struct{})
	for _, handle := range splitAndTrim(os.Getenv("IMS_ADMINS")) {
		admins[handle] = struct{}{}
	}

	return Config{
		Addr:             addr,
		Admins:           admins,
		JWTSigningKey:    jwtSigningKey,
		TokenLifetime:    tokenLifetime,
		MasterKey:        os.Getenv("IMS_MASTER_KEY"),
		DatabaseURL:      os.Getenv("IMS_DATABASE_URL"),
		DirectoryBackend: directoryBackend,
		DirectoryPath:    directoryPath,

		RosterDatabaseURL:      os.Getenv("IMS_ROSTER_DATABASE_URL"),
		RedisURL:               os.Getenv("IMS_REDIS_URL"),
		KafkaBrokers:           splitAndTrim(os.Getenv("IMS_KAFKA_BROKERS")),
		AuditTopic:             os.Getenv("IMS_AUDIT_TOPIC"),
		PersonnelCacheInterval: personnelCacheInterval,

		Deployment:     deployment,
		EventTypesSeed: splitAndTrim(os.Getenv("IMS_EVENT_TYPES_SEED")),
	}
}

// IsAdmin reports whether handle is configured as a standing admin.
func (c Config) IsAdmin(handle string) bool {
	_, ok := c.Admins[handle]
	return ok
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
