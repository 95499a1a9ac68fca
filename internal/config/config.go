package config

import (
	"os"
	"strconv"
)

type Config struct {
	Env         string
	HTTPPort    string
	StoreDriver string // "file" or "bolt"
	StorePath   string
	AuditPath   string
	RateRPS     int
}

func Load() Config {
	return Config{
		Env:         get("APP_ENV", "dev"),
		HTTPPort:    get("HTTP_PORT", "8080"),
		StoreDriver: get("STORE_DRIVER", "file"),
		StorePath:   get("STORE_PATH", "db.json"),
		AuditPath:   get("AUDIT_PATH", "audit.log"),
		RateRPS:     getInt("RATE_RPS", 100),
	}
}

func get(key, def string) string { v := os.Getenv(key); if v == "" { return def }; return v }

func getInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return def
}
