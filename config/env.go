package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultStoreDriver   = "mongo"
	defaultMongoURI      = "mongodb://localhost:27017"
	defaultMongoDatabase = "kachra"
	defaultRedisAddr     = "localhost:6379"
	defaultJWTSecret     = "change-me-in-production"
	defaultAppPort       = "8080"
	defaultGRPCPort      = "9090"
	defaultAppEnv        = "local"
	defaultGeminiModel   = "gemini-2.0-flash-001"
	defaultFalURL        = "https://fal.run/fal-ai/fast-lightning-sdxl"
	defaultKafkaTopic    = "kachra.events"
)

var (
	loadOnce sync.Once
	loadErr  error

	mu     sync.RWMutex
	values = defaultValues()
)

// Load reads config/app.json and .env once. Process environment variables
// take precedence over both files.
func Load() error {
	loadOnce.Do(func() {
		loadErr = loadFromFiles("config/app.json", ".env")
	})
	return loadErr
}

func defaultValues() map[string]string {
	return map[string]string{
		"DB_DRIVER":      defaultStoreDriver,
		"MONGO_URI":      defaultMongoURI,
		"MONGO_DATABASE": defaultMongoDatabase,
		"REDIS_ADDR":     defaultRedisAddr,
		"REDIS_PASSWORD": "",
		"JWT_SECRET":     defaultJWTSecret,
		"APP_PORT":       defaultAppPort,
		"GRPC_PORT":      defaultGRPCPort,
		"APP_ENV":        defaultAppEnv,
	}
}

// ── Application ──────────────────────────────────────────────────────────────

func AppPort() string  { _ = Load(); return get("APP_PORT", defaultAppPort) }
func GRPCPort() string { _ = Load(); return get("GRPC_PORT", defaultGRPCPort) }
func AppEnv() string   { _ = Load(); return get("APP_ENV", defaultAppEnv) }

// IsProduction reports whether APP_ENV names a production deployment.
func IsProduction() bool {
	switch strings.ToLower(AppEnv()) {
	case "production", "prod":
		return true
	}
	return false
}

// RateLimit is the number of requests one client IP may make per minute.
func RateLimit() int { return Int("RATE_LIMIT", 200) }

// ── Auth ─────────────────────────────────────────────────────────────────────

func JWTSecret() string { _ = Load(); return get("JWT_SECRET", defaultJWTSecret) }

func JWTTTL() time.Duration { return Duration("JWT_TTL", 24*time.Hour) }

// ── Document store ───────────────────────────────────────────────────────────

// StoreDriver returns "mongo" or "memory".
func StoreDriver() string {
	_ = Load()

	driver := strings.ToLower(get("DB_DRIVER", defaultStoreDriver))
	switch driver {
	case "mongo", "memory":
		return driver
	default:
		return defaultStoreDriver
	}
}

func MongoURI() string      { _ = Load(); return get("MONGO_URI", defaultMongoURI) }
func MongoDatabase() string { _ = Load(); return get("MONGO_DATABASE", defaultMongoDatabase) }

// LogToMongo enables the asynchronous MongoDB log sink.
func LogToMongo() bool { return Bool("LOG_MONGO", false) }

func StoreTimeout() time.Duration { return Duration("STORE_TIMEOUT", 5*time.Second) }
func StoreRetries() int           { return Int("STORE_RETRIES", 3) }
func StoreBackoff() time.Duration { return Duration("STORE_BACKOFF", 100*time.Millisecond) }

// ── Cache ────────────────────────────────────────────────────────────────────

func RedisAddr() string     { _ = Load(); return get("REDIS_ADDR", defaultRedisAddr) }
func RedisPassword() string { _ = Load(); return get("REDIS_PASSWORD", "") }

func CacheTTL() time.Duration { return Duration("CACHE_TTL", 30*time.Second) }

// ── Messaging ────────────────────────────────────────────────────────────────

// KafkaBrokers returns the configured broker list; empty disables publishing.
func KafkaBrokers() []string {
	_ = Load()
	raw := get("KAFKA_BROKERS", "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func KafkaTopic() string { _ = Load(); return get("KAFKA_TOPIC", defaultKafkaTopic) }

// ── AI providers ─────────────────────────────────────────────────────────────

func GeminiAPIKey() string { _ = Load(); return get("GEMINI_API_KEY", "") }
func GeminiModel() string  { _ = Load(); return get("GEMINI_MODEL", defaultGeminiModel) }
func FalKey() string       { _ = Load(); return get("FAL_KEY", "") }
func FalURL() string       { _ = Load(); return get("FAL_URL", defaultFalURL) }

// DemandWorkers bounds the goroutines scoring demand in the background.
func DemandWorkers() int { return Int("DEMAND_WORKERS", 4) }

// ── Loading ──────────────────────────────────────────────────────────────────

func loadFromFiles(configPath, envPath string) error {
	loaded := defaultValues()

	if err := mergeJSONConfig(configPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	if err := mergeDotEnv(envPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	mu.Lock()
	values = loaded
	mu.Unlock()

	return nil
}

func mergeJSONConfig(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var raw map[string]interface{}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	for key, val := range raw {
		var s string
		switch v := val.(type) {
		case string:
			s = v
		case float64, bool:
			s = fmt.Sprint(v)
		default:
			continue
		}

		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(s)
	}

	return nil
}

func mergeDotEnv(path string, out map[string]string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	env, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	for key, value := range env {
		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(value)
	}
	return nil
}

func get(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}

	mu.RLock()
	defer mu.RUnlock()

	if value := strings.TrimSpace(values[key]); value != "" {
		return value
	}

	return fallback
}

// Get reads any config key by name with an optional fallback.
// Keys from .env and app.json are available after config.Load().
func Get(key, fallback string) string {
	_ = Load()
	return get(key, fallback)
}

// Int reads key as an integer, returning fallback when unset or malformed.
func Int(key string, fallback int) int {
	n, err := strconv.Atoi(Get(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

// Bool reads key as a boolean ("true", "1", ...).
func Bool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(Get(key, ""))
	if err != nil {
		return fallback
	}
	return b
}

// Duration reads key as a Go duration ("5s", "250ms"). A bare integer is
// taken as seconds.
func Duration(key string, fallback time.Duration) time.Duration {
	raw := Get(key, "")
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}

// Set overrides a key at runtime. Intended for tests and CLI flags.
func Set(key, value string) {
	_ = Load()
	mu.Lock()
	values[strings.ToUpper(key)] = value
	mu.Unlock()
}
