package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const (
	defaultMongoURI      = "mongodb://localhost:27017"
	defaultMongoDatabase = "farm2home"
	defaultRedisAddr     = "localhost:6379"
	defaultAppPort       = "5000"
	defaultAppEnv        = "local"
	defaultQueueDriver   = "memory"
	defaultImageDisk     = "inline"
)

var (
	loadOnce sync.Once
	loadErr  error

	mu     sync.RWMutex
	values = defaultValues()
)

// Load merges config/app.json, config/app.yaml, .env and the process
// environment over the built-in defaults. Later sources win.
func Load() error {
	loadOnce.Do(func() {
		loadErr = loadFromFiles("config/app.json", "config/app.yaml", ".env")
	})
	return loadErr
}

func defaultValues() map[string]string {
	return map[string]string{
		"APP_ENV":             defaultAppEnv,
		"APP_PORT":            defaultAppPort,
		"MONGO_URI":           defaultMongoURI,
		"MONGO_DATABASE":      defaultMongoDatabase,
		"MONGO_TRANSACTIONS":  "false",
		"REDIS_ADDR":          defaultRedisAddr,
		"REDIS_PASSWORD":      "",
		"QUEUE_DRIVER":        defaultQueueDriver,
		"QUEUE_WORKERS":       "2",
		"QUEUE_MAX_RETRY":     "3",
		"BCRYPT_COST":         "10",
		"CORS_ORIGINS":        "*",
		"MAX_BODY_BYTES":      "10485760",
		"LOG_TO_MONGO":        "false",
		"LOG_COLLECTION":      "logs",
		"IMAGE_DISK":          defaultImageDisk,
		"STORAGE_LOCAL_ROOT":  "storage",
		"STORAGE_URL":         "http://localhost:5000/storage",
		"RECOVERY_GRACE":      "1m",
		"RECOVERY_SWEEP":      "true",
		"RECOVERY_INTERVAL":   "5m",
		"CACHE_DRIVER":        "memory",
		"ANALYTICS_CACHE_TTL": "0s",
	}
}

func AppEnv() string {
	_ = Load()
	return get("APP_ENV", defaultAppEnv)
}

func IsProduction() bool {
	switch AppEnv() {
	case "production", "prod":
		return true
	}
	return false
}

func AppPort() string {
	_ = Load()
	return get("APP_PORT", defaultAppPort)
}

// ── Mongo ────────────────────────────────────────────────────────────────────

func MongoURI() string {
	_ = Load()
	return get("MONGO_URI", defaultMongoURI)
}

func MongoDatabase() string {
	_ = Load()
	return get("MONGO_DATABASE", defaultMongoDatabase)
}

// MongoTransactions reports whether order writes should run inside
// multi-document transactions. Requires a replica set.
func MongoTransactions() bool { return Bool("MONGO_TRANSACTIONS", false) }

// ── Redis / queue ────────────────────────────────────────────────────────────

func RedisAddr() string {
	_ = Load()
	return get("REDIS_ADDR", defaultRedisAddr)
}

func RedisPassword() string {
	_ = Load()
	return get("REDIS_PASSWORD", "")
}

func QueueDriver() string {
	_ = Load()
	driver := strings.ToLower(get("QUEUE_DRIVER", defaultQueueDriver))
	switch driver {
	case "memory", "redis":
		return driver
	default:
		return defaultQueueDriver
	}
}

func QueueWorkers() int  { return Int("QUEUE_WORKERS", 2) }
func QueueMaxRetry() int { return Int("QUEUE_MAX_RETRY", 3) }

// ── HTTP / security ──────────────────────────────────────────────────────────

func BcryptCost() int { return Int("BCRYPT_COST", 10) }

func CORSOrigins() []string {
	_ = Load()
	var out []string
	for _, o := range strings.Split(get("CORS_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func MaxBodyBytes() int64 {
	n := Int("MAX_BODY_BYTES", 10<<20)
	if n <= 0 {
		return 10 << 20
	}
	return int64(n)
}

// ── Logging ──────────────────────────────────────────────────────────────────

func LogToMongo() bool { return Bool("LOG_TO_MONGO", false) }

func LogCollection() string {
	_ = Load()
	return get("LOG_COLLECTION", "logs")
}

// ── Storage ──────────────────────────────────────────────────────────────────

// ImageDisk selects where product images sent as data URLs end up:
// "inline" keeps them on the product document, "local" and "s3" offload them.
func ImageDisk() string {
	_ = Load()
	disk := strings.ToLower(get("IMAGE_DISK", defaultImageDisk))
	switch disk {
	case "inline", "local", "s3":
		return disk
	default:
		return defaultImageDisk
	}
}

func StorageLocalRoot() string {
	_ = Load()
	return get("STORAGE_LOCAL_ROOT", "storage")
}

func StorageURL() string {
	_ = Load()
	return get("STORAGE_URL", "http://localhost:5000/storage")
}

func StorageS3Bucket() string   { _ = Load(); return get("S3_BUCKET", "") }
func StorageS3Region() string   { _ = Load(); return get("S3_REGION", "us-east-1") }
func StorageS3Key() string      { _ = Load(); return get("S3_KEY", "") }
func StorageS3Secret() string   { _ = Load(); return get("S3_SECRET", "") }
func StorageS3Endpoint() string { _ = Load(); return get("S3_ENDPOINT", "") }
func StorageS3URL() string      { _ = Load(); return get("S3_URL", "") }

// ── Ledger ───────────────────────────────────────────────────────────────────

// RecoveryGrace is how old a pending stock adjustment must be before the
// recovery sweep treats it as abandoned.
func RecoveryGrace() time.Duration { return Duration("RECOVERY_GRACE", time.Minute) }

// RecoverySweep enables the periodic recovery run while serving.
func RecoverySweep() bool { return Bool("RECOVERY_SWEEP", true) }

func RecoveryInterval() time.Duration { return Duration("RECOVERY_INTERVAL", 5*time.Minute) }

// ── Cache ────────────────────────────────────────────────────────────────────

func CacheDriver() string {
	_ = Load()
	if strings.ToLower(get("CACHE_DRIVER", "memory")) == "redis" {
		return "redis"
	}
	return "memory"
}

// AnalyticsCacheTTL is how long a farmer's dashboard report is reused.
// Zero turns the cache off.
func AnalyticsCacheTTL() time.Duration {
	_ = Load()
	d, err := cast.ToDurationE(get("ANALYTICS_CACHE_TTL", "0s"))
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// ── Loading ──────────────────────────────────────────────────────────────────

func loadFromFiles(jsonPath, yamlPath, envPath string) error {
	loaded := defaultValues()

	if err := mergeJSONConfig(jsonPath, loaded); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := mergeYAMLConfig(yamlPath, loaded); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := mergeDotEnv(envPath, loaded); err != nil && !os.IsNotExist(err) {
		return err
	}
	mergeEnviron(loaded)

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
	mergeRaw(raw, out)
	return nil
}

func mergeYAMLConfig(path string, out map[string]string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	mergeRaw(raw, out)
	return nil
}

// mergeRaw accepts scalar values of any type so `APP_PORT: 5000` in YAML
// works the same as `"APP_PORT": "5000"` in JSON.
func mergeRaw(raw map[string]interface{}, out map[string]string) {
	for key, val := range raw {
		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		s, err := cast.ToStringE(val)
		if err != nil {
			continue
		}
		out[k] = strings.TrimSpace(s)
	}
}

func mergeDotEnv(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}

		key := strings.ToUpper(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}
		out[key] = value
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	return nil
}

// mergeEnviron lets real environment variables override file values for
// every known key.
func mergeEnviron(out map[string]string) {
	for key := range defaultValues() {
		if v, ok := os.LookupEnv(key); ok {
			out[key] = strings.TrimSpace(v)
		}
	}
	for _, key := range []string{"S3_BUCKET", "S3_REGION", "S3_KEY", "S3_SECRET", "S3_ENDPOINT", "S3_URL"} {
		if v, ok := os.LookupEnv(key); ok {
			out[key] = strings.TrimSpace(v)
		}
	}
}

func get(key, fallback string) string {
	mu.RLock()
	defer mu.RUnlock()

	if value := strings.TrimSpace(values[key]); value != "" {
		return value
	}

	return fallback
}

// Get reads any config key by name with an optional fallback.
func Get(key, fallback string) string {
	_ = Load()
	return get(key, fallback)
}

// Int reads key as an integer, returning fallback when unset or malformed.
func Int(key string, fallback int) int {
	_ = Load()
	n, err := cast.ToIntE(get(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

// Bool reads key as a boolean ("true", "1", "false", "0", ...).
func Bool(key string, fallback bool) bool {
	_ = Load()
	b, err := cast.ToBoolE(get(key, ""))
	if err != nil {
		return fallback
	}
	return b
}

// Duration reads key as a time.Duration ("30s", "5m").
func Duration(key string, fallback time.Duration) time.Duration {
	_ = Load()
	raw := get(key, "")
	if raw == "" {
		return fallback
	}
	d, err := cast.ToDurationE(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Set overrides a key at runtime. Intended for tests and CLI flags.
func Set(key, value string) {
	_ = Load()
	mu.Lock()
	defer mu.Unlock()
	values[strings.ToUpper(key)] = value
}
