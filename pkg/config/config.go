package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App    AppConfig
	Remote RemoteConfig
	Cache  CacheConfig
	Sync   SyncConfig
	HTTP   HTTPConfig
	JWT    JWTConfig
	Kafka  KafkaConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// RemoteConfig servicio de inventario/facturación que es la fuente de verdad.
type RemoteConfig struct {
	BaseURL string
	Timeout time.Duration
	Token   string // credencial inicial opcional (Bearer)
}

// CacheConfig backend y vigencias de las cachés de lectura.
type CacheConfig struct {
	Backend       string // memory | redis
	LedgerTTL     time.Duration
	LookupTTL     time.Duration
	CatalogTTL    time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Namespace     string // prefijo de claves en Redis
}

// UsesRedis indica si las cachés se comparten en Redis.
func (c CacheConfig) UsesRedis() bool { return strings.EqualFold(c.Backend, "redis") }

// SyncConfig parámetros de búsqueda diferida y filtros por fecha.
type SyncConfig struct {
	Quiet    time.Duration // silencio antes de disparar una búsqueda
	PageSize int
	TimeZone string // zona para fechas sin zona y filtros YYYY-MM-DD; vacío = local
}

// Location zona horaria configurada; time.Local si no hay.
func (c SyncConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("config: zona horaria %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JWTConfig configuración de JWT de la API local.
type JWTConfig struct {
	Secret string
	Issuer string
}

// KafkaConfig consumidor opcional de movimientos; sin brokers queda apagado.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Enabled indica si hay brokers configurados.
func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, REMOTE_BASE_URL, JWT_SECRET, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo de configuración (.env o config.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "inventario-sync"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		Remote: RemoteConfig{
			BaseURL: strings.TrimRight(getString(v, "REMOTE_BASE_URL", ""), "/"),
			Timeout: getDuration(v, "REMOTE_TIMEOUT", 15*time.Second),
			Token:   getString(v, "REMOTE_TOKEN", ""),
		},
		Cache: CacheConfig{
			Backend:       getString(v, "CACHE_BACKEND", "memory"),
			LedgerTTL:     getDuration(v, "CACHE_LEDGER_TTL", 60*time.Second),
			LookupTTL:     getDuration(v, "CACHE_LOOKUP_TTL", 5*time.Minute),
			CatalogTTL:    getDuration(v, "CACHE_CATALOG_TTL", 60*time.Second),
			RedisAddr:     getString(v, "REDIS_ADDR", "localhost:6379"),
			RedisPassword: getString(v, "REDIS_PASSWORD", ""),
			RedisDB:       getInt(v, "REDIS_DB", 0),
			Namespace:     getString(v, "CACHE_NAMESPACE", "inventario-sync"),
		},
		Sync: SyncConfig{
			Quiet:    getDuration(v, "SYNC_DEBOUNCE", 300*time.Millisecond),
			PageSize: getInt(v, "SYNC_PAGE_SIZE", 20),
			TimeZone: getString(v, "SYNC_TIME_ZONE", ""),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		JWT: JWTConfig{
			Secret: getString(v, "JWT_SECRET", ""),
			Issuer: getString(v, "JWT_ISSUER", "inventario-sync"),
		},
		Kafka: KafkaConfig{
			Brokers: getStrings(v, "KAFKA_BROKERS"),
			Topic:   getString(v, "KAFKA_TOPIC", "stock.movements"),
			GroupID: getString(v, "KAFKA_GROUP_ID", "inventario-sync"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate revisa lo mínimo para arrancar; reporta todo lo que falte a la vez.
func (c *Config) validate() error {
	var errs []error
	if c.Remote.BaseURL == "" {
		errs = append(errs, errors.New("REMOTE_BASE_URL es obligatorio"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET es obligatorio"))
	}
	if b := strings.ToLower(c.Cache.Backend); b != "memory" && b != "redis" {
		errs = append(errs, fmt.Errorf("CACHE_BACKEND %q no soportado (memory|redis)", c.Cache.Backend))
	}
	if _, err := c.Sync.Location(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

// getDuration acepta "300ms", "1m" o un entero en segundos.
func getDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if !v.IsSet(key) {
		return def
	}
	s := strings.TrimSpace(v.GetString(key))
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// getStrings lista separada por comas, sin vacíos.
func getStrings(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v.GetString(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
