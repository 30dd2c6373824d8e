package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Auth          AuthConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Backup        BackupConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.App.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env             string   `envconfig:"POSLITE_APP_ENV" required:"true"`
	Port            string   `envconfig:"POSLITE_APP_PORT" default:"8080"`
	LogLevel        string   `envconfig:"POSLITE_LOG_LEVEL" default:"info"`
	LogWarnStack    bool     `envconfig:"POSLITE_LOG_WARN_STACK" default:"false"`
	TimeZone        string   `envconfig:"POSLITE_STORE_TIMEZONE" default:"Local"`
	DefaultLanguage string   `envconfig:"POSLITE_DEFAULT_LANGUAGE" default:"en"`
	CORSOrigins     []string `envconfig:"POSLITE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Location resolves the store time zone used to assign sales to calendar days.
func (a AppConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(a.TimeZone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvStoreTimeZone, name, err)
	}
	return loc, nil
}

type DBConfig struct {
	Driver     string `envconfig:"POSLITE_DB_DRIVER" default:"sqlite"`
	DSN        string `envconfig:"POSLITE_DB_DSN"`
	SQLitePath string `envconfig:"POSLITE_DB_SQLITE_PATH" default:"pos_lite.db"`

	PGHost     string `envconfig:"POSLITE_DB_HOST"`
	PGPort     int    `envconfig:"POSLITE_DB_PORT" default:"5432"`
	PGUser     string `envconfig:"POSLITE_DB_USER"`
	PGPassword string `envconfig:"POSLITE_DB_PASSWORD"`
	PGName     string `envconfig:"POSLITE_DB_NAME"`
	PGSSLMode  string `envconfig:"POSLITE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"POSLITE_DB_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int           `envconfig:"POSLITE_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"POSLITE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"POSLITE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite store.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"POSLITE_REDIS_URL"`
	Address      string        `envconfig:"POSLITE_REDIS_ADDR"`
	Password     string        `envconfig:"POSLITE_REDIS_PASSWORD"`
	DB           int           `envconfig:"POSLITE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"POSLITE_REDIS_POOL_SIZE" default:"4"`
	DialTimeout  time.Duration `envconfig:"POSLITE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"POSLITE_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"POSLITE_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"POSLITE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"POSLITE_JWT_ISSUER" default:"poslite"`
	ExpirationMinutes int    `envconfig:"POSLITE_JWT_EXPIRATION_MINUTES" default:"720"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"POSLITE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"POSLITE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"POSLITE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"POSLITE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"POSLITE_ARGON_KEY_LEN" default:"32"`
}

type AuthConfig struct {
	CredentialsFile string `envconfig:"POSLITE_AUTH_CREDENTIALS_FILE" default:"credentials.yaml"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"POSLITE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUsernameLimit int           `envconfig:"POSLITE_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"POSLITE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"POSLITE_AUTO_MIGRATE" default:"true"`
	Metrics     bool `envconfig:"POSLITE_METRICS_ENABLED" default:"true"`
}

type BackupConfig struct {
	Dir string `envconfig:"POSLITE_BACKUP_DIR" default:"backups"`
}

func (db *DBConfig) ensureDSN() error {
	driver := strings.ToLower(strings.TrimSpace(db.Driver))
	switch driver {
	case DriverSQLite:
		db.Driver = DriverSQLite
		if db.DSN == "" {
			if strings.TrimSpace(db.SQLitePath) == "" {
				return fmt.Errorf("%s is required for the sqlite driver", EnvDBSQLitePath)
			}
			db.DSN = db.SQLitePath + "?_foreign_keys=on&_busy_timeout=5000"
		}
		return nil
	case DriverPostgres:
		db.Driver = DriverPostgres
	default:
		return fmt.Errorf("unsupported %s %q", EnvDBDriver, db.Driver)
	}

	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.PGHost,
		EnvDBUser: db.PGUser,
		EnvDBName: db.PGName,
	}
	for _, env := range postgresDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.PGUser)
	if db.PGPassword != "" {
		userInfo = url.UserPassword(db.PGUser, db.PGPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.PGHost, db.PGPort),
		Path:   db.PGName,
	}

	if db.PGSSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.PGSSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
