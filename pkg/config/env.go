package config

const EnvPrefix = "POSLITE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	EnvAppEnv        = "POSLITE_APP_ENV"
	EnvPort          = "POSLITE_APP_PORT"
	EnvStoreTimeZone = "POSLITE_STORE_TIMEZONE"

	EnvDBDriver     = "POSLITE_DB_DRIVER"
	EnvDBDSN        = "POSLITE_DB_DSN"
	EnvDBSQLitePath = "POSLITE_DB_SQLITE_PATH"
	EnvDBHost       = "POSLITE_DB_HOST"
	EnvDBUser       = "POSLITE_DB_USER"
	EnvDBName       = "POSLITE_DB_NAME"

	EnvRedisURL = "POSLITE_REDIS_URL"

	EnvJWTSecret  = "POSLITE_JWT_SECRET"
	EnvJWTExpMins = "POSLITE_JWT_EXPIRATION_MINUTES"

	EnvCredentialsFile = "POSLITE_AUTH_CREDENTIALS_FILE"
	EnvBackupDir       = "POSLITE_BACKUP_DIR"
)

var postgresDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
