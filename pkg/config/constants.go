package config

const (
	EnvPrefix = "STORE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DefaultSQLiteDSN = "file:store.db?cache=shared&_fk=1"
)

const (
	EnvAppEnv             = "STORE_APP_ENV"
	EnvPort               = "STORE_APP_PORT"
	EnvDBDSN              = "STORE_DB_DSN"
	EnvDBHost             = "STORE_DB_HOST"
	EnvDBUser             = "STORE_DB_USER"
	EnvDBName             = "STORE_DB_NAME"
	EnvRedisURL           = "STORE_REDIS_URL"
	EnvJWTSecret          = "STORE_JWT_SECRET"
	EnvJWTIssuer          = "STORE_JWT_ISSUER"
	EnvJWTExpMins         = "STORE_JWT_EXPIRATION_MINUTES"
	EnvUseSQLite          = "STORE_USE_SQLITE"
	EnvInventoryLowStock  = "STORE_INVENTORY_LOW_STOCK_THRESHOLD"
	EnvInventoryBulkBatch = "STORE_INVENTORY_BULK_BATCH_SIZE"
	EnvDeliveryTimeout    = "STORE_DELIVERY_HTTP_TIMEOUT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
