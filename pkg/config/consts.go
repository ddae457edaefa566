package config

// EnvPrefix is passed to envconfig.Process; individual fields carry full names.
const EnvPrefix = "pharmacare"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "PHARMACARE_APP_ENV"
	EnvDBDSN  = "PHARMACARE_DB_DSN"
	EnvDBHost = "PHARMACARE_DB_HOST"
	EnvDBUser = "PHARMACARE_DB_USER"
	EnvDBName = "PHARMACARE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
