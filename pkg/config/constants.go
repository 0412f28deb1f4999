package config

// EnvPrefix is empty because every variable carries the explicit BIOVAULT_
// prefix in its envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "BIOVAULT_DB_DSN"
	EnvDBHost = "BIOVAULT_DB_HOST"
	EnvDBUser = "BIOVAULT_DB_USER"
	EnvDBName = "BIOVAULT_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
