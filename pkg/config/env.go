package config

const (
	EnvPrefix = "GEARSHED"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "GEARSHED_APP_ENV"
	EnvPort         = "GEARSHED_APP_PORT"
	EnvPlatformPort = "PORT"

	EnvSheetsSpreadsheetID   = "GEARSHED_SHEETS_SPREADSHEET_ID"
	EnvSheetsClientEmail     = "GEARSHED_SHEETS_CLIENT_EMAIL"
	EnvSheetsPrivateKey      = "GEARSHED_SHEETS_PRIVATE_KEY"
	EnvSheetsCredentialsJSON = "GEARSHED_SHEETS_CREDENTIALS_JSON"
)
