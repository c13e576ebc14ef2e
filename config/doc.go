/*
Package config loads tablestore settings from defaults, an optional YAML file, an
optional .env file and the environment, in that order of priority.

	cfg, err := config.Load("tablestore.yaml")
	logger, err := config.NewLogger(cfg.Log)

Recognised environment variables: AWS_REGION, AWS_ACCESS_KEY, AWS_SECRET_KEY,
AWS_DDB_ENDPOINT, TABLESTORE_TABLE_PREFIX, TABLESTORE_LOG_LEVEL and
TABLESTORE_LOG_DEVELOPMENT.
*/
package config
