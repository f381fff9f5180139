package config

// Config represents the cacache CLI configuration, unmarshaled from a
// config file, environment variables, and flags via Viper.
type Config struct {
	Concurrency int  `mapstructure:"concurrency"`
	Verbose     bool `mapstructure:"verbose"`
}
