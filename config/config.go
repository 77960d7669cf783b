package config

import (
	"errors"

	"github.com/spf13/viper"
)

// Load reads the application config file through viper. Environment
// variables take precedence over file values.
func Load() error {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return err
	}
	return Validate()
}

// Validate runs the pre-running sanity check over loaded config values.
// It is re-run by the watcher on every config file change.
func Validate() error {
	if viper.GetString("mongodbConn") == "" {
		return errors.New("Invalid configuration. mongodbConn is required")
	}
	if viper.GetString("redisConn") == "" {
		return errors.New("Invalid configuration. redisConn is required")
	}
	if viper.GetString("port") == "" {
		return errors.New("Invalid configuration. port is required")
	}
	if viper.GetString("jwtTokenSecret") == "" {
		return errors.New("Invalid configuration. jwtTokenSecret is required")
	}
	return nil
}
