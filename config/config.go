// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	rebuildDetector = pflag.Bool("rebuild-detector", true, "Replays the audit log into the detector on startup")
	validLogLevels  = []string{"debug", "info", "warn", "error", "fatal"}
	validDBDrivers  = []string{"sqlite", "postgres"}

	// Actions with configurable anomaly thresholds. Defaults mirror the
	// abuse patterns this service is actually hit with
	suspiciousActions = []string{"failed_login", "upload", "download", "share", "delete"}
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// RebuildDetector reports whether the startup audit log replay was
// requested
func RebuildDetector() bool {
	return *rebuildDetector
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")
	v.BindEnv("app.admin_emails", "app_admin_emails")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.domain", "host_domain")

	v.BindEnv("jwt.secret", "jwt_secret")

	v.BindEnv("security.master_key", "security_master_key")

	v.BindEnv("db.driver", "db_driver")
	v.BindEnv("db.dsn", "db_dsn")

	v.BindEnv("storage.type", "storage_type")

	v.BindEnv("upload.max_size", "upload_max_size")

	v.BindEnv("share.require_registered", "share_require_registered")

	v.BindEnv("aws.access_key_id", "aws_access_key_id")
	v.BindEnv("aws.secret_access_key", "aws_secret_access_key")
	v.BindEnv("aws.region", "aws_region")
	v.BindEnv("aws.bucket", "aws_bucket")

	for _, action := range suspiciousActions {
		v.BindEnv("suspicious."+action+".threshold", "suspicious_"+action+"_threshold")
		v.BindEnv("suspicious."+action+".window", "suspicious_"+action+"_window")
	}

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "database.db")

	v.SetDefault("storage.type", "db")

	v.SetDefault("upload.max_size", 50)

	v.SetDefault("share.require_registered", true)

	v.SetDefault("suspicious.failed_login.threshold", 5)
	v.SetDefault("suspicious.failed_login.window", "1h")
	v.SetDefault("suspicious.upload.threshold", 100)
	v.SetDefault("suspicious.upload.window", "1m")
	v.SetDefault("suspicious.share.threshold", 50)
	v.SetDefault("suspicious.share.window", "1m")
	v.SetDefault("suspicious.delete.threshold", 20)
	v.SetDefault("suspicious.delete.window", "24h")
	v.SetDefault("suspicious.download.threshold", 200)
	v.SetDefault("suspicious.download.window", "1h")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); ok {
			return errors.New("config.toml file is missing")
		}

		return fmt.Errorf("failed to read config file, %w", err)
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	if v.GetString("jwt.secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	if v.GetString("security.master_key") == "" {
		fmt.Println("WARNING: You haven't set a content encryption key. Please set security.master_key to a hex encoded 32 byte key. A fresh one:\n\n" + genSecret()[:64] + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	if !slices.Contains(validDBDrivers, v.GetString("db.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("db.dsn") == "" {
		return errors.New("database DSN can't be empty")
	}

	switch v.GetString("storage.type") {
	case "s3":
		{
			if v.GetString("aws.access_key_id") == "" {
				return errors.New("access key id can't be empty")
			}
			if v.GetString("aws.secret_access_key") == "" {
				return errors.New("secret access key can't be empty")
			}
			if v.GetString("aws.region") == "" {
				return errors.New("region can't be empty")
			}
			if v.GetString("aws.bucket") == "" {
				return errors.New("bucket can't be empty")
			}
		}
	case "db":
	default:
		return errors.New("invalid storage type provided")
	}

	for _, action := range suspiciousActions {
		if v.GetInt("suspicious."+action+".threshold") < 0 {
			return fmt.Errorf("suspicious.%s.threshold can't be negative", action)
		}
	}

	v.Set("upload.max_size", v.GetInt64("upload.max_size")<<20)
	return nil
}
