package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Soracom SoracomConfig
	JWT     JWTConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type SoracomConfig struct {
	APIURL    string
	AuthKeyID string
	AuthKey   string
	// HTTPTimeout of zero leaves the transport default in place.
	HTTPTimeout time.Duration
}

type JWTConfig struct {
	Secret     string
	Expiration int // in hours
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads the configuration from the process environment.
func Load() *Config {
	return LoadFrom(NewViper())
}

// NewViper returns a viper instance with every known key bound to its
// environment variable and defaulted.
func NewViper() *viper.Viper {
	v := viper.New()

	setEnvDefault(v, "server.port", "PORT", "8080")
	setEnvDefault(v, "server.host", "HOST", "0.0.0.0")

	setEnvDefault(v, "soracom.apiURL", "SORACOM_API_URL", "https://api.soracom.io/v1")
	setEnvDefault(v, "soracom.authKeyID", "SORACOM_AUTH_KEY_ID", "")
	setEnvDefault(v, "soracom.authKey", "SORACOM_AUTH_KEY", "")
	setEnvDefault(v, "soracom.httpTimeout", "SORACOM_HTTP_TIMEOUT", "0s")

	setEnvDefault(v, "jwt.secret", "JWT_SECRET", "")
	setEnvDefault(v, "jwt.expiration", "JWT_EXPIRATION", 24)

	setEnvDefault(v, "log.level", "LOG_LEVEL", "info")
	setEnvDefault(v, "log.format", "LOG_FORMAT", "text")

	return v
}

// LoadFrom builds a Config from an already prepared viper instance, so
// callers can bind command line flags over the environment first.
func LoadFrom(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port: v.GetString("server.port"),
			Host: v.GetString("server.host"),
		},
		Soracom: SoracomConfig{
			APIURL:      strings.TrimRight(v.GetString("soracom.apiURL"), "/"),
			AuthKeyID:   v.GetString("soracom.authKeyID"),
			AuthKey:     v.GetString("soracom.authKey"),
			HTTPTimeout: v.GetDuration("soracom.httpTimeout"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			Expiration: v.GetInt("jwt.expiration"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
}

func setEnvDefault(v *viper.Viper, key, env string, defaultValue interface{}) {
	v.SetDefault(key, defaultValue)
	_ = v.BindEnv(key, env)
}
