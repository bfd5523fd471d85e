package core

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	APIConfig struct {
		BaseURL   string
		Timeout   time.Duration
		LoginPath string
	}

	SessionConfig struct {
		StorePath string
	}

	ProbeConfig struct {
		Concurrency int
	}

	ServerConfig struct {
		Address            string
		Host               string
		SecretKey          string
		JWTExpirationDelta time.Duration
	}

	Config struct {
		Env          string // DEV (local; default), TEST, QA, PROD
		Debug        bool
		TestMode     bool
		AppName      string
		Build        string
		RollbarToken string

		API     APIConfig
		Session SessionConfig
		Probe   ProbeConfig
		Server  ServerConfig
	}
)

// NewConfig loads the configuration from defaults, `config/.env.<env>` (if present) and the environment.
// Environment variables are prefixed with the upper-cased env name, eg. DEV_API_BASEURL.
func NewConfig() (*Config, error) {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "Classwork")
	v.SetDefault("build", "dev")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("api.baseURL", "http://localhost:8000")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.loginPath", "/login")
	v.SetDefault("session.storePath", filepath.Join(os.TempDir(), "classwork", "session.db"))
	v.SetDefault("probe.concurrency", 4)
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.secretKey", "k3v9-wqz)anb$+41=dz&uoxh2(c!x)#*m2(#yg4h^$cegm2xlp")
	v.SetDefault("server.jwtExpirationDelta", 24*time.Hour)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := &Config{
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		RollbarToken: v.GetString("rollbarToken"),
		API: APIConfig{
			BaseURL:   strings.TrimRight(v.GetString("api.baseURL"), "/"),
			Timeout:   v.GetDuration("api.timeout"),
			LoginPath: v.GetString("api.loginPath"),
		},
		Session: SessionConfig{
			StorePath: v.GetString("session.storePath"),
		},
		Probe: ProbeConfig{
			Concurrency: v.GetInt("probe.concurrency"),
		},
		Server: ServerConfig{
			Address:            v.GetString("server.address"),
			Host:               v.GetString("server.host"),
			SecretKey:          v.GetString("server.secretKey"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
		},
	}
	if conf.Probe.Concurrency < 1 {
		conf.Probe.Concurrency = 1
	}
	return conf, nil
}

// NewTestConfig returns a Config suitable for tests, pointing the client at baseURL.
func NewTestConfig(baseURL string) *Config {
	return &Config{
		Env:      "TEST",
		Debug:    true,
		TestMode: true,
		AppName:  "Classwork",
		Build:    "test",
		API: APIConfig{
			BaseURL:   strings.TrimRight(baseURL, "/"),
			Timeout:   5 * time.Second,
			LoginPath: "/login",
		},
		Probe: ProbeConfig{Concurrency: 4},
		Server: ServerConfig{
			Address:            ":0",
			Host:               "localhost",
			SecretKey:          "secret",
			JWTExpirationDelta: time.Hour,
		},
	}
}
