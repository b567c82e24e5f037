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
	DatabaseConfig struct {
		Engine    string // bolt (default), sqlite, postgres, memory
		Path      string // bolt/sqlite file
		DSN       string // postgres connection string
		Namespace string
	}

	PollerConfig struct {
		Interval  time.Duration
		AutoPrune bool
	}

	OracleConfig struct {
		URL     string
		Timeout time.Duration
	}

	VocabConfig struct {
		Source      string // dir, xlsx or http
		Location    string // directory or base URL
		Institution string
		Watch       bool
	}

	CalendarConfig struct {
		ID      string
		Matcher string // fuzzy (default) or similarity
	}

	RedisConfig struct {
		Addr    string
		Channel string
	}

	Config struct {
		Env              string
		AppName          string
		Debug            bool
		TestMode         bool
		RollbarToken     string
		DefaultFromEmail string
		SendgridAPIKey   string
		DigestTo         string
		ServerAddress    string
		MaxCompletedAge  int // days

		Database DatabaseConfig
		Poller   PollerConfig
		Oracle   OracleConfig
		Vocab    VocabConfig
		Calendar CalendarConfig
		Redis    RedisConfig
	}
)

// LoadConfig reads the configuration from the environment, prefixed with the upper-cased ENV
// (DEV by default), after loading config/.env.<env> from workDir when that file exists.
func LoadConfig(workDir string) (*Config, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Aevum")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("digestTo", "")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("completedMaxAgeDays", 30)
	v.SetDefault("dbEngine", "bolt")
	v.SetDefault("dbPath", "aevum.db")
	v.SetDefault("dbDsn", "")
	v.SetDefault("dbNamespace", "aevum")
	v.SetDefault("pollerInterval", time.Second)
	v.SetDefault("pollerAutoPrune", true)
	v.SetDefault("oracleUrl", "")
	v.SetDefault("oracleTimeout", 10*time.Second)
	v.SetDefault("vocabSource", "dir")
	v.SetDefault("vocabLocation", "schools")
	v.SetDefault("vocabInstitution", "ucsd")
	v.SetDefault("vocabWatch", true)
	v.SetDefault("calendarId", "primary")
	v.SetDefault("calendarMatcher", "fuzzy")
	v.SetDefault("redisAddr", "")
	v.SetDefault("redisChannel", "aevum-changes")

	env := strings.ToUpper(strings.TrimSpace(os.Getenv("ENV"))) // DEV (local; default), TEST, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	if workDir != "" {
		dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
		}
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:              env,
		AppName:          v.GetString("appName"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		RollbarToken:     v.GetString("rollbarToken"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		DigestTo:         v.GetString("digestTo"),
		ServerAddress:    v.GetString("serverAddress"),
		MaxCompletedAge:  v.GetInt("completedMaxAgeDays"),
		Database: DatabaseConfig{
			Engine:    strings.ToLower(v.GetString("dbEngine")),
			Path:      v.GetString("dbPath"),
			DSN:       v.GetString("dbDsn"),
			Namespace: v.GetString("dbNamespace"),
		},
		Poller: PollerConfig{
			Interval:  v.GetDuration("pollerInterval"),
			AutoPrune: v.GetBool("pollerAutoPrune"),
		},
		Oracle: OracleConfig{
			URL:     v.GetString("oracleUrl"),
			Timeout: v.GetDuration("oracleTimeout"),
		},
		Vocab: VocabConfig{
			Source:      strings.ToLower(v.GetString("vocabSource")),
			Location:    v.GetString("vocabLocation"),
			Institution: CleanString(v.GetString("vocabInstitution"), true /* lower */),
			Watch:       v.GetBool("vocabWatch"),
		},
		Calendar: CalendarConfig{
			ID:      v.GetString("calendarId"),
			Matcher: strings.ToLower(v.GetString("calendarMatcher")),
		},
		Redis: RedisConfig{
			Addr:    v.GetString("redisAddr"),
			Channel: v.GetString("redisChannel"),
		},
	}
	if conf.Poller.Interval <= 0 {
		conf.Poller.Interval = time.Second
	}
	if conf.MaxCompletedAge <= 0 {
		conf.MaxCompletedAge = 30
	}
	return conf, nil
}
