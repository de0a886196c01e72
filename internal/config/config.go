package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	DatabaseURL         string
	RedisURL            string
	TxTimeout           time.Duration
	BlobBackend         string // memory, supabase or s3
	SupabaseURL         string
	SupabaseSecretKey   string // service_role key, storage writes need it
	SupabaseBucket      string
	S3Bucket            string
	AWSRegion           string
	SendinblueAPIKey    string // SENDINBLUE_API_KEY for notification emails (Brevo)
	MailFrom            string
	NotifyEmailTo       string // inbox that receives copies of lifecycle alerts
	FrontendURLEndsWith string
	DevPassword         string
	HealthAdminKey      string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}

	return &Config{
		Env:                 env,
		Port:                port,
		LogLevel:            defaultString(viper.GetString("LOG_LEVEL"), "info"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		TxTimeout:           txTimeout(viper.GetString("TX_TIMEOUT")),
		BlobBackend:         strings.ToLower(defaultString(viper.GetString("BLOB_BACKEND"), "memory")),
		SupabaseURL:         viper.GetString("SUPABASE_URL"),
		SupabaseSecretKey:   viper.GetString("SUPABASE_SECRET_KEY"),
		SupabaseBucket:      defaultString(viper.GetString("SUPABASE_BUCKET"), "claims"),
		S3Bucket:            viper.GetString("S3_BUCKET"),
		AWSRegion:           defaultString(viper.GetString("AWS_REGION"), "us-east-1"),
		SendinblueAPIKey:    viper.GetString("SENDINBLUE_API_KEY"),
		MailFrom:            viper.GetString("MAIL_FROM"),
		NotifyEmailTo:       viper.GetString("NOTIFY_EMAIL_TO"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
	}, nil
}

func defaultString(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// txTimeout parses TX_TIMEOUT (Go duration, e.g. "5s"); invalid or empty falls back to 5s.
func txTimeout(s string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}
