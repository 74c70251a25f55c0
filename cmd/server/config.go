package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/yeomin4242/guesswhat"
	"github.com/yeomin4242/guesswhat/auth"
)

// Config is the server configuration, read from the environment.
type Config struct {
	Port        string `mapstructure:"port"`
	Env         string `mapstructure:"nat_env"`
	DatabaseURL string `mapstructure:"database_url"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`

	DBMaxOpenConns int `mapstructure:"db_max_open_conns"`

	SupabaseURL        string `mapstructure:"supabase_url"`
	SupabaseAnonKey    string `mapstructure:"supabase_anon_key"`
	SupabaseServiceKey string `mapstructure:"supabase_service_key"`
	SupabaseJWTSecret  string `mapstructure:"supabase_jwt_secret"`

	StorageBucket string `mapstructure:"storage_bucket"`

	// StorageDriver is supabase or memory.
	StorageDriver string `mapstructure:"storage_driver"`

	PromotionPolicy    string `mapstructure:"promotion_policy"`
	PromoteConcurrency int    `mapstructure:"promote_concurrency"`
	MinQuestions       int    `mapstructure:"min_questions"`
	MaxPageSize        int    `mapstructure:"max_page_size"`

	MaxUploadBytes      int64 `mapstructure:"max_upload_bytes"`
	UploadRatePerMinute int   `mapstructure:"upload_rate_per_minute"`
	UploadBurst         int   `mapstructure:"upload_burst"`

	AuthCookie        string   `mapstructure:"auth_cookie"`
	ProtectedPrefixes []string `mapstructure:"protected_prefixes"`
	CORSOrigins       []string `mapstructure:"cors_origins"`
}

// IsDev reports whether the server runs outside production.
func (c *Config) IsDev() bool {
	return c.Env != "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("nat_env", "development")
	v.SetDefault("database_url", "")
	v.SetDefault("auto_migrate", false)
	v.SetDefault("db_max_open_conns", 10)
	v.SetDefault("supabase_url", "")
	v.SetDefault("supabase_anon_key", "")
	v.SetDefault("supabase_service_key", "")
	v.SetDefault("supabase_jwt_secret", "")
	v.SetDefault("storage_bucket", guesswhat.Bucket)
	v.SetDefault("storage_driver", "supabase")
	v.SetDefault("promotion_policy", string(guesswhat.BestEffort))
	v.SetDefault("promote_concurrency", 16)
	v.SetDefault("min_questions", 1)
	v.SetDefault("max_page_size", 100)
	v.SetDefault("max_upload_bytes", 10<<20)
	v.SetDefault("upload_rate_per_minute", 30)
	v.SetDefault("upload_burst", 10)
	v.SetDefault("auth_cookie", auth.DefaultCookie)
	v.SetDefault("protected_prefixes", []string{
		"/api/game/create",
		"/api/game/edit",
		"/api/game/update",
		"/api/profile/update",
		"/api/storage",
	})
	v.SetDefault("cors_origins", []string{"*"})
}

// loadDotEnv loads a .env file if present. Existing variables win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	return godotenv.Load(path)
}

// loadConfig reads .env and the environment into a Config.
func loadConfig() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if _, err := guesswhat.ParsePolicy(cfg.PromotionPolicy); err != nil {
		return nil, err
	}
	if cfg.StorageDriver != "supabase" && cfg.StorageDriver != "memory" {
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	if cfg.SupabaseURL == "" && (cfg.StorageDriver == "supabase" || cfg.SupabaseJWTSecret == "") {
		return nil, fmt.Errorf("SUPABASE_URL is not set")
	}

	return &cfg, nil
}
