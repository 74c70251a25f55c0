package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("MAX_PAGE_SIZE", "50")
	t.Setenv("PROMOTION_POLICY", "fail-fast")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected default port, got %s", cfg.Port)
	}
	if cfg.MaxPageSize != 50 {
		t.Errorf("expected 50, got %d", cfg.MaxPageSize)
	}
	if cfg.PromotionPolicy != "fail-fast" {
		t.Errorf("expected fail-fast, got %s", cfg.PromotionPolicy)
	}
	if len(cfg.ProtectedPrefixes) != 5 {
		t.Errorf("expected default protected prefixes, got %v", cfg.ProtectedPrefixes)
	}
	if !cfg.IsDev() {
		t.Error("expected development by default")
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")

	t.Run("policy", func(t *testing.T) {
		t.Setenv("PROMOTION_POLICY", "sometimes")
		if _, err := loadConfig(); err == nil {
			t.Error("expected an error for an unknown policy")
		}
	})

	t.Run("driver", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "s3")
		if _, err := loadConfig(); err == nil {
			t.Error("expected an error for an unknown driver")
		}
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("GUESSWHAT_DOTENV_TEST=yes\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("GUESSWHAT_DOTENV_TEST") })

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv failed: %v", err)
	}
	if got := os.Getenv("GUESSWHAT_DOTENV_TEST"); got != "yes" {
		t.Errorf("expected yes, got %q", got)
	}

	if err := loadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("expected a missing file to be ignored, got %v", err)
	}
}
