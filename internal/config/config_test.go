package config

import (
	"os"
	"strings"
	"testing"
)

// unsetenv clears a variable for one test. t.Setenv registers the restore;
// non-string fields need the variable truly absent, an empty value would
// still hit the type conversion.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret-0123456789abcdef")
	t.Setenv("GITHUB_CLIENT_ID", "")
	t.Setenv("GITHUB_CLIENT_SECRET", "")
	t.Setenv("GITHUB_CALLBACK_URL", "")
	unsetenv(t, "PORT")
	unsetenv(t, "STAFF_USERS")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if !cfg.ParticipantRegistrationOpen || !cfg.JudgeRegistrationOpen {
		t.Error("registration windows should default to open")
	}
	if cfg.GitHubCallbackURL != "http://localhost:8080/auth/github/callback" {
		t.Errorf("GitHubCallbackURL = %q", cfg.GitHubCallbackURL)
	}
}

func TestLoad_CollectsAllProblems(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("PORT", "99999")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail")
	}
	msg := err.Error()
	if !strings.Contains(msg, "JWT_SECRET") || !strings.Contains(msg, "PORT") {
		t.Errorf("error should report every problem, got: %v", err)
	}
}

func TestLoad_GitHubCredsTogether(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GITHUB_CLIENT_ID", "id-only")

	if _, err := Load(); err == nil {
		t.Error("Load() should reject a client id without a secret")
	}
}

func TestIsStaff(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STAFF_USERS", "organizer,Reviewer")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.IsStaff("organizer") || !cfg.IsStaff("reviewer") {
		t.Error("staff check should be case-insensitive")
	}
	if cfg.IsStaff("alice") {
		t.Error("alice is not staff")
	}
}
