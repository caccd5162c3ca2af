package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestEngineConfigValidation(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Engine.Validate(); err != nil {
		t.Errorf("default engine config invalid: %v", err)
	}

	neg := EngineConfig{ExposureMs: -1}
	if err := neg.Validate(); err == nil {
		t.Error("negative exposure accepted")
	}
	scale := EngineConfig{TimeScale: -0.5}
	if err := scale.Validate(); err == nil {
		t.Error("negative time scale accepted")
	}
}

func TestHTTPConfigValidation(t *testing.T) {
	good := HTTPConfig{Port: 8080}
	if err := good.Validate(); err != nil {
		t.Errorf("valid port rejected: %v", err)
	}
	if got := good.Address(); got != ":8080" {
		t.Errorf("address = %q", got)
	}
	bad := HTTPConfig{Port: 70000}
	if err := bad.Validate(); err == nil {
		t.Error("out-of-range port accepted")
	}
}

func TestDefaultConfigValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}
