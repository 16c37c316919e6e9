package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{
		Auth: &AuthConfig{
			Secret:               "test-secret",
			OTPLength:            6,
			AccessTokenLifetime:  time.Hour,
			StaySignedInLifetime: 30 * 24 * time.Hour,
			MagicLinkLifetime:    15 * time.Minute,
			SignUpLifetime:       time.Hour,
			OTPLifetime:          10 * time.Minute,
			APIKeyLifetime:       365 * 24 * time.Hour,
			Cookie:               CookieConfig{Name: "session"},
			DefaultRole:          "user",
			Roles:                map[string][]string{"user": {"users.read"}},
		},
	}

	return cfg
}

func TestValidate_AcceptsCompleteAuthSection(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.Env.Env = "develop"
	cfg.Auth.Cookie.Insecure = true
	require.NoError(t, cfg.Validate(), "development may serve the cookie over plain http")
}

func TestValidate_RejectsBrokenAuthSection(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
		want   string
	}{
		{name: "missing section", mutate: func(cfg *Config) { cfg.Auth = nil }, want: "auth section"},
		{name: "empty secret", mutate: func(cfg *Config) { cfg.Auth.Secret = " " }, want: "auth.secret"},
		{name: "zero lifetime", mutate: func(cfg *Config) { cfg.Auth.OTPLifetime = 0 }, want: "auth.otpLifetime"},
		{name: "sub-second lifetime", mutate: func(cfg *Config) { cfg.Auth.SignUpLifetime = time.Millisecond }, want: "auth.signUpLifetime"},
		{name: "short otp", mutate: func(cfg *Config) { cfg.Auth.OTPLength = 2 }, want: "auth.otpLength"},
		{name: "unknown default role", mutate: func(cfg *Config) { cfg.Auth.DefaultRole = "guest" }, want: "auth.defaultRole"},
		{name: "no cookie name", mutate: func(cfg *Config) { cfg.Auth.Cookie.Name = "" }, want: "auth.cookie.name"},
		{name: "insecure cookie in production", mutate: func(cfg *Config) {
			cfg.Env.Env = "production"
			cfg.Auth.Cookie.Insecure = true
		}, want: "auth.cookie.insecure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
