package config

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "100KB"
)

// insecureCookieEnvs may serve the session cookie over plain HTTP.
var insecureCookieEnvs = []string{"local", "develop"}

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int      `json:"port" yaml:"port"`
		MaxRequestBodySize string   `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		AllowOrigins       []string `json:"allowOrigins" yaml:"allowOrigins"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	GoogleOAuth *GoogleOAuthConfig `json:"googleOAuth" yaml:"googleOAuth"`

	// PubSub configuration for code and link delivery
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`

	// QRCode configuration for magic-link QR codes
	QRCode *QRCodeConfig `json:"qrcode" yaml:"qrcode"`

	// RateLimit configuration for login and OTP endpoints
	RateLimit *RateLimitConfig `json:"rateLimit" yaml:"rateLimit"`

	// Metrics configuration for the Prometheus endpoint
	Metrics *MetricsConfig `json:"metrics" yaml:"metrics"`
}

type GoogleOAuthConfig struct {
	ClientID string `json:"clientId" yaml:"clientId"`
	// Note: ClientSecret and RedirectURI are not needed for ID token verification
	// These are only needed for server-side OAuth flows, which we don't use
}

// AuthConfig defines authentication-related configuration
type AuthConfig struct {
	// Secret signs every bearer token with HS256
	Secret string `json:"secret" yaml:"secret"`

	BcryptCost int `json:"bcryptCost" yaml:"bcryptCost"`
	OTPLength  int `json:"otpLength" yaml:"otpLength"`

	AccessTokenLifetime  time.Duration `json:"accessTokenLifetime" yaml:"accessTokenLifetime"`
	StaySignedInLifetime time.Duration `json:"staySignedInLifetime" yaml:"staySignedInLifetime"`
	MagicLinkLifetime    time.Duration `json:"magicLinkLifetime" yaml:"magicLinkLifetime"`
	SignUpLifetime       time.Duration `json:"signUpLifetime" yaml:"signUpLifetime"`
	OTPLifetime          time.Duration `json:"otpLifetime" yaml:"otpLifetime"`
	APIKeyLifetime       time.Duration `json:"apiKeyLifetime" yaml:"apiKeyLifetime"`

	MagicLinkBaseURL string `json:"magicLinkBaseUrl" yaml:"magicLinkBaseUrl"`
	SignUpBaseURL    string `json:"signUpBaseUrl" yaml:"signUpBaseUrl"`

	// DefaultRegion is used to parse phone numbers given without a country code
	DefaultRegion string `json:"defaultRegion" yaml:"defaultRegion"`

	Cookie CookieConfig `json:"cookie" yaml:"cookie"`

	DefaultRole string `json:"defaultRole" yaml:"defaultRole"`

	// Roles maps a role to its default scopes
	Roles map[string][]string `json:"roles" yaml:"roles"`
}

// CookieConfig defines the session cookie
type CookieConfig struct {
	Name   string `json:"name" yaml:"name"`
	Domain string `json:"domain" yaml:"domain"`
	// Insecure drops the Secure attribute for plain HTTP development. Only local and
	// develop environments may set it.
	Insecure bool `json:"insecure" yaml:"insecure"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// QRCodeConfig defines QR code generation configuration
type QRCodeConfig struct {
	Size                 int    `json:"size" yaml:"size"`
	ErrorCorrectionLevel string `json:"errorCorrectionLevel" yaml:"errorCorrectionLevel"`
}

// PubSubConfig defines Pub/Sub configuration for message dispatch
type PubSubConfig struct {
	// Provider type: "local" for local HTTP, "google" for Google Pub/Sub, "noop" to only log
	Provider string `json:"provider" yaml:"provider"`

	// Google Cloud project ID (for google provider)
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub topic ID (for google provider)
	TopicID string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider)
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`
}

// RateLimitConfig defines per-client throttling of credential endpoints
type RateLimitConfig struct {
	Enabled         bool          `json:"enabled" yaml:"enabled"`
	RequestsPerMin  int           `json:"requestsPerMin" yaml:"requestsPerMin"`
	Burst           int           `json:"burst" yaml:"burst"`
	CleanupInterval time.Duration `json:"cleanupInterval" yaml:"cleanupInterval"`
	IdleTimeout     time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
}

// MetricsConfig defines the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: POSTGRES_SSLMODE -> postgres.sslMode (not postgres.sslmode)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}

	// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.)
	if cfg.Postgres != nil {
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Auth == nil {
		return errors.New("auth section is required")
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("auth.secret must be provided")
	}

	lifetimes := map[string]time.Duration{
		"accessTokenLifetime":  c.Auth.AccessTokenLifetime,
		"staySignedInLifetime": c.Auth.StaySignedInLifetime,
		"magicLinkLifetime":    c.Auth.MagicLinkLifetime,
		"signUpLifetime":       c.Auth.SignUpLifetime,
		"otpLifetime":          c.Auth.OTPLifetime,
		"apiKeyLifetime":       c.Auth.APIKeyLifetime,
	}
	for name, d := range lifetimes {
		if d < time.Second {
			return errors.Errorf("auth.%s must be at least one second, got %s", name, d)
		}
	}

	if c.Auth.OTPLength < 4 || c.Auth.OTPLength > 10 {
		return errors.Errorf("auth.otpLength must be between 4 and 10, got %d", c.Auth.OTPLength)
	}
	if _, ok := c.Auth.Roles[c.Auth.DefaultRole]; !ok {
		return errors.Errorf("auth.defaultRole %q is not in auth.roles", c.Auth.DefaultRole)
	}
	if strings.TrimSpace(c.Auth.Cookie.Name) == "" {
		return errors.New("auth.cookie.name must be provided")
	}
	if c.Auth.Cookie.Insecure && !slices.Contains(insecureCookieEnvs, c.Env.Env) {
		return errors.Errorf("auth.cookie.insecure is not allowed in env %q", c.Env.Env)
	}

	return nil
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
// Example: POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, POSTGRES_REPLICAS_0_USERNAME, POSTGRES_REPLICAS_0_PASSWORD
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			// No more replicas or incomplete configuration.
			break
		}

		replica := postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		}

		replicas = append(replicas, replica)
	}

	return replicas
}
