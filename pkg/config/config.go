package config

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/sellerlink/config"
	ConfigFileName    = "sellerlink.yml"
)

// Config holds all settings
type Config struct {
	// TrustedProxies is a list of CIDR ranges for trusted proxies
	TrustedProxies []string `yaml:"trusted_proxies" json:"trusted_proxies"`

	// SessionTokenTTL is the TTL for user session tokens in seconds
	SessionTokenTTL int `yaml:"session_token_ttl" json:"session_token_ttl"`

	// RefreshLeadWindow is how many seconds before access token expiry
	// a refresh is started
	RefreshLeadWindow int `yaml:"refresh_lead_window" json:"refresh_lead_window"`

	// RefreshMaxAttempts is the total number of exchange attempts per
	// refresh cycle
	RefreshMaxAttempts int `yaml:"refresh_max_attempts" json:"refresh_max_attempts"`

	// RefreshAttemptTimeout is the per-attempt timeout in seconds
	RefreshAttemptTimeout int `yaml:"refresh_attempt_timeout" json:"refresh_attempt_timeout"`

	// EbayTokenURL is the marketplace OAuth token endpoint
	EbayTokenURL string `yaml:"ebay_token_url" json:"ebay_token_url"`

	// EbayClientID is the OAuth client ID for the marketplace application
	EbayClientID string `yaml:"ebay_client_id" json:"ebay_client_id"`

	// APIAccountListLimitMax is the maximum number of results for listing requests
	APIAccountListLimitMax int `yaml:"api_account_list_limit_max" json:"api_account_list_limit_max"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Global singleton config
var (
	globalConfig *Config
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			// Return defaults on error
			globalConfig = newDefault()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment
func Reload() error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return nil
}

// newDefault returns a config with default values
func newDefault() *Config {
	return &Config{
		TrustedProxies:         []string{},
		SessionTokenTTL:        28800,
		RefreshLeadWindow:      300,
		RefreshMaxAttempts:     4,
		RefreshAttemptTimeout:  30,
		EbayTokenURL:           "https://api.ebay.com/identity/v1/oauth2/token",
		EbayClientID:           "",
		APIAccountListLimitMax: 1000,
		sources:                make(map[string]string),
	}
}

// Load loads configuration from file and environment variables
// Environment variables take precedence over file values
func Load() (*Config, error) {
	config := newDefault()

	for _, name := range attributeNames() {
		config.sources[name] = "default"
	}

	configPath := os.Getenv("SELLERLINK_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var fileConfig Config
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&fileConfig)
	}

	config.applyEnvConfig()

	return config, nil
}

func attributeNames() []string {
	return []string{
		"trusted_proxies", "session_token_ttl",
		"refresh_lead_window", "refresh_max_attempts", "refresh_attempt_timeout",
		"ebay_token_url", "ebay_client_id", "api_account_list_limit_max",
	}
}

func (c *Config) applyFileConfig(file *Config) {
	if len(file.TrustedProxies) > 0 {
		c.TrustedProxies = file.TrustedProxies
		c.sources["trusted_proxies"] = "file"
	}
	if file.SessionTokenTTL != 0 {
		c.SessionTokenTTL = file.SessionTokenTTL
		c.sources["session_token_ttl"] = "file"
	}
	if file.RefreshLeadWindow != 0 {
		c.RefreshLeadWindow = file.RefreshLeadWindow
		c.sources["refresh_lead_window"] = "file"
	}
	if file.RefreshMaxAttempts != 0 {
		c.RefreshMaxAttempts = file.RefreshMaxAttempts
		c.sources["refresh_max_attempts"] = "file"
	}
	if file.RefreshAttemptTimeout != 0 {
		c.RefreshAttemptTimeout = file.RefreshAttemptTimeout
		c.sources["refresh_attempt_timeout"] = "file"
	}
	if file.EbayTokenURL != "" {
		c.EbayTokenURL = file.EbayTokenURL
		c.sources["ebay_token_url"] = "file"
	}
	if file.EbayClientID != "" {
		c.EbayClientID = file.EbayClientID
		c.sources["ebay_client_id"] = "file"
	}
	if file.APIAccountListLimitMax != 0 {
		c.APIAccountListLimitMax = file.APIAccountListLimitMax
		c.sources["api_account_list_limit_max"] = "file"
	}
}

func (c *Config) applyEnvConfig() {
	if val := os.Getenv("SELLERLINK_TRUSTED_PROXIES"); val != "" {
		c.TrustedProxies = splitAndTrim(val)
		c.sources["trusted_proxies"] = "environment"
	}
	if val := os.Getenv("SELLERLINK_SESSION_TOKEN_TTL"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.SessionTokenTTL = i
			c.sources["session_token_ttl"] = "environment"
		}
	}
	if val := os.Getenv("SELLERLINK_REFRESH_LEAD_WINDOW"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.RefreshLeadWindow = i
			c.sources["refresh_lead_window"] = "environment"
		}
	}
	if val := os.Getenv("SELLERLINK_REFRESH_MAX_ATTEMPTS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.RefreshMaxAttempts = i
			c.sources["refresh_max_attempts"] = "environment"
		}
	}
	if val := os.Getenv("SELLERLINK_REFRESH_ATTEMPT_TIMEOUT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.RefreshAttemptTimeout = i
			c.sources["refresh_attempt_timeout"] = "environment"
		}
	}
	if val := os.Getenv("SELLERLINK_EBAY_TOKEN_URL"); val != "" {
		c.EbayTokenURL = val
		c.sources["ebay_token_url"] = "environment"
	}
	if val := os.Getenv("SELLERLINK_EBAY_CLIENT_ID"); val != "" {
		c.EbayClientID = val
		c.sources["ebay_client_id"] = "environment"
	}
	if val := os.Getenv("SELLERLINK_API_ACCOUNT_LIST_LIMIT_MAX"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.APIAccountListLimitMax = i
			c.sources["api_account_list_limit_max"] = "environment"
		}
	}
}

// ConfigFilePath returns the path to the config file
func (c *Config) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *Config) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// SessionTTL returns the session token TTL as a duration
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTokenTTL) * time.Second
}

// LeadWindow returns the refresh lead window as a duration
func (c *Config) LeadWindow() time.Duration {
	return time.Duration(c.RefreshLeadWindow) * time.Second
}

// AttemptTimeout returns the per-attempt refresh timeout as a duration
func (c *Config) AttemptTimeout() time.Duration {
	return time.Duration(c.RefreshAttemptTimeout) * time.Second
}

// IsTrustedProxy checks if an IP is from a trusted proxy
func (c *Config) IsTrustedProxy(ip string) bool {
	if len(c.TrustedProxies) == 0 {
		return false
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, cidr := range c.TrustedProxies {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			// Try as plain IP
			if net.ParseIP(cidr) != nil && cidr == ip {
				return true
			}
			continue
		}
		if network.Contains(parsedIP) {
			return true
		}
	}
	return false
}

// Validate validates the configuration
func (c *Config) Validate() error {
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			if net.ParseIP(cidr) == nil {
				return fmt.Errorf("invalid trusted_proxies value: %s", cidr)
			}
		}
	}

	if c.SessionTokenTTL <= 0 {
		return fmt.Errorf("session_token_ttl must be positive, got %d", c.SessionTokenTTL)
	}
	if c.RefreshLeadWindow < 0 {
		return fmt.Errorf("refresh_lead_window must not be negative, got %d", c.RefreshLeadWindow)
	}
	if c.RefreshMaxAttempts < 1 {
		return fmt.Errorf("refresh_max_attempts must be at least 1, got %d", c.RefreshMaxAttempts)
	}
	if c.RefreshAttemptTimeout <= 0 {
		return fmt.Errorf("refresh_attempt_timeout must be positive, got %d", c.RefreshAttemptTimeout)
	}

	if u, err := url.Parse(c.EbayTokenURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid ebay_token_url: %s", c.EbayTokenURL)
	}

	return nil
}

// Attributes returns all configuration attributes with their values and sources
func (c *Config) Attributes() []Attribute {
	return []Attribute{
		{Name: "trusted_proxies", Value: strings.Join(c.TrustedProxies, ","), Source: c.Source("trusted_proxies")},
		{Name: "session_token_ttl", Value: strconv.Itoa(c.SessionTokenTTL), Source: c.Source("session_token_ttl")},
		{Name: "refresh_lead_window", Value: strconv.Itoa(c.RefreshLeadWindow), Source: c.Source("refresh_lead_window")},
		{Name: "refresh_max_attempts", Value: strconv.Itoa(c.RefreshMaxAttempts), Source: c.Source("refresh_max_attempts")},
		{Name: "refresh_attempt_timeout", Value: strconv.Itoa(c.RefreshAttemptTimeout), Source: c.Source("refresh_attempt_timeout")},
		{Name: "ebay_token_url", Value: c.EbayTokenURL, Source: c.Source("ebay_token_url")},
		{Name: "ebay_client_id", Value: c.EbayClientID, Source: c.Source("ebay_client_id")},
		{Name: "api_account_list_limit_max", Value: strconv.Itoa(c.APIAccountListLimitMax), Source: c.Source("api_account_list_limit_max")},
	}
}

// FormatText returns a text representation of the configuration
func (c *Config) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-30s %-50s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-30s %-50s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-30s %-50s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *Config) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
