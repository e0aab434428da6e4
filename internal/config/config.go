// Package config loads the actionsflow YAML configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"actionsflow/internal/auth0"
	"actionsflow/internal/deploy"
)

// Config is the file-level configuration. An environments block may
// override any top-level field per environment name.
type Config struct {
	Domain       string `yaml:"domain"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Audience     string `yaml:"audience"`

	ActionNamePrefix         string `yaml:"action_name_prefix"`
	MetadataKey              string `yaml:"metadata_key"`
	ClaimsNamespace          string `yaml:"claims_namespace"`
	CallbackURL              string `yaml:"callback_url"`
	CallbackAPIKey           string `yaml:"callback_api_key"`
	CallbackURLSecretName    string `yaml:"callback_url_secret_name"`
	CallbackAPIKeySecretName string `yaml:"callback_api_key_secret_name"`
	DefaultTimeoutMS         int    `yaml:"default_timeout_ms"`

	Environments map[string]Config `yaml:"environments"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return LoadBytes(b)
}

func LoadBytes(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("yaml parse: %w", err)
	}
	return &c, nil
}

// ForEnv returns a copy with the named environment's non-zero fields merged
// over the top level. An unknown env name is an error so typos don't run
// against the default tenant.
func (c *Config) ForEnv(env string) (*Config, error) {
	if env == "" {
		out := *c
		out.Environments = nil
		return &out, nil
	}
	ov, ok := c.Environments[env]
	if !ok {
		return nil, fmt.Errorf("env not found in environments: %s", env)
	}
	out := *c
	out.Environments = nil
	merge(&out, ov)
	return &out, nil
}

func merge(dst *Config, ov Config) {
	if ov.Domain != "" {
		dst.Domain = ov.Domain
	}
	if ov.ClientID != "" {
		dst.ClientID = ov.ClientID
	}
	if ov.ClientSecret != "" {
		dst.ClientSecret = ov.ClientSecret
	}
	if ov.Audience != "" {
		dst.Audience = ov.Audience
	}
	if ov.ActionNamePrefix != "" {
		dst.ActionNamePrefix = ov.ActionNamePrefix
	}
	if ov.MetadataKey != "" {
		dst.MetadataKey = ov.MetadataKey
	}
	if ov.ClaimsNamespace != "" {
		dst.ClaimsNamespace = ov.ClaimsNamespace
	}
	if ov.CallbackURL != "" {
		dst.CallbackURL = ov.CallbackURL
	}
	if ov.CallbackAPIKey != "" {
		dst.CallbackAPIKey = ov.CallbackAPIKey
	}
	if ov.CallbackURLSecretName != "" {
		dst.CallbackURLSecretName = ov.CallbackURLSecretName
	}
	if ov.CallbackAPIKeySecretName != "" {
		dst.CallbackAPIKeySecretName = ov.CallbackAPIKeySecretName
	}
	if ov.DefaultTimeoutMS != 0 {
		dst.DefaultTimeoutMS = ov.DefaultTimeoutMS
	}
}

func (c *Config) Validate() error {
	if c.Domain == "" {
		return fmt.Errorf("missing required field: domain")
	}
	if c.ClientID == "" {
		return fmt.Errorf("missing required field: client_id")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("missing required field: client_secret")
	}
	if c.CallbackURL == "" {
		return fmt.Errorf("missing required field: callback_url")
	}
	return nil
}

func (c *Config) ClientConfig() auth0.Config {
	return auth0.Config{
		Domain:       c.Domain,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Audience:     c.Audience,
	}
}

func (c *Config) DeployConfig() deploy.Config {
	return deploy.Config{
		ActionNamePrefix:         c.ActionNamePrefix,
		MetadataKey:              c.MetadataKey,
		ClaimsNamespace:          c.ClaimsNamespace,
		CallbackURL:              c.CallbackURL,
		CallbackAPIKey:           c.CallbackAPIKey,
		CallbackURLSecretName:    c.CallbackURLSecretName,
		CallbackAPIKeySecretName: c.CallbackAPIKeySecretName,
		DefaultTimeoutMS:         c.DefaultTimeoutMS,
	}
}

// Secrets lists the config values that must never appear in surfaced error
// text.
func (c *Config) Secrets() []string {
	return []string{c.ClientSecret, c.CallbackAPIKey}
}
