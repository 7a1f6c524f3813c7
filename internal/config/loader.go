package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harun/sessionkey/pkg/session"
	"github.com/spf13/viper"
	"github.com/xeipuuv/gojsonschema"
)

// Loader handles configuration loading
type Loader struct {
	configPath   string
	schemaLoader gojsonschema.JSONLoader
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath:   configPath,
		schemaLoader: gojsonschema.NewStringLoader(Schema),
	}
}

// Load loads the configuration from file
func (l *Loader) Load() (*Config, error) {
	configPath := l.GetConfigPath()
	if configPath == "" {
		return nil, fmt.Errorf("failed to get home directory")
	}

	// Return default config if file doesn't exist
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := l.validateSchema(data); err != nil {
		return nil, fmt.Errorf("config schema validation failed: %w", err)
	}

	// Setup viper
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix("SESSIONKEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	// Slices decode element-wise onto existing entries; start agents empty
	// so file agents don't inherit the default agent's fields.
	if v.IsSet("agents") {
		cfg.Agents = nil
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	links, err := parseIdentityLinks(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse identity links: %w", err)
	}
	cfg.Session.IdentityLinks = links

	// Set data directory if not specified
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".ranya")
	}

	return cfg, nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ranya", "sessionkey.json")
}

func (l *Loader) validateSchema(data []byte) error {
	result, err := gojsonschema.Validate(l.schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("schema validation errors: %s", strings.Join(msgs, "; "))
	}

	return nil
}

// parseIdentityLinks reads session.identity_links in file order. Overlapping
// aliases resolve to the first canonical name, so order is significant.
func parseIdentityLinks(data []byte) (session.IdentityLinks, error) {
	var doc struct {
		Session struct {
			IdentityLinks json.RawMessage `json:"identity_links"`
		} `json:"session"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	raw := bytes.TrimSpace(doc.Session.IdentityLinks)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("identity_links must be an object")
	}

	var links session.IdentityLinks
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		canonical, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected identity link key %v", tok)
		}
		var aliases []string
		if err := dec.Decode(&aliases); err != nil {
			return nil, fmt.Errorf("identity link %s: %w", canonical, err)
		}
		links = append(links, session.IdentityLink{Canonical: canonical, Aliases: aliases})
	}
	return links, nil
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}
