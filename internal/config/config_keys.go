// config_keys.go provides key-value access to configuration settings.
//
// Separated from config.go to isolate the key enumeration and string-based
// get/set logic used by the CLI, where config is addressed by dotted keys
// (e.g., "ipf.timeout").
//
// Design: Pointers are used for optional fields so we can distinguish between
// "not set" (nil) and "explicitly set to zero/false". Secrets are masked by
// Display but returned verbatim by Get.

package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ValidKeys returns all valid configuration keys.
func ValidKeys() []string {
	return []string{
		"ipf.url", "ipf.token", "ipf.verify", "ipf.timeout", "ipf.snapshot",
		"ai.base_url", "ai.api_key", "ai.model",
		"chat.max_turns",
	}
}

// IsValidKey returns true if the key is a valid configuration key.
func IsValidKey(key string) bool {
	return slices.Contains(ValidKeys(), key)
}

// IsSecret reports whether the key holds a credential.
func IsSecret(key string) bool {
	return key == "ipf.token" || key == "ai.api_key"
}

// Get returns the value of a configuration key as a string.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "ipf.url":
		return c.IPF.URL, nil
	case "ipf.token":
		return c.IPF.Token, nil
	case "ipf.verify":
		return strconv.FormatBool(c.Verify()), nil
	case "ipf.timeout":
		return strconv.Itoa(int(c.Timeout().Seconds())), nil
	case "ipf.snapshot":
		return c.Snapshot(), nil
	case "ai.base_url":
		return c.BaseURL(), nil
	case "ai.api_key":
		return c.AI.APIKey, nil
	case "ai.model":
		return c.Model(), nil
	case "chat.max_turns":
		return strconv.Itoa(c.MaxTurns()), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
}

// Display returns the value of key with secrets masked.
func (c *Config) Display(key string) (string, error) {
	v, err := c.Get(key)
	if err != nil || !IsSecret(key) {
		return v, err
	}
	return Mask(v), nil
}

// Mask hides all but the last four characters of a secret.
func Mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", 8) + s[len(s)-4:]
}

// Set sets the value of a configuration key. The change applies to the
// effective config and to the file-backed values written by Save.
func (c *Config) Set(key, value string) error {
	if err := set(c, key, value); err != nil {
		return err
	}
	if c.file != nil {
		return set(c.file, key, value)
	}
	return nil
}

func set(c *Config, key, value string) error {
	switch key {
	case "ipf.url":
		c.IPF.URL = strings.TrimRight(value, "/")
	case "ipf.token":
		c.IPF.Token = value
	case "ipf.verify":
		v := strings.ToLower(value)
		if v != "true" && v != "false" {
			return fmt.Errorf("%w: ipf.verify must be true or false", ErrInvalidValue)
		}
		b := v == "true"
		c.IPF.Verify = &b
	case "ipf.timeout":
		n, err := strconv.Atoi(value)
		if err != nil || n < MinTimeout || n > MaxTimeout {
			return fmt.Errorf("%w: ipf.timeout must be between %d and %d seconds", ErrInvalidValue, MinTimeout, MaxTimeout)
		}
		c.IPF.Timeout = &n
	case "ipf.snapshot":
		c.IPF.Snapshot = value
	case "ai.base_url":
		c.AI.BaseURL = strings.TrimRight(value, "/")
	case "ai.api_key":
		c.AI.APIKey = value
	case "ai.model":
		c.AI.Model = value
	case "chat.max_turns":
		n, err := strconv.Atoi(value)
		if err != nil || n < MinMaxTurns || n > MaxMaxTurns {
			return fmt.Errorf("%w: chat.max_turns must be between %d and %d", ErrInvalidValue, MinMaxTurns, MaxMaxTurns)
		}
		c.Chat.MaxTurns = &n
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

// All returns all configuration values as a map, secrets masked.
func (c *Config) All() map[string]string {
	m := make(map[string]string, len(ValidKeys()))
	for _, k := range ValidKeys() {
		v, _ := c.Display(k)
		m[k] = v
	}
	return m
}

// IsSet returns true if the key has an explicit value (not just defaults).
func (c *Config) IsSet(key string) bool {
	switch key {
	case "ipf.url":
		return c.IPF.URL != ""
	case "ipf.token":
		return c.IPF.Token != ""
	case "ipf.verify":
		return c.IPF.Verify != nil
	case "ipf.timeout":
		return c.IPF.Timeout != nil
	case "ipf.snapshot":
		return c.IPF.Snapshot != ""
	case "ai.base_url":
		return c.AI.BaseURL != ""
	case "ai.api_key":
		return c.AI.APIKey != ""
	case "ai.model":
		return c.AI.Model != ""
	case "chat.max_turns":
		return c.Chat.MaxTurns != nil
	default:
		return false
	}
}
