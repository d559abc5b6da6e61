package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateIdentity,
		c.validateLLM,
		c.validateTimeouts,
		c.validateServer,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// An empty academic year is fine: normalize fills it from the clock.
func (c *Config) validateIdentity() error {
	year := strings.TrimSpace(c.Identity.AcademicYear)
	if year != "" && !validAcademicYear(year) {
		return fmt.Errorf("identity.academic_year must look like 2025-2026, got %q", year)
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.APIKey == "" {
		hint, err := DefaultConfigPath()
		if err != nil {
			hint = "~/.config/prositor/config.toml"
		}
		return fmt.Errorf("llm.api_key is required. Set OPENROUTER_API_KEY env var or edit %s (create with 'prositor config init')", hint)
	}
	switch {
	case c.LLM.MaxTokens <= 0:
		return errors.New("llm.max_tokens must be positive")
	case c.LLM.PlanMaxTokens <= 0:
		return errors.New("llm.plan_max_tokens must be positive")
	case c.LLM.PlanMaxTokens > c.LLM.MaxTokens:
		return errors.New("llm.plan_max_tokens must not exceed llm.max_tokens")
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	timeouts := []struct {
		name  string
		value int
	}{
		{"llm.timeout_seconds", c.LLM.TimeoutSeconds},
		{"render.timeout_seconds", c.Render.TimeoutSeconds},
		{"notifications.request_timeout", c.Notifications.RequestTimeout},
	}
	for _, timeout := range timeouts {
		if timeout.value <= 0 {
			return fmt.Errorf("%s must be positive", timeout.name)
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if !strings.Contains(c.Server.APIBind, ":") {
		return fmt.Errorf("server.api_bind must be host:port, got %q", c.Server.APIBind)
	}
	return nil
}

func validAcademicYear(value string) bool {
	first, second, ok := strings.Cut(value, "-")
	if !ok || len(first) != 4 || len(second) != 4 {
		return false
	}
	start, err := strconv.Atoi(first)
	if err != nil {
		return false
	}
	end, err := strconv.Atoi(second)
	if err != nil {
		return false
	}
	return end == start+1
}
