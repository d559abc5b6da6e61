package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

func (c *Config) normalize() error {
	c.normalizeIdentity()
	if err := c.normalizeOutput(); err != nil {
		return err
	}
	c.normalizeLLM()
	if err := c.normalizeRender(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeIdentity() {
	c.Identity.Student = strings.TrimSpace(c.Identity.Student)
	if c.Identity.Student == "" {
		c.Identity.Student = defaultStudent
	}
	c.Identity.Program = strings.TrimSpace(c.Identity.Program)
	if c.Identity.Program == "" {
		c.Identity.Program = defaultProgram
	}
	c.Identity.AcademicYear = strings.TrimSpace(c.Identity.AcademicYear)
	if c.Identity.AcademicYear == "" {
		c.Identity.AcademicYear = AcademicYear(time.Now())
	}
}

func (c *Config) normalizeOutput() error {
	var err error
	if strings.TrimSpace(c.Output.Dir) == "" {
		c.Output.Dir = defaultOutputDir
	}
	if c.Output.Dir, err = expandPath(c.Output.Dir); err != nil {
		return fmt.Errorf("output.dir: %w", err)
	}
	if strings.TrimSpace(c.Output.LogDir) == "" {
		c.Output.LogDir = defaultLogDir
	}
	if c.Output.LogDir, err = expandPath(c.Output.LogDir); err != nil {
		return fmt.Errorf("output.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.LLM.APIKey = strings.TrimSpace(value)
	} else if value, ok := os.LookupEnv("DEEPSEEK_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.LLM.APIKey = strings.TrimSpace(value)
	}
	c.LLM.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.LLM.BaseURL), "/")
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
}

func (c *Config) normalizeRender() error {
	var err error
	c.Render.PandocBinary = strings.TrimSpace(c.Render.PandocBinary)
	if c.Render.PandocBinary == "" {
		c.Render.PandocBinary = defaultPandocBinary
	}
	if strings.TrimSpace(c.Render.ReferenceDocx) != "" {
		if c.Render.ReferenceDocx, err = expandPath(c.Render.ReferenceDocx); err != nil {
			return fmt.Errorf("render.reference_docx: %w", err)
		}
	} else {
		c.Render.ReferenceDocx = ""
	}
	if strings.TrimSpace(c.Render.ReferencePptx) != "" {
		if c.Render.ReferencePptx, err = expandPath(c.Render.ReferencePptx); err != nil {
			return fmt.Errorf("render.reference_pptx: %w", err)
		}
	} else {
		c.Render.ReferencePptx = ""
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.APIBind = strings.TrimSpace(c.Server.APIBind)
	if c.Server.APIBind == "" {
		c.Server.APIBind = defaultAPIBind
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
