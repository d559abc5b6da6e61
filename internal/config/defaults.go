package config

const (
	defaultStudent              = "Étudiant CESI"
	defaultProgram              = "A3 Informatique"
	defaultOutputDir            = "~/prositor/documents"
	defaultLogDir               = "~/prositor/logs"
	defaultLogRetentionDays     = 60
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultAPIBind              = "127.0.0.1:8643"
	defaultLLMBaseURL           = "https://openrouter.ai/api/v1"
	defaultLLMModel             = "deepseek/deepseek-chat-v3.1"
	defaultLLMReferer           = "https://github.com/prositor/prositor"
	defaultLLMTitle             = "Prositor"
	defaultLLMTimeoutSeconds    = 120
	defaultLLMMaxTokens         = 4096
	defaultLLMPlanMaxTokens     = 1024
	defaultPandocBinary         = "pandoc"
	defaultRenderTimeoutSeconds = 120
	defaultNotifyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Identity: Identity{
			Student: defaultStudent,
			Program: defaultProgram,
		},
		Output: Output{
			Dir:    defaultOutputDir,
			LogDir: defaultLogDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			MaxTokens:      defaultLLMMaxTokens,
			PlanMaxTokens:  defaultLLMPlanMaxTokens,
		},
		Render: Render{
			PandocBinary:   defaultPandocBinary,
			TimeoutSeconds: defaultRenderTimeoutSeconds,
		},
		Server: Server{
			APIBind: defaultAPIBind,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Generation:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
