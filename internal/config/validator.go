package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAPIKey validates an API key format
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case "anthropic":
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case "openai":
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	}

	return nil
}

// ValidateModel validates a model name
func (v *Validator) ValidateModel(model string) error {
	if model == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	return nil
}

// ValidateTemperature validates temperature value
func (v *Validator) ValidateTemperature(temp float64) error {
	if temp < 0 || temp > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got %f", temp)
	}
	return nil
}

// ValidateMaxTokens validates max tokens value
func (v *Validator) ValidateMaxTokens(tokens int) error {
	if tokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", tokens)
	}
	if tokens > 200000 {
		return fmt.Errorf("max tokens too large (max 200000), got %d", tokens)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateCronSpec validates a cron schedule expression
func (v *Validator) ValidateCronSpec(spec string) error {
	if spec == "" {
		return fmt.Errorf("cron spec cannot be empty")
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	for i, profile := range cfg.AI.Profiles {
		if profile.Provider != "" {
			if err := v.ValidateAPIKey(profile.APIKey, profile.Provider); err != nil {
				errors = append(errors, fmt.Errorf("AI profile %d (%s): %w", i, profile.ID, err))
			}
		}
	}

	if err := v.ValidateModel(cfg.Agents.ManagerModel); err != nil {
		errors = append(errors, fmt.Errorf("agents.manager_model: %w", err))
	}
	if err := v.ValidateModel(cfg.Agents.SpecialistModel); err != nil {
		errors = append(errors, fmt.Errorf("agents.specialist_model: %w", err))
	}
	if cfg.Agents.Temperature != 0 {
		if err := v.ValidateTemperature(cfg.Agents.Temperature); err != nil {
			errors = append(errors, err)
		}
	}
	if cfg.Agents.MaxTokens != 0 {
		if err := v.ValidateMaxTokens(cfg.Agents.MaxTokens); err != nil {
			errors = append(errors, err)
		}
	}
	if cfg.Agents.ManagerTurns < 1 {
		errors = append(errors, fmt.Errorf("agents.manager_turns must be >= 1"))
	}
	if cfg.Agents.SpecialistTurns < 1 {
		errors = append(errors, fmt.Errorf("agents.specialist_turns must be >= 1"))
	}

	if cfg.Redis.HistoryTurns < 1 {
		errors = append(errors, fmt.Errorf("redis.history_turns must be >= 1"))
	}
	if cfg.Redis.TTLHours < 1 {
		errors = append(errors, fmt.Errorf("redis.ttl_hours must be >= 1"))
	}

	if cfg.Knowledge.TopK < 1 {
		errors = append(errors, fmt.Errorf("knowledge.top_k must be >= 1"))
	}

	if cfg.Jobs.Enabled {
		if err := v.ValidateCronSpec(cfg.Jobs.KnowledgeResync); err != nil {
			errors = append(errors, fmt.Errorf("jobs.knowledge_resync: %w", err))
		}
		if err := v.ValidateCronSpec(cfg.Jobs.EnrollmentSweep); err != nil {
			errors = append(errors, fmt.Errorf("jobs.enrollment_sweep: %w", err))
		}
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	return errors
}
