package application

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NotificationConfig holds the recipients and subjects for operational
// notifications, loaded from a YAML file so distribution lists can
// change without a deploy.
type NotificationConfig struct {
	Reconciliation struct {
		FailureRecipients   []string `yaml:"failureRecipients"`
		FailureSubject      string   `yaml:"failureSubject"`
		SKUTotalsRecipients []string `yaml:"skuTotalsRecipients"`
		SKUTotalsSubject    string   `yaml:"skuTotalsSubject"`
	} `yaml:"reconciliation"`
}

// DefaultNotificationConfig returns the built-in subjects with empty
// recipient lists.
func DefaultNotificationConfig() *NotificationConfig {
	cfg := &NotificationConfig{}
	cfg.Reconciliation.FailureSubject = "WSI shipping confirmation failures"
	cfg.Reconciliation.SKUTotalsSubject = "WSI shipped SKU totals"
	return cfg
}

// LoadNotificationConfig reads a notification config file, filling in
// defaults for missing subjects.
func LoadNotificationConfig(path string) (*NotificationConfig, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read notification config: %w", err)
	}

	cfg := DefaultNotificationConfig()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse notification config: %w", err)
	}
	if cfg.Reconciliation.FailureSubject == "" {
		cfg.Reconciliation.FailureSubject = DefaultNotificationConfig().Reconciliation.FailureSubject
	}
	if cfg.Reconciliation.SKUTotalsSubject == "" {
		cfg.Reconciliation.SKUTotalsSubject = DefaultNotificationConfig().Reconciliation.SKUTotalsSubject
	}
	return cfg, nil
}
