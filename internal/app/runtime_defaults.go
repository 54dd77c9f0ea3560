package app

import (
	"fmt"
	"strings"

	"github.com/foliotrack/foliotrack/pkg/crypto"
)

const tokenSecretBytes = 48

// ApplyRuntimeDefaults ensures critical secrets are populated even when no configuration file is supplied.
// It returns a map describing which keys were generated so callers can log the event without exposing values.
// A generated token secret means outstanding verification tokens stop validating across restarts; persist
// auth.verification.token_secret to avoid that.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.Verification.TokenSecret) == "" {
		secret, err := crypto.GenerateToken(tokenSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate verification token secret: %w", err)
		}
		cfg.Auth.Verification.TokenSecret = secret
		generated["auth.verification.token_secret"] = true
	}

	return generated, nil
}
