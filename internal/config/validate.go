package config

import (
	"fmt"
	"strings"

	"github.com/termbridge/termbridge/internal/protocol"
)

// ValidationError reports connect parameters that are missing or invalid.
// It is reported to the user locally; nothing is sent on the transport.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required connection fields: %s", strings.Join(e.Missing, ", "))
}

// ValidateConnect checks that every required connect field is present.
// All four fields are required by the bridge; port zero counts as missing.
func ValidateConnect(cfg protocol.ConnectConfig) error {
	var missing []string
	if strings.TrimSpace(cfg.Host) == "" {
		missing = append(missing, "host")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		missing = append(missing, "port")
	}
	if strings.TrimSpace(cfg.Username) == "" {
		missing = append(missing, "username")
	}
	if cfg.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}
