package sap

import (
	"log/slog"
	"strings"

	"github.com/frahmantamala/expense-sap-bridge/internal"
)

// Type discriminates the configured SAP backend variant.
type Type string

const (
	TypeECC      Type = "ECC"
	TypeS4OnPrem Type = "S4_ONPREM"
	TypeS4Cloud  Type = "S4_CLOUD"
)

// Factory selects and constructs the adapter for the configured backend.
// Callers hold the result as an opaque Adapter and never branch on the
// variant themselves.
type Factory struct {
	cfg    internal.SAPConfig
	logger *slog.Logger
}

func NewFactory(cfg internal.SAPConfig, logger *slog.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

func (f *Factory) Create() Adapter {
	sapType := f.SAPType()

	f.logger.Info("SAP adapter initialized", "sap_type", sapType)

	switch sapType {
	case TypeS4OnPrem:
		return NewS4OnPremAdapter(f.cfg, f.logger)
	case TypeS4Cloud:
		return NewS4CloudAdapter(f.cfg, f.logger)
	default:
		return NewECCAdapter(f.cfg, f.logger)
	}
}

// SAPType exposes the active backend choice for logging and audit details.
func (f *Factory) SAPType() Type {
	switch strings.ToUpper(f.cfg.Type) {
	case string(TypeS4OnPrem):
		return TypeS4OnPrem
	case string(TypeS4Cloud):
		return TypeS4Cloud
	default:
		return TypeECC
	}
}
