package engine

import (
	"github.com/go-playground/validator/v10"
)

var envelopeValidator = validator.New()

// validateEnvelope runs struct-tag validation on the scalar envelope
// fields (tenant_id, operation non-empty, etc.), then the handful of
// per-operation required fields §6 lists that a generic struct tag
// can't express (e.g. "table" is required for every operation except
// LIST_TABLES).
func validateEnvelope(env Envelope) error {
	if err := envelopeValidator.Struct(env); err != nil {
		return ErrInvalidRequest.New("invalid operation envelope").Err(err)
	}

	if env.Operation != OpListTables && env.Table == "" {
		return ErrInvalidRequest.New("table is required for " + string(env.Operation))
	}
	if env.Operation == OpCreateTable && len(env.Schema) == 0 {
		return ErrInvalidRequest.New("schema is required for CREATE_TABLE")
	}
	if env.Operation == OpWrite && len(env.Rows) == 0 {
		return ErrInvalidRequest.New("rows must be non-empty for WRITE")
	}
	if env.Operation == OpUpdate && len(env.Updates) == 0 {
		return ErrInvalidRequest.New("updates must be non-empty for UPDATE")
	}
	return nil
}
