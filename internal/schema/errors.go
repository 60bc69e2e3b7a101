package schema

import (
	"net/http"

	"github.com/tansive/tablelake/internal/apperrors"
)

var (
	// ErrSchema is the base sentinel for this package; every schema
	// error chains off it so callers can apperrors.Is(err, ErrSchema).
	ErrSchema apperrors.Error = apperrors.New("schema error").
					SetCode("Internal").
					SetStatusCode(http.StatusInternalServerError)

	ErrInvalidSchema apperrors.Error = ErrSchema.New("invalid schema").
				SetCode("InvalidSchema").
				SetExpandError(true).
				SetStatusCode(http.StatusBadRequest)

	ErrUnknownType apperrors.Error = ErrInvalidSchema.New("unknown field type").
				SetCode("InvalidSchema").
				SetStatusCode(http.StatusBadRequest)

	ErrMissingNestedSpec apperrors.Error = ErrInvalidSchema.New("missing required nested specification").
				SetCode("InvalidSchema").
				SetStatusCode(http.StatusBadRequest)

	ErrReservedFieldName apperrors.Error = ErrInvalidSchema.New("field name collides with a system column").
				SetCode("InvalidSchema").
				SetStatusCode(http.StatusBadRequest)
)
