package mvcc

import (
	"net/http"

	"github.com/tansive/tablelake/internal/apperrors"
)

var (
	ErrMVCC apperrors.Error = apperrors.New("mvcc update/delete error").
				SetCode("Internal").
				SetStatusCode(http.StatusInternalServerError)

	// ErrNestedFieldUpdate is §4.6's "Forbidden: directly updating
	// nested sub-fields via dotted keys" — updates replace whole
	// columns only.
	ErrNestedFieldUpdate apperrors.Error = ErrMVCC.New("updates must replace whole columns, not dotted nested fields").
				SetCode("InvalidRequest").
				SetStatusCode(http.StatusBadRequest)

	ErrSystemColumnUpdate apperrors.Error = ErrMVCC.New("updates must not set a system column directly").
				SetCode("InvalidRequest").
				SetStatusCode(http.StatusBadRequest)

	// ErrConfirmationRequired is §4.6/§7's HARD_DELETE-without-confirm
	// failure.
	ErrConfirmationRequired apperrors.Error = ErrMVCC.New("hard delete requires confirm=true").
				SetCode("ConfirmationRequired").
				SetStatusCode(http.StatusBadRequest)
)
