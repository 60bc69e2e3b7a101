package engine

import (
	"net/http"

	"github.com/tansive/tablelake/internal/apperrors"
)

var (
	ErrEngine apperrors.Error = apperrors.New("engine dispatch error").
				SetCode("Internal").
				SetStatusCode(http.StatusInternalServerError)

	// ErrInvalidRequest covers a malformed envelope or an unrecognized
	// operation name — §7 "InvalidRequest".
	ErrInvalidRequest apperrors.Error = ErrEngine.New("invalid request").
				SetCode("InvalidRequest").
				SetStatusCode(http.StatusBadRequest)
)

// codeFor maps any error to the §7 error code for the response
// envelope: apperrors.Error instances carry their own Code(); any other
// error (should not normally happen, since every package here returns
// apperrors.Error) is classified "Internal".
func codeFor(err error) string {
	if ae, ok := err.(apperrors.Error); ok {
		return ae.Code()
	}
	return "Internal"
}
