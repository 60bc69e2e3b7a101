package query

import (
	"net/http"

	"github.com/tansive/tablelake/internal/apperrors"
)

var (
	ErrQuery apperrors.Error = apperrors.New("query error").
				SetCode("Internal").
				SetStatusCode(http.StatusInternalServerError)

	ErrInvalidRequest apperrors.Error = ErrQuery.New("invalid query request").
				SetCode("InvalidRequest").
				SetStatusCode(http.StatusBadRequest)

	ErrTypeMismatch apperrors.Error = ErrQuery.New("comparison across incompatible types").
				SetCode("TypeMismatch").
				SetStatusCode(http.StatusBadRequest)
)
