package catalog

import (
	"net/http"

	"github.com/tansive/tablelake/internal/apperrors"
)

var (
	ErrCatalog apperrors.Error = apperrors.New("catalog error").
					SetCode("Internal").
					SetStatusCode(http.StatusInternalServerError)

	ErrNotFound apperrors.Error = ErrCatalog.New("table not found").
				SetCode("NotFound").
				SetStatusCode(http.StatusNotFound)

	ErrAlreadyExists apperrors.Error = ErrCatalog.New("table already exists").
				SetCode("AlreadyExists").
				SetStatusCode(http.StatusConflict)

	ErrConflict apperrors.Error = ErrCatalog.New("concurrent commit conflict").
				SetCode("WriteConflict").
				SetStatusCode(http.StatusConflict)

	ErrInvalidInput apperrors.Error = ErrCatalog.New("invalid catalog request").
				SetCode("InvalidRequest").
				SetStatusCode(http.StatusBadRequest)
)
