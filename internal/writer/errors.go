package writer

import (
	"net/http"

	"github.com/tansive/tablelake/internal/apperrors"
)

var (
	ErrWriter apperrors.Error = apperrors.New("writer error").
					SetCode("Internal").
					SetStatusCode(http.StatusInternalServerError)

	ErrSchemaMismatch apperrors.Error = ErrWriter.New("row batch does not match table schema").
				SetCode("SchemaMismatch").
				SetStatusCode(http.StatusBadRequest)

	ErrResourceExhausted apperrors.Error = ErrWriter.New("write exceeds configured limits").
				SetCode("ResourceExhausted").
				SetStatusCode(http.StatusInsufficientStorage)

	ErrWriteConflict apperrors.Error = ErrWriter.New("write retries exhausted on commit conflict").
				SetCode("WriteConflict").
				SetStatusCode(http.StatusConflict)
)
