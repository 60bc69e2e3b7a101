package compactor

import (
	"net/http"

	"github.com/tansive/tablelake/internal/apperrors"
)

var (
	ErrCompactor apperrors.Error = apperrors.New("compaction error").
				SetCode("Internal").
				SetStatusCode(http.StatusInternalServerError)

	ErrCompactionConflict apperrors.Error = ErrCompactor.New("compaction retries exhausted on commit conflict").
				SetCode("WriteConflict").
				SetStatusCode(http.StatusConflict)
)
