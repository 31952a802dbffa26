package handlers

import (
	"net/http"

	"booking-system/internal/apperror"
	"booking-system/internal/logger"
)

func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error, internalMessage string) {
	switch {
	case apperror.Is(err, apperror.KindNotFound):
		writeErrorResponse(w, http.StatusNotFound, err.Error())
	case apperror.Is(err, apperror.KindValidation):
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
	case apperror.Is(err, apperror.KindConflict):
		writeErrorResponse(w, http.StatusConflict, err.Error())
	case apperror.Is(err, apperror.KindProviderTransient):
		if log != nil {
			log.WithError(err).Warn(internalMessage)
		}
		writeErrorResponse(w, http.StatusBadGateway, "Payment provider is temporarily unavailable")
	case apperror.Is(err, apperror.KindProviderPermanent):
		writeErrorResponse(w, http.StatusUnprocessableEntity, err.Error())
	default:
		// KindLedgerIntegrity и неклассифицированные ошибки наружу не детализируем.
		if log != nil {
			log.WithError(err).Error(internalMessage)
		}
		writeErrorResponse(w, http.StatusInternalServerError, internalMessage)
	}
}
