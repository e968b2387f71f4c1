package adaptor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"hospital-booking/internal/usecase"
	"hospital-booking/pkg/apperror"
	"hospital-booking/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Booking  *BookingHandler
	Hospital *HospitalHandler
	Query    *QueryHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Booking:  NewBookingHandler(service.Booking, log),
		Hospital: NewHospitalHandler(service.Hospital, log),
		Query:    NewQueryHandler(service.Query, log),
	}
}

// decodeBody decodes a JSON body into dst. An empty body leaves dst as is.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// handleServiceError maps typed service errors onto HTTP responses.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		log.Error(operation+" failed", zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
		return
	}

	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("error_type", string(appErr.Type)),
		zap.String("message", appErr.Message),
	}

	switch appErr.Type {
	case apperror.ErrorTypeInsufficientResources:
		log.Warn(operation+" failed - insufficient resources", fields...)
		utils.ResponseConflict(w, "insufficient_resources", appErr.Message)

	case apperror.ErrorTypeInvalidTransition:
		log.Warn(operation+" failed - invalid transition", fields...)
		utils.ResponseConflict(w, "invalid_transition", appErr.Message)

	case apperror.ErrorTypeConflict:
		log.Warn(operation+" failed - conflict", fields...)
		utils.ResponseConflict(w, "conflict", appErr.Message)

	case apperror.ErrorTypeValidation:
		log.Warn(operation+" validation failed", fields...)
		utils.ResponseBadRequest(w, appErr.Message, nil)

	case apperror.ErrorTypeNotFound:
		log.Warn(operation+" failed - not found", fields...)
		utils.ResponseNotFound(w, appErr.Message)

	default:
		log.Error(operation+" failed", append(fields, zap.Error(err))...)
		utils.ResponseInternalError(w, "Internal server error")
	}
}
