package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/tradedesk/services"
	"github.com/upb/tradedesk/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses. Only the domain
// message reaches the client; wrapped causes are logged.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	if utils.IsValidationError(err) {
		HandleValidationError(w, err, logger)
		return
	}

	var domainErr *services.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error("unhandled error type", zap.Error(err))
		writeOrLog(utils.WriteInternalServerError(w, "An unexpected error occurred"), logger)
		return
	}

	details := domainErr.Details
	if len(details) == 0 {
		details = nil
	}

	var writeErr error
	switch domainErr.Type {
	case services.ErrorTypeUnauthenticated:
		writeErr = utils.WriteUnauthorized(w, "Authentication required")

	case services.ErrorTypeUnauthorized:
		writeErr = utils.WriteUnauthorized(w, "Invalid or expired token")

	case services.ErrorTypeForbidden:
		writeErr = utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse{
			Error:   "forbidden",
			Message: domainErr.Message,
			Details: details,
		})

	case services.ErrorTypeValidation:
		writeErr = utils.WriteBadRequest(w, domainErr.Message, details)

	case services.ErrorTypeNotFound:
		writeErr = utils.WriteNotFound(w, domainErr.Message)

	case services.ErrorTypeConflict:
		writeErr = utils.WriteConflict(w, domainErr.Message, details)

	case services.ErrorTypeExternal:
		logger.Error("upstream dependency failed", zap.Error(err))
		writeErr = utils.WriteBadGateway(w, domainErr.Message)

	case services.ErrorTypeInternal:
		logger.Error("internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "An internal error occurred")

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(domainErr.Type)))
		writeErr = utils.WriteInternalServerError(w, "An unexpected error occurred")
	}
	writeOrLog(writeErr, logger)

	logger.Debug("handled service error",
		zap.String("type", string(domainErr.Type)),
		zap.String("message", domainErr.Message),
		zap.Any("details", domainErr.Details))
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		writeOrLog(utils.WriteBadRequest(w, "Validation failed", details), logger)
		return
	}

	writeOrLog(utils.WriteBadRequest(w, err.Error(), nil), logger)
}

// decodeAndValidate reads the JSON body into dst and runs struct validation,
// writing a 400 and returning false on failure
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}, logger *zap.Logger) bool {
	if err := utils.DecodeJSON(r, dst); err != nil {
		HandleValidationError(w, err, logger)
		return false
	}
	if err := utils.ValidateStruct(dst); err != nil {
		HandleValidationError(w, err, logger)
		return false
	}
	return true
}

func writeOrLog(err error, logger *zap.Logger) {
	if err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}
