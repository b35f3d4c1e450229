package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cloverkingdom/academy/internal/app/models/dto"
	"github.com/cloverkingdom/academy/internal/pkg/apperrors"
	"github.com/cloverkingdom/academy/internal/pkg/logger"
	"github.com/cloverkingdom/academy/internal/pkg/validation"
)

// --- Central Error Handling ---

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	var customErr *apperrors.CustomError
	var fieldErrs validation.Errors

	switch {
	case errors.As(err, &fieldErrs):
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Validation failed").
			WithDetails([]validation.FieldError(fieldErrs))
		if len(fieldErrs) == 1 {
			detail = detail.WithField(fieldErrs[0].Field)
		}
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
	case errors.Is(err, apperrors.ErrValidationFailed):
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Validation failed")
		if errors.As(err, &customErr) {
			detail = dto.NewErrorDetail(dto.ErrorCodeValidationFailed, customErr.Message).WithField(customErr.Field)
		}
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
	case errors.Is(err, apperrors.ErrIdentificationExists):
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeResourceAlreadyExists, "Identification already exists").WithField("identification")))
	case errors.Is(err, apperrors.ErrResourceNotFound):
		message := "Resource not found"
		if errors.As(err, &customErr) && customErr.Message != "" {
			message = customErr.Message
		}
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, message)))
	case errors.Is(err, apperrors.ErrInvalidStatusTransition):
		c.JSON(http.StatusConflict, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeInvalidTransition, "Invalid status transition").WithField("status")))
	default:
		code := dto.ErrorCodeInternalServer
		if errors.Is(err, apperrors.ErrAssignmentRecording) {
			code = dto.ErrorCodeAssignment
		}
		logger.FromContext(c.Request.Context()).Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("Unhandled API error")
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(
			dto.NewErrorDetail(code, "Internal server error").WithSeverity(dto.ErrorSeverityCritical)))
	}
}

// HandleBindError answers a request whose body or parameters could not be decoded
func HandleBindError(c *gin.Context, message string, err error) {
	detail := dto.NewErrorDetail(dto.ErrorCodeBadRequest, message)
	if err != nil {
		detail = detail.WithDetails(err.Error())
	}
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
}
