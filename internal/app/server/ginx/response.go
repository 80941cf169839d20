package ginx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"opsguard/common/model"
	"opsguard/pkg/errorutil"
)

// Success 成功响应（200）
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, model.Response{
		Meta: model.MetaInfo{
			Code:    http.StatusOK,
			Type:    model.ResponseTypeOK,
			Message: "OK",
		},
		Data: data,
	})
}

// Accepted 已入队响应（202）
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, model.Response{
		Meta: model.MetaInfo{
			Code:    http.StatusAccepted,
			Type:    model.ResponseTypeProcessing,
			Message: "Accepted",
		},
		Data: data,
	})
}

// Error 错误响应
func Error(c *gin.Context, httpCode int, typ string, message string) {
	c.AbortWithStatusJSON(httpCode, model.Response{
		Meta: model.MetaInfo{
			Code:    httpCode,
			Type:    typ,
			Message: message,
		},
	})
}

// ErrorWithDetails 带详情的错误响应
func ErrorWithDetails(c *gin.Context, httpCode int, message string, details []model.ErrorDetail) {
	c.AbortWithStatusJSON(httpCode, model.Response{
		Meta: model.MetaInfo{
			Code:    httpCode,
			Type:    model.ResponseTypeValidationError,
			Message: message,
			Details: details,
		},
	})
}

// BadRequest 400 错误
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, model.ResponseTypeValidationError, message)
}

// BadRequestWithValidation 400 错误（带验证详情）
func BadRequestWithValidation(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]model.ErrorDetail, 0, len(validationErrs))
		for _, fieldErr := range validationErrs {
			details = append(details, model.ErrorDetail{
				Path: fieldErr.Field(),
				Info: validationMessage(fieldErr),
			})
		}
		ErrorWithDetails(c, http.StatusBadRequest, "Validation failed", details)
		return
	}

	BadRequest(c, err.Error())
}

// NotFound 404 错误
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, model.ResponseTypeNotFound, message)
}

// InternalError 500 错误
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, model.ResponseTypeInternalError, message)
}

// FromError 按错误分类映射状态码
func FromError(c *gin.Context, err error) {
	switch errorutil.KindOf(err) {
	case errorutil.KindNotFound:
		NotFound(c, err.Error())
	case errorutil.KindMalformed:
		BadRequest(c, err.Error())
	case errorutil.KindTransient:
		Error(c, http.StatusServiceUnavailable, model.ResponseTypeInternalError, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

func validationMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return fieldErr.Field() + " is required"
	case "oneof":
		return fieldErr.Field() + " must be one of [" + fieldErr.Param() + "]"
	case "min":
		return fieldErr.Field() + " must be at least " + fieldErr.Param()
	case "max":
		return fieldErr.Field() + " must be at most " + fieldErr.Param()
	default:
		return fieldErr.Field() + " is invalid"
	}
}
