package models

// Коды ошибок API.
const (
	ErrCodeBadRequest          = 40000
	ErrCodeValidation          = 40001
	ErrCodeCrossStoryReference = 40002
	ErrCodeStoryMismatch       = 40003
	ErrCodeInvalidChoiceSet    = 40004
	ErrCodeUnauthorized        = 40100
	ErrCodeWrongCredentials    = 40101
	ErrCodeTokenInvalid        = 40102
	ErrCodeTokenExpired        = 40103
	ErrCodeForbidden           = 40300
	ErrCodeNotFound            = 40400
	ErrCodeConflict            = 40900
	ErrCodeDuplicateEmail      = 40901
	ErrCodeInternal            = 50000
	ErrCodeStoreUnavailable    = 50300
)

// ErrorResponse - стандартная структура для ответа об ошибке в формате JSON.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MessageResponse - ответ без полезной нагрузки (например, после удаления).
type MessageResponse struct {
	Message string `json:"message"`
}
