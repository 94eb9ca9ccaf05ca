package serverutils

type BaseResponse[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func SuccessResponse[T any](message string, data T) BaseResponse[T] {
	return BaseResponse[T]{Success: true, Message: message, Data: data}
}

func ErrorResponse(message string, errors any) BaseResponse[any] {
	return BaseResponse[any]{Success: false, Message: message, Errors: errors}
}
