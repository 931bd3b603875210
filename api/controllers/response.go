package controllers

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}

// SuccessResponse 成功响应
func SuccessResponse(msg string, data interface{}) *APIResponse {
	return &APIResponse{
		Status: 0,
		Msg:    msg,
		Data:   data,
	}
}

// ErrorResponse 错误响应，code 仅用于日志与调用方区分，响应体状态统一为 -1
func ErrorResponse(code int, msg string, err error) *APIResponse {
	response := &APIResponse{
		Status: -1,
		Msg:    msg,
	}
	if err != nil {
		response.Data = map[string]interface{}{
			"code":  code,
			"error": err.Error(),
		}
	}
	return response
}

// BadRequestResponse 参数错误响应
func BadRequestResponse(msg string, data interface{}) *APIResponse {
	return &APIResponse{
		Status: -1,
		Msg:    msg,
		Data:   data,
	}
}

// NotFoundResponse 资源不存在响应
func NotFoundResponse(msg string) *APIResponse {
	return &APIResponse{
		Status: -1,
		Msg:    msg,
	}
}
