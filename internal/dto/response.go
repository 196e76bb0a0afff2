package dto

// ServiceResponse is the uniform envelope returned by every endpoint,
// including middleware rejections. StatusCode mirrors the HTTP status.
type ServiceResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ResponseObject any    `json:"responseObject"`
	StatusCode     int    `json:"statusCode"`
}

func SuccessResponse(message string, obj any, statusCode int) ServiceResponse {
	return ServiceResponse{Success: true, Message: message, ResponseObject: obj, StatusCode: statusCode}
}

func FailureResponse(message string, statusCode int) ServiceResponse {
	return ServiceResponse{Success: false, Message: message, ResponseObject: nil, StatusCode: statusCode}
}
