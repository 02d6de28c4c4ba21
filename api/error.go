package api

// ErrorResponse is the JSON body of every structured error returned by the image proxy.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Success: false, Error: message}
}

type HealthResponse struct {
	Status string `json:"status"`
}
