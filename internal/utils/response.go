package utils

import "time"

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(message, detail string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
		Error:   detail,
	}
}

func UnixTimeToTime(ts int64) time.Time {
	return time.Unix(ts, 0).UTC()
}
