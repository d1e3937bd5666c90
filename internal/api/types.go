package api

import "github.com/reportwell/notifyfeed/internal/model"

// ListResponse is the response from GET /notifications/list/{receiverId}/.
type ListResponse struct {
	Notifications []model.Notification `json:"notifications"`
}

// ErrorResponse is the error body returned by the API on failure.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
