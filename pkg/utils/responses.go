package utils

import (
	"encoding/json"
	"net/http"
)

type Response struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// WriteResponse writes resp as JSON with the given status code.
func WriteResponse(w http.ResponseWriter, statusCode int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// 200 OK
func ResponseSuccess(w http.ResponseWriter, message string, data any) {
	WriteResponse(w, http.StatusOK, Response{Status: true, Message: message, Data: data})
}

// 201 Created
func ResponseCreated(w http.ResponseWriter, message string, data any) {
	WriteResponse(w, http.StatusCreated, Response{Status: true, Message: message, Data: data})
}

// 400 Bad Request
func ResponseBadRequest(w http.ResponseWriter, message string, errors any) {
	WriteResponse(w, http.StatusBadRequest, Response{Message: message, Code: "validation_failed", Errors: errors})
}

// 401 Unauthorized
func ResponseUnauthorized(w http.ResponseWriter, message string) {
	WriteResponse(w, http.StatusUnauthorized, Response{Message: message, Code: "unauthorized"})
}

// 403 Forbidden
func ResponseForbidden(w http.ResponseWriter, message string) {
	WriteResponse(w, http.StatusForbidden, Response{Message: message, Code: "forbidden"})
}

// 404 Not Found
func ResponseNotFound(w http.ResponseWriter, message string) {
	WriteResponse(w, http.StatusNotFound, Response{Message: message, Code: "not_found"})
}

// 409 Conflict. code tells the client which kind of conflict happened.
func ResponseConflict(w http.ResponseWriter, code, message string) {
	WriteResponse(w, http.StatusConflict, Response{Message: message, Code: code})
}

// 500 Internal Server Error
func ResponseInternalError(w http.ResponseWriter, message string) {
	WriteResponse(w, http.StatusInternalServerError, Response{Message: message, Code: "internal_error"})
}
