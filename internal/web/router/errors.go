package router

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error  ErrorDetail `json:"error"`
	Status int         `json:"status"`
	Path   string      `json:"path,omitempty"`
	Method string      `json:"method,omitempty"`
}

// ErrorDetail contains detailed error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HTTPError is an error a pre-handler returns to stop the request with a
// specific status
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Header  http.Header // Added to the response before it is written
	Err     error
}

// NewHTTPError creates an HTTPError
func NewHTTPError(status int, code, message string) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message}
}

// Unauthorized returns a 401 HTTPError wrapping err
func Unauthorized(message string, err error) *HTTPError {
	if message == "" {
		message = "Unauthorized"
	}
	return &HTTPError{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: message, Err: err}
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %s: %v", e.Status, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func (e *HTTPError) Unwrap() error { return e.Err }

// ErrorHandler provides default error handlers
type ErrorHandler struct {
	// Include detailed errors in responses (disable in production)
	ShowDetails bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(showDetails bool) *ErrorHandler {
	return &ErrorHandler{
		ShowDetails: showDetails,
	}
}

// NotFoundHandler returns a handler for 404 Not Found errors
func (eh *ErrorHandler) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "The requested resource was not found",
			},
			Status: http.StatusNotFound,
			Path:   r.URL.Path,
			Method: r.Method,
		}
		writeJSONError(w, http.StatusNotFound, resp)
	}
}

// MethodNotAllowedHandler returns a handler for 405 Method Not Allowed errors
func (eh *ErrorHandler) MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := ErrorResponse{
			Error: ErrorDetail{
				Code:    "METHOD_NOT_ALLOWED",
				Message: fmt.Sprintf("Method %s is not allowed for this resource", r.Method),
			},
			Status: http.StatusMethodNotAllowed,
			Path:   r.URL.Path,
			Method: r.Method,
		}

		if eh.ShowDetails {
			resp.Error.Details = map[string]interface{}{
				"allow": w.Header().Get("Allow"),
			}
		}

		writeJSONError(w, http.StatusMethodNotAllowed, resp)
	}
}

// WriteError writes an error response
func WriteError(w http.ResponseWriter, status int, code, message string) {
	resp := ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
		Status: status,
	}
	writeJSONError(w, status, resp)
}

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp) // Error is logged elsewhere
}

// SetupDefaultErrorHandlers configures the router with default error handlers
func SetupDefaultErrorHandlers(r *Router, showDetails bool) {
	eh := NewErrorHandler(showDetails)
	r.NotFound(eh.NotFoundHandler())
	r.MethodNotAllowed(eh.MethodNotAllowedHandler())
}
