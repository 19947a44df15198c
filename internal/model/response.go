package model

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
// Reason is a stable machine-readable code (e.g. NO_SESSION) that front ends
// can branch on without parsing Message.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// ListResponse wraps list results in a "resource" array, matching the shape
// the admin front end already consumes.
type ListResponse struct {
	Resource interface{}   `json:"resource"`
	Meta     *ResponseMeta `json:"meta,omitempty"`
}

// ResponseMeta carries the count of returned items.
type ResponseMeta struct {
	Count int `json:"count"`
}
