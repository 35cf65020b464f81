package dto

// ErrorRes is the body of every non-2xx answer.
type ErrorRes struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}
