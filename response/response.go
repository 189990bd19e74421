package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform shape of every API response
type Envelope struct {
	Result   interface{} `json:"result"`
	Messages []string    `json:"messages"`
}

// WriteResponse will write the result wrapped in the response envelope
func WriteResponse(w http.ResponseWriter, r *http.Request, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(Envelope{
		Result:   result,
		Messages: []string{},
	})
}

// WriteError will write the error with its status code in the response envelope
func WriteError(w http.ResponseWriter, r *http.Request, e *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	messages := e.Messages
	if len(e.Message) > 0 {
		messages = append([]string{e.Message}, messages...)
	}
	json.NewEncoder(w).Encode(Envelope{
		Result:   e.Result,
		Messages: messages,
	})
}
