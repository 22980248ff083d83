package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes v as a JSON body with the given status
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) // the client is gone if this fails
}

// NoContent writes a 204 with no body
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Page is the envelope of a paginated list
type Page struct {
	Data       []map[string]interface{} `json:"data"`
	Page       int64                    `json:"page"`
	Limit      int64                    `json:"limit"`
	Total      int64                    `json:"total"`
	TotalPages int64                    `json:"totalPages"`
}
