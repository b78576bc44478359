package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes data as a JSON body with the given status
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteCreated answers 201 with the id of the new resource
func WriteCreated(w http.ResponseWriter, id int64) {
	JSON(w, http.StatusCreated, Created{ID: id})
}
