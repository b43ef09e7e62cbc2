package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/HammerMeetNail/giftcircle/internal/apperr"
)

type errorBody struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

func writeError(w http.ResponseWriter, e *apperr.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(map[string]errorBody{"error": {Code: e.Code, Message: e.Message}})
}
