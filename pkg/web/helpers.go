package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	// Handle nil payload
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, map[string]string{"error": message})
}

// ParseID extracts and validates a path parameter as a UUID.
// Returns the ID and a boolean indicating success.
func ParseID(w http.ResponseWriter, r *http.Request, logger *slog.Logger, key string) (uuid.UUID, bool) {
	pathValue := r.PathValue(key)
	id, err := uuid.Parse(pathValue)
	if err != nil {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s: %s", key, pathValue))
		return uuid.UUID{}, false
	}
	return id, true
}

// GetUser retrieves the user identity from the request context.
// Returns the identity and a boolean indicating success.
func GetUser(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, bool) {
	user, ok := r.Context().Value(UserIDKey).(string)
	if !ok || user == "" {
		RespondError(w, logger, http.StatusUnauthorized, "Unauthorized: Missing or invalid user identity")
		return "", false
	}
	return user, true
}
