package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"hangartalk/pkg/logger"
	"hangartalk/pkg/utils"
)

// RegisterSigning registers the signing endpoint onto the provided router.
// This endpoint is protected by the existing security middleware (backend API keys)
// and will use the caller's API key value as the signing secret.
func RegisterSigning(r *mux.Router) {
	r.HandleFunc("/_sign", signHandler).Methods(http.MethodPost)
}

// signHandler generates an HMAC-SHA256 signature for a given userId using
// the caller's API key as the secret. Only backend keys may request
// signatures; clients then present X-User-ID/X-User-Signature pairs.
func signHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	role := r.Header.Get("X-Role-Name")
	if role != "backend" {
		logger.Warn("sign_forbidden", "role", role, "remote", r.RemoteAddr)
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}

	// determine the API key used by reading Authorization or X-API-Key header
	auth := r.Header.Get("Authorization")
	var key string
	if len(auth) > 7 && (auth[:7] == "Bearer " || auth[:7] == "bearer ") {
		key = auth[7:]
	}
	if key == "" {
		key = r.Header.Get("X-API-Key")
	}
	if key == "" {
		logger.Warn("sign_missing_api_key", "remote", r.RemoteAddr)
		utils.JSONError(w, http.StatusUnauthorized, "missing api key")
		return
	}

	var payload struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.UserID == "" {
		logger.Warn("sign_invalid_payload", "error", err, "remote", r.RemoteAddr)
		utils.JSONError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(payload.UserID))
	sig := hex.EncodeToString(mac.Sum(nil))
	if err := json.NewEncoder(w).Encode(map[string]string{"userId": payload.UserID, "signature": sig}); err != nil {
		logger.Error("sign_encode_failed", "error", err, "remote", r.RemoteAddr)
	}
}
