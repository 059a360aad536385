package api

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

func generateRandomString(length int) string {
	byteLength := (length * 3) / 4
	if byteLength < length {
		byteLength = length
	}

	b := make([]byte, byteLength)
	rand.Read(b)
	encoded := base64.URLEncoding.EncodeToString(b)
	if len(encoded) > length {
		return encoded[:length]
	}
	return encoded
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// guildFromPath parses {guild_id} and checks the caller can see that guild.
// It writes the error response itself and returns ok=false on failure.
func (a *API) guildFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	guildID, err := strconv.ParseInt(mux.Vars(r)["guild_id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid guild_id", http.StatusBadRequest)
		return 0, false
	}
	claims := claimsFrom(r)
	if claims == nil || !a.userHasGuildAccess(r.Context(), claims.AccessToken, guildID) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return 0, false
	}
	return guildID, true
}
