package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/susu3304/potbot/internal/db"
	"github.com/susu3304/potbot/internal/game"
)

// Protected handlers
func (a *API) handleUserGuilds(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	guilds, err := a.getDiscordGuilds(r.Context(), claims.AccessToken)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to get guilds: %v", err), http.StatusBadGateway)
		return
	}

	registeredIDs, err := a.store.RegisteredGuildIDs(r.Context())
	if err != nil {
		http.Error(w, "failed to get registered guilds", http.StatusInternalServerError)
		return
	}

	registeredMap := make(map[int64]bool)
	for _, id := range registeredIDs {
		registeredMap[id] = true
	}

	filtered := []DiscordGuild{}
	for _, guild := range guilds {
		guildID, _ := strconv.ParseInt(guild.ID, 10, 64)
		if registeredMap[guildID] {
			filtered = append(filtered, guild)
		}
	}

	writeJSON(w, http.StatusOK, filtered)
}

func (a *API) handleListSessions(w http.ResponseWriter, r *http.Request) {
	guildID, ok := a.guildFromPath(w, r)
	if !ok {
		return
	}

	sessions, err := a.store.ListSessions(r.Context(), guildID)
	if err != nil {
		log.Printf("api: list sessions for %d: %v", guildID, err)
		http.Error(w, "failed to list sessions", http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []db.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (a *API) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.sessionFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	guildID, ok := a.guildFromPath(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["session_id"])
	if err != nil {
		http.Error(w, "invalid session_id", http.StatusBadRequest)
		return
	}

	if err := a.store.DeleteSession(r.Context(), guildID, id); err != nil {
		if errors.Is(err, db.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		log.Printf("api: delete session %s: %v", id, err)
		http.Error(w, "failed to delete session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "session deleted",
	})
}

func (a *API) handleSessionTasks(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.sessionFromPath(w, r)
	if !ok {
		return
	}

	tasks, err := a.store.PendingTasks(r.Context(), sess.ID)
	if err != nil {
		log.Printf("api: pending tasks for %s: %v", sess.ID, err)
		http.Error(w, "failed to list tasks", http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []game.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (a *API) sessionFromPath(w http.ResponseWriter, r *http.Request) (*game.Session, bool) {
	guildID, ok := a.guildFromPath(w, r)
	if !ok {
		return nil, false
	}
	id, err := uuid.Parse(mux.Vars(r)["session_id"])
	if err != nil {
		http.Error(w, "invalid session_id", http.StatusBadRequest)
		return nil, false
	}

	sess, err := a.store.GetSession(r.Context(), guildID, id)
	if err != nil {
		if errors.Is(err, db.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return nil, false
		}
		log.Printf("api: get session %s: %v", id, err)
		http.Error(w, "failed to get session", http.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}
