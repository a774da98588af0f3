package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"imagestudio/internal/history"
)

type versionSummary struct {
	ID           string    `json:"id"`
	ParentID     string    `json:"parent_id,omitempty"`
	OriginPrompt string    `json:"origin_prompt"`
	MIMEType     string    `json:"mime_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// HistoryOpenSession creates a fresh session with an empty version history.
func (a *App) HistoryOpenSession(w http.ResponseWriter, r *http.Request) {
	id := a.Sessions.Open()
	a.json(w, http.StatusCreated, map[string]string{"session_id": id})
}

// HistoryGetSession lists a session's versions newest first plus the current
// selection. Image payloads are not inlined; they are fetched per version.
func (a *App) HistoryGetSession(w http.ResponseWriter, r *http.Request) {
	store, ok := a.store(w, r)
	if !ok {
		return
	}

	versions := store.Versions()
	items := make([]versionSummary, 0, len(versions))
	for _, v := range versions {
		items = append(items, versionSummary{
			ID:           v.ID,
			ParentID:     v.ParentID,
			OriginPrompt: v.OriginPrompt,
			MIMEType:     v.MIMEType,
			CreatedAt:    v.CreatedAt,
		})
	}

	selectedID := ""
	if selected, exists := store.Selected(); exists {
		selectedID = selected.ID
	}

	a.json(w, http.StatusOK, map[string]any{
		"versions":    items,
		"selected_id": selectedID,
	})
}

// HistorySelect changes which version is the preview and the base for the next
// edit. Selecting an unknown version leaves the selection untouched.
func (a *App) HistorySelect(w http.ResponseWriter, r *http.Request) {
	store, ok := a.store(w, r)
	if !ok {
		return
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		a.error(w, http.StatusBadRequest, "version id required")
		return
	}

	if err := store.Select(body.ID); err != nil {
		a.error(w, http.StatusNotFound, "unknown version id")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HistoryDownload serves one version's image bytes for preview or download.
func (a *App) HistoryDownload(w http.ResponseWriter, r *http.Request) {
	store, ok := a.store(w, r)
	if !ok {
		return
	}

	version, exists := store.Get(chi.URLParam(r, "version_id"))
	if !exists {
		a.error(w, http.StatusNotFound, "unknown version id")
		return
	}

	ext := "png"
	if version.MIMEType == "image/jpeg" {
		ext = "jpg"
	}
	w.Header().Set("Content-Type", version.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", version.ID, ext))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(version.ImageData)
}

// HistoryCloseSession tears the session down; its versions are discarded.
func (a *App) HistoryCloseSession(w http.ResponseWriter, r *http.Request) {
	a.Sessions.Close(chi.URLParam(r, "session_id"))
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) store(w http.ResponseWriter, r *http.Request) (*history.Store, bool) {
	store, ok := a.Sessions.Get(chi.URLParam(r, "session_id"))
	if !ok {
		a.error(w, http.StatusNotFound, "unknown session")
		return nil, false
	}
	return store, true
}
