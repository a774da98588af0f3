package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"imagestudio/internal/history"
	"imagestudio/internal/providers/openai"
	"imagestudio/internal/render"
)

type renderResponse struct {
	B64       string `json:"b64"`
	MIMEType  string `json:"mime_type"`
	VersionID string `json:"version_id,omitempty"`
	ParentID  string `json:"parent_id,omitempty"`
}

// Generate validates a generation request, performs the single provider call,
// and returns the image as base64. With a session header, the result is also
// recorded as a new root version in that session's history.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var in render.GenerateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		a.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := render.BuildGenerate(in)
	if err != nil {
		a.error(w, http.StatusBadRequest, err.Error())
		return
	}

	a.render(w, r, req, "")
}

// Edit validates an edit request and dispatches it. With a session header, the
// result is recorded as a child of the session's currently selected version,
// so editing an older selection branches the history.
func (a *App) Edit(w http.ResponseWriter, r *http.Request) {
	var in render.EditInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		a.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := render.BuildEdit(in)
	if err != nil {
		a.error(w, http.StatusBadRequest, err.Error())
		return
	}

	parentID := ""
	if store, ok := a.sessionStore(r); ok {
		if selected, exists := store.Selected(); exists {
			parentID = selected.ID
		}
	}

	a.render(w, r, req, parentID)
}

func (a *App) render(w http.ResponseWriter, r *http.Request, req *render.Request, parentID string) {
	img, err := a.Renderer.Render(r.Context(), req)
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	resp := renderResponse{
		B64:      base64.StdEncoding.EncodeToString(img.Data),
		MIMEType: img.MIMEType,
	}

	// A failed recording must not lose the rendered image; worst case the
	// version just does not appear in the session history.
	if store, ok := a.sessionStore(r); ok {
		versionID, addErr := store.AddVersion(img.Data, img.MIMEType, req.Prompt, parentID)
		if addErr != nil {
			a.Logger.Warn().Err(addErr).Msg("failed to record history version")
		} else {
			resp.VersionID = versionID
			resp.ParentID = parentID
		}
	}

	a.json(w, http.StatusOK, resp)
}

// renderError maps the error taxonomy to status codes: upstream contract
// violations (success without image data) are 502, everything else from the
// dispatcher — provider rejections and transport failures alike — is 500.
func (a *App) renderError(w http.ResponseWriter, r *http.Request, err error) {
	a.Logger.Error().
		Err(err).
		Str("path", r.URL.Path).
		Msg("render failed")

	if errors.Is(err, openai.ErrNoImage) {
		a.error(w, http.StatusBadGateway, err.Error())
		return
	}
	a.error(w, http.StatusInternalServerError, err.Error())
}

func (a *App) sessionStore(r *http.Request) (*history.Store, bool) {
	if a.Sessions == nil {
		return nil, false
	}
	id := r.Header.Get(SessionHeader)
	if id == "" {
		return nil, false
	}
	return a.Sessions.Get(id)
}
