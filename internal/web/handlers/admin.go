package handlers

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-gate/internal/logger"
)

// AdminHandler serves the administrator API.
type AdminHandler struct {
	enroller Enroller
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(enroller Enroller) *AdminHandler {
	return &AdminHandler{enroller: enroller}
}

type labelsResponse struct {
	Labels []string `json:"labels"`
}

type armStatusResponse struct {
	Armed bool   `json:"armed"`
	Label string `json:"label,omitempty"`
}

type overviewResponse struct {
	Labels     []string `json:"labels"`
	Armed      bool     `json:"armed"`
	ArmedLabel string   `json:"armed_label,omitempty"`
}

type labelResponse struct {
	Label   string `json:"label"`
	Message string `json:"message"`
}

type armRequest struct {
	Name string `json:"name"`
}

type renameRequest struct {
	NewName string `json:"new_name"`
}

// isJSON reports whether the request body is JSON rather than a form.
func isJSON(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/json"
}

// formValue returns the first non-empty form value among keys. The legacy
// admin page posted Portuguese field names, which are still accepted.
func formValue(r *http.Request, keys ...string) string {
	for _, key := range keys {
		if v := r.FormValue(key); v != "" {
			return v
		}
	}
	return ""
}

func (h *AdminHandler) armStatus() armStatusResponse {
	label, armed := h.enroller.Armed()
	return armStatusResponse{Armed: armed, Label: label}
}

// Overview returns the labels and the arming state together.
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	labels, err := h.enroller.ListLabels(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	label, armed := h.enroller.Armed()
	respondJSON(w, http.StatusOK, overviewResponse{Labels: labels, Armed: armed, ArmedLabel: label})
}

// List returns every enrolled label sorted ascending.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	labels, err := h.enroller.ListLabels(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, labelsResponse{Labels: labels})
}

// ArmStatus reports the pending label.
func (h *AdminHandler) ArmStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.armStatus())
}

// Arm sets the label for the next enrolled signature.
func (h *AdminHandler) Arm(w http.ResponseWriter, r *http.Request) {
	var name string
	if isJSON(r) {
		var req armRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
		name = req.Name
	} else {
		name = formValue(r, "name", "nome")
	}

	label, err := h.enroller.Arm(r.Context(), name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, labelResponse{
		Label:   label,
		Message: "ready to register " + label + ", enroll the face on the camera",
	})
}

// Disarm cancels the pending label.
func (h *AdminHandler) Disarm(w http.ResponseWriter, r *http.Request) {
	label, ok := h.enroller.Disarm(r.Context())
	if !ok {
		respondError(w, http.StatusNotFound, "no registration armed")
		return
	}
	respondJSON(w, http.StatusOK, labelResponse{Label: label, Message: "registration cancelled"})
}

// Delete removes the face named in the URL.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.enroller.DeleteLabel(r.Context(), name); err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, labelResponse{Label: name, Message: "face deleted"})
}

// Rename moves the face named in the URL to the new name in the body.
func (h *AdminHandler) Rename(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var newName string
	if isJSON(r) {
		var req renameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
		newName = req.NewName
	} else {
		newName = formValue(r, "new_name", "novo_nome")
	}

	if err := h.enroller.RenameLabel(r.Context(), name, newName); err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, labelResponse{Label: newName, Message: "face renamed"})
}

func (h *AdminHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorKV(r.Context(), "admin request failed", "path", sanitizeForLog(r.URL.Path), "error", err)
	}
	respondError(w, status, message)
}
