package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mapgame/mapgame/internal/model"
	"github.com/mapgame/mapgame/internal/store"
)

const maxInteractionLimit = 500

// MapHandler serves the exhibit catalog: the public map API and the admin
// CRUD endpoints for map objects.
type MapHandler struct {
	store  *store.Store
	logger *slog.Logger
}

// NewMapHandler creates a new MapHandler.
func NewMapHandler(st *store.Store, logger *slog.Logger) *MapHandler {
	return &MapHandler{store: st, logger: logger}
}

// ---------------------------------------------------------------------------
// Public map API
// ---------------------------------------------------------------------------

// ListObjects returns the discoverable objects.
// GET /api/map/objects
func (h *MapHandler) ListObjects(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, store.MapObjectFilter{DiscoverableOnly: true})
}

// ObjectsByType returns the discoverable objects of one type, compared
// case-insensitively.
// GET /api/map/objects/type/{type}
func (h *MapHandler) ObjectsByType(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, store.MapObjectFilter{DiscoverableOnly: true, Type: chi.URLParam(r, "type")})
}

// UnlockedObjects returns the discoverable objects that are unlocked.
// GET /api/map/objects/unlocked
func (h *MapHandler) UnlockedObjects(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, store.MapObjectFilter{DiscoverableOnly: true, UnlockedOnly: true})
}

func (h *MapHandler) list(w http.ResponseWriter, r *http.Request, f store.MapObjectFilter) {
	objects, err := h.store.ListMapObjects(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list map objects")
		h.logger.Error("list map objects", "error", err)
		return
	}
	writeList(w, objects)
}

// NearbyObjects returns the discoverable objects within radius of (x, y, z),
// nearest first. Missing coordinates default to 0 and radius to 100.
// GET /api/map/objects/nearby?x=&y=&z=&radius=
func (h *MapHandler) NearbyObjects(w http.ResponseWriter, r *http.Request) {
	var coords [4]float64
	for i, p := range []struct {
		key string
		def float64
	}{{"x", 0}, {"y", 0}, {"z", 0}, {"radius", store.DefaultNearbyRadius}} {
		v, err := queryFloat(r, p.key, p.def)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		coords[i] = v
	}

	objects, err := h.store.NearbyMapObjects(r.Context(), coords[0], coords[1], coords[2], coords[3])
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query nearby objects")
		h.logger.Error("nearby map objects", "error", err)
		return
	}
	writeList(w, objects)
}

// GetObject returns a single map object.
// GET /api/map/objects/{id}, GET /api/admin/map-objects/{id}
func (h *MapHandler) GetObject(w http.ResponseWriter, r *http.Request) {
	obj, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

type interactionRequest struct {
	PlayerID        string `json:"player_id"`
	InteractionType string `json:"interaction_type"`
	InteractionData string `json:"interaction_data"`
	Duration        int    `json:"duration"`
}

// Interact records a player interaction with a map object.
// POST /api/map/objects/{id}/interact
func (h *MapHandler) Interact(w http.ResponseWriter, r *http.Request) {
	obj, ok := h.load(w, r)
	if !ok {
		return
	}

	var req interactionRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.PlayerID) == "" || strings.TrimSpace(req.InteractionType) == "" {
		writeError(w, http.StatusBadRequest, "player_id and interaction_type are required")
		return
	}
	if req.Duration < 0 {
		writeError(w, http.StatusBadRequest, "duration must not be negative")
		return
	}

	in := &model.Interaction{
		PlayerID:        req.PlayerID,
		MapObjectID:     obj.ID,
		InteractionType: req.InteractionType,
		InteractionData: req.InteractionData,
		Duration:        req.Duration,
		WasSuccessful:   true,
	}
	if err := h.store.CreateInteraction(r.Context(), in); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to log interaction")
		h.logger.Error("create interaction", "map_object_id", obj.ID, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":        "Interaction logged successfully",
		"interaction_id": in.ID,
	})
}

// ---------------------------------------------------------------------------
// Admin CRUD
// ---------------------------------------------------------------------------

// AdminList returns every map object, including hidden ones, optionally
// narrowed by ?type=, ?discoverable=true and ?unlocked=true.
// GET /api/admin/map-objects
func (h *MapHandler) AdminList(w http.ResponseWriter, r *http.Request, _ *model.Admin) {
	h.list(w, r, store.MapObjectFilter{
		Type:             r.URL.Query().Get("type"),
		DiscoverableOnly: queryBool(r, "discoverable"),
		UnlockedOnly:     queryBool(r, "unlocked"),
	})
}

// AdminInteractions returns the most recent interactions with a map object.
// GET /api/admin/map-objects/{id}/interactions?limit=
func (h *MapHandler) AdminInteractions(w http.ResponseWriter, r *http.Request, _ *model.Admin) {
	obj, ok := h.load(w, r)
	if !ok {
		return
	}
	limit := clampInt(queryInt(r, "limit", store.DefaultInteractionLimit), 1, maxInteractionLimit)
	interactions, err := h.store.ListInteractions(r.Context(), obj.ID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list interactions")
		h.logger.Error("list interactions", "map_object_id", obj.ID, "error", err)
		return
	}
	writeList(w, interactions)
}

// AdminGet returns a single map object.
// GET /api/admin/map-objects/{id}
func (h *MapHandler) AdminGet(w http.ResponseWriter, r *http.Request, _ *model.Admin) {
	h.GetObject(w, r)
}

// AdminCreate adds a map object. Name and type are required; omitted flags
// take the catalog defaults.
// POST /api/admin/map-objects
func (h *MapHandler) AdminCreate(w http.ResponseWriter, r *http.Request, admin *model.Admin) {
	obj := model.NewMapObject()
	if err := readJSON(w, r, &obj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if msg := validateMapObject(&obj); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	obj.ID = 0

	if err := h.store.CreateMapObject(r.Context(), &obj); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create map object")
		h.logger.Error("create map object", "error", err)
		return
	}
	h.logger.Info("map object created", "map_object_id", obj.ID, "admin_id", admin.ID)
	writeJSON(w, http.StatusCreated, obj)
}

// AdminUpdate replaces a map object's fields.
// PUT /api/admin/map-objects/{id}
func (h *MapHandler) AdminUpdate(w http.ResponseWriter, r *http.Request, admin *model.Admin) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}

	updated := *existing
	if err := readJSON(w, r, &updated); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if updated.ID != existing.ID {
		writeError(w, http.StatusBadRequest, "ID mismatch")
		return
	}
	if msg := validateMapObject(&updated); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	updated.CreatedAt = existing.CreatedAt

	if err := h.store.UpdateMapObject(r.Context(), &updated); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Map object not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update map object")
		h.logger.Error("update map object", "map_object_id", existing.ID, "error", err)
		return
	}
	h.logger.Info("map object updated", "map_object_id", updated.ID, "admin_id", admin.ID)
	writeJSON(w, http.StatusOK, updated)
}

// AdminDelete removes a map object and its interaction log.
// DELETE /api/admin/map-objects/{id}
func (h *MapHandler) AdminDelete(w http.ResponseWriter, r *http.Request, admin *model.Admin) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.DeleteMapObject(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Map object not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete map object")
		return
	}
	h.logger.Info("map object deleted", "map_object_id", id, "admin_id", admin.ID)
	w.WriteHeader(http.StatusNoContent)
}

// load fetches the map object named by the {id} URL parameter, writing the
// error response itself when it cannot.
func (h *MapHandler) load(w http.ResponseWriter, r *http.Request) (*model.MapObject, bool) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	obj, err := h.store.GetMapObject(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Map object not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get map object")
		return nil, false
	}
	return obj, true
}

func validateMapObject(o *model.MapObject) string {
	o.Name = strings.TrimSpace(o.Name)
	o.Type = strings.TrimSpace(o.Type)
	switch {
	case o.Name == "":
		return "Name is required"
	case o.Type == "":
		return "Type is required"
	case o.DifficultyLevel < 1:
		return "difficulty_level must be at least 1"
	case o.ExperienceValue < 0:
		return "experience_value must not be negative"
	}
	return ""
}
