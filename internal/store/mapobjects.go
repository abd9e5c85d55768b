package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mapgame/mapgame/internal/model"
)

// DefaultNearbyRadius is used by NearbyMapObjects when radius is not positive.
const DefaultNearbyRadius = 100.0

// DefaultInteractionLimit is used by ListInteractions when limit is not
// positive.
const DefaultInteractionLimit = 50

// MapObjectFilter narrows ListMapObjects. Zero values match everything.
type MapObjectFilter struct {
	DiscoverableOnly bool
	UnlockedOnly     bool
	Type             string // case-insensitive
}

// ---------------------------------------------------------------------------
// Map object CRUD
// ---------------------------------------------------------------------------

// CreateMapObject inserts a new map object. The ID, CreatedAt, and UpdatedAt
// fields are populated after a successful insert.
func (s *Store) CreateMapObject(ctx context.Context, obj *model.MapObject) error {
	now := s.Now()
	obj.CreatedAt = now
	obj.UpdatedAt = now

	const q = `INSERT INTO map_objects
		(name, description, type, category, era, manufacturer, first_flight, status,
		 x, y, z, image_url, model_url, video_360_url,
		 is_interactive, is_discoverable, is_unlocked, experience_value, difficulty_level,
		 created_at, updated_at)
		VALUES
		(:name, :description, :type, :category, :era, :manufacturer, :first_flight, :status,
		 :x, :y, :z, :image_url, :model_url, :video_360_url,
		 :is_interactive, :is_discoverable, :is_unlocked, :experience_value, :difficulty_level,
		 :created_at, :updated_at)
		RETURNING id`

	id, err := insertReturningID(ctx, s.db, q, obj)
	if err != nil {
		return classify("insert map object", err)
	}
	obj.ID = id
	return nil
}

// GetMapObject returns a map object by ID.
func (s *Store) GetMapObject(ctx context.Context, id int64) (*model.MapObject, error) {
	var obj model.MapObject
	if err := s.db.GetContext(ctx, &obj, s.db.Rebind("SELECT * FROM map_objects WHERE id = ?"), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get map object: %w", err)
	}
	return &obj, nil
}

// ListMapObjects returns the map objects matching f ordered by name.
func (s *Store) ListMapObjects(ctx context.Context, f MapObjectFilter) ([]model.MapObject, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.DiscoverableOnly {
		where = append(where, "is_discoverable = ?")
		args = append(args, true)
	}
	if f.UnlockedOnly {
		where = append(where, "is_unlocked = ?")
		args = append(args, true)
	}
	if f.Type != "" {
		where = append(where, "LOWER(type) = ?")
		args = append(args, strings.ToLower(f.Type))
	}

	q := "SELECT * FROM map_objects"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY name, id"

	objects := []model.MapObject{}
	if err := s.db.SelectContext(ctx, &objects, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list map objects: %w", err)
	}
	return objects, nil
}

// NearbyMapObjects returns the discoverable objects within radius of the
// point (x, y, z), nearest first. A non-positive radius falls back to
// DefaultNearbyRadius.
func (s *Store) NearbyMapObjects(ctx context.Context, x, y, z, radius float64) ([]model.MapObject, error) {
	if radius <= 0 {
		radius = DefaultNearbyRadius
	}
	all, err := s.ListMapObjects(ctx, MapObjectFilter{DiscoverableOnly: true})
	if err != nil {
		return nil, err
	}

	nearby := make([]model.MapObject, 0, len(all))
	for _, o := range all {
		if o.DistanceTo(x, y, z) <= radius {
			nearby = append(nearby, o)
		}
	}
	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceTo(x, y, z) < nearby[j].DistanceTo(x, y, z)
	})
	return nearby, nil
}

// UpdateMapObject updates an existing map object. The UpdatedAt field is
// refreshed automatically.
func (s *Store) UpdateMapObject(ctx context.Context, obj *model.MapObject) error {
	obj.UpdatedAt = s.Now()

	const q = `UPDATE map_objects SET
		name = :name, description = :description, type = :type, category = :category, era = :era,
		manufacturer = :manufacturer, first_flight = :first_flight, status = :status,
		x = :x, y = :y, z = :z, image_url = :image_url, model_url = :model_url,
		video_360_url = :video_360_url, is_interactive = :is_interactive,
		is_discoverable = :is_discoverable, is_unlocked = :is_unlocked,
		experience_value = :experience_value, difficulty_level = :difficulty_level,
		updated_at = :updated_at
		WHERE id = :id`

	named, args, err := s.db.BindNamed(q, obj)
	if err != nil {
		return fmt.Errorf("bind map object: %w", err)
	}
	result, err := s.db.ExecContext(ctx, named, args...)
	if err != nil {
		return fmt.Errorf("update map object: %w", err)
	}
	return rowsAffected(result, "update map object")
}

// DeleteMapObject removes a map object by ID. Its interactions are cascade
// deleted by the foreign key constraint.
func (s *Store) DeleteMapObject(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM map_objects WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete map object: %w", err)
	}
	return rowsAffected(result, "delete map object")
}

// ---------------------------------------------------------------------------
// Interactions
// ---------------------------------------------------------------------------

// CreateInteraction records a player interaction. Timestamp defaults to now
// when zero.
func (s *Store) CreateInteraction(ctx context.Context, in *model.Interaction) error {
	if in.Timestamp.IsZero() {
		in.Timestamp = s.Now()
	}

	const q = `INSERT INTO interactions
		(player_id, map_object_id, interaction_type, interaction_data, duration, was_successful, timestamp)
		VALUES
		(:player_id, :map_object_id, :interaction_type, :interaction_data, :duration, :was_successful, :timestamp)
		RETURNING id`

	id, err := insertReturningID(ctx, s.db, q, in)
	if err != nil {
		return classify("insert interaction", err)
	}
	in.ID = id
	return nil
}

// ListInteractions returns the most recent interactions with a map object.
func (s *Store) ListInteractions(ctx context.Context, mapObjectID int64, limit int) ([]model.Interaction, error) {
	if limit <= 0 {
		limit = DefaultInteractionLimit
	}
	out := []model.Interaction{}
	q := s.db.Rebind("SELECT * FROM interactions WHERE map_object_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?")
	if err := s.db.SelectContext(ctx, &out, q, mapObjectID, limit); err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	return out, nil
}
