package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtnitsch/placeshelf/models"
)

// ErrNotFound is returned when a lookup matches no live row.
var ErrNotFound = errors.New("not found")

// CollectionInfo is a collection with its live place count.
type CollectionInfo struct {
	CollectionID int64     `json:"collection_id" yaml:"collection_id"`
	Name         string    `json:"name" yaml:"name"`
	PlaceCount   int       `json:"place_count" yaml:"place_count"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// PlaceRecord is a stored place.
type PlaceRecord struct {
	PlaceID      string                 `json:"place_id" yaml:"place_id"`
	CollectionID int64                  `json:"collection_id" yaml:"collection_id"`
	Place        models.NormalizedPlace `json:"place" yaml:"place"`
	CreatedAt    time.Time              `json:"created_at" yaml:"created_at"`
}

// Coordinates returns the record's location.
func (r PlaceRecord) Coordinates() models.Coordinates {
	return r.Place.Coordinates()
}

// ResolutionRecord is one pipeline run.
type ResolutionRecord struct {
	ResolutionID int64     `json:"resolution_id" yaml:"resolution_id"`
	Input        string    `json:"input" yaml:"input"`
	ResolvedURL  string    `json:"resolved_url,omitempty" yaml:"resolved_url,omitempty"`
	Stage        string    `json:"stage,omitempty" yaml:"stage,omitempty"`
	Success      bool      `json:"success" yaml:"success"`
	ErrorType    string    `json:"error_type,omitempty" yaml:"error_type,omitempty"`
	PlaceID      string    `json:"place_id,omitempty" yaml:"place_id,omitempty"`
	ResolvedAt   time.Time `json:"resolved_at" yaml:"resolved_at"`
}

// EnsureCollection returns the collection_id for name, creating it if needed.
func (db *DB) EnsureCollection(name string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("collection name is required")
	}

	var existingID int64
	err := db.QueryRow("SELECT collection_id FROM collections WHERE name = ?", name).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to check existing collection: %w", err)
	}

	result, err := db.Exec("INSERT INTO collections (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("failed to insert collection: %w", err)
	}
	collectionID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get collection ID: %w", err)
	}
	return collectionID, nil
}

// GetCollectionID returns the collection_id for name.
func (db *DB) GetCollectionID(name string) (int64, error) {
	var collectionID int64
	err := db.QueryRow("SELECT collection_id FROM collections WHERE name = ?", name).Scan(&collectionID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("collection %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get collection ID: %w", err)
	}
	return collectionID, nil
}

// ListCollections returns all collections ordered by name.
func (db *DB) ListCollections() ([]CollectionInfo, error) {
	rows, err := db.Query(`
		SELECT c.collection_id, c.name, c.created_at, COUNT(p.place_id)
		FROM collections c
		LEFT JOIN places p ON p.collection_id = c.collection_id AND p.deleted_at IS NULL
		GROUP BY c.collection_id
		ORDER BY c.name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var collections []CollectionInfo
	for rows.Next() {
		var info CollectionInfo
		if err := rows.Scan(&info.CollectionID, &info.Name, &info.CreatedAt, &info.PlaceCount); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		collections = append(collections, info)
	}
	return collections, rows.Err()
}

// InsertPlace stores a resolved place in a collection and returns its new id.
func (db *DB) InsertPlace(collectionID int64, place *models.NormalizedPlace) (string, error) {
	if place == nil {
		return "", fmt.Errorf("place is required")
	}

	types, err := encodeList(place.Types)
	if err != nil {
		return "", fmt.Errorf("failed to encode types: %w", err)
	}
	hours, err := encodeList(place.OpeningHours)
	if err != nil {
		return "", fmt.Errorf("failed to encode opening hours: %w", err)
	}

	placeID := uuid.NewString()
	_, err = db.Exec(`
		INSERT INTO places (place_id, collection_id, name, address, lat, lng, external_id,
			types, website, phone, rating, rating_count, opening_hours, source_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, placeID, collectionID, place.Name, place.Address, place.Lat, place.Lng,
		NewNullString(place.ExternalID), types, NewNullString(place.Website), NewNullString(place.Phone),
		nullFloat(place.Rating), nullInt(place.RatingCount), hours, NewNullString(place.SourceURL))
	if err != nil {
		return "", fmt.Errorf("failed to insert place: %w", err)
	}
	return placeID, nil
}

const placeColumns = `place_id, collection_id, name, address, lat, lng, external_id, types,
	website, phone, rating, rating_count, opening_hours, source_url, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlace(row rowScanner) (PlaceRecord, error) {
	var (
		rec                               PlaceRecord
		externalID, types, website, phone sql.NullString
		hours, sourceURL                  sql.NullString
		rating                            sql.NullFloat64
		ratingCount                       sql.NullInt64
	)
	err := row.Scan(&rec.PlaceID, &rec.CollectionID, &rec.Place.Name, &rec.Place.Address,
		&rec.Place.Lat, &rec.Place.Lng, &externalID, &types, &website, &phone,
		&rating, &ratingCount, &hours, &sourceURL, &rec.CreatedAt)
	if err != nil {
		return rec, err
	}

	rec.Place.ExternalID = externalID.String
	rec.Place.Website = website.String
	rec.Place.Phone = phone.String
	rec.Place.SourceURL = sourceURL.String
	if rating.Valid {
		v := rating.Float64
		rec.Place.Rating = &v
	}
	if ratingCount.Valid {
		v := int(ratingCount.Int64)
		rec.Place.RatingCount = &v
	}
	if rec.Place.Types, err = decodeList(types); err != nil {
		return rec, fmt.Errorf("failed to decode types: %w", err)
	}
	if rec.Place.OpeningHours, err = decodeList(hours); err != nil {
		return rec, fmt.Errorf("failed to decode opening hours: %w", err)
	}
	return rec, nil
}

// ListPlaces returns the live places of a collection, oldest first.
func (db *DB) ListPlaces(collectionID int64) ([]PlaceRecord, error) {
	rows, err := db.Query(`
		SELECT `+placeColumns+`
		FROM places
		WHERE collection_id = ? AND deleted_at IS NULL
		ORDER BY created_at, rowid
	`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	defer rows.Close()

	var places []PlaceRecord
	for rows.Next() {
		rec, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan place: %w", err)
		}
		places = append(places, rec)
	}
	return places, rows.Err()
}

// GetPlace returns a live place by id.
func (db *DB) GetPlace(placeID string) (*PlaceRecord, error) {
	row := db.QueryRow(`SELECT `+placeColumns+` FROM places WHERE place_id = ? AND deleted_at IS NULL`, placeID)
	rec, err := scanPlace(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("place %s: %w", placeID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get place: %w", err)
	}
	return &rec, nil
}

// DeletePlace soft-deletes a place.
func (db *DB) DeletePlace(placeID string) error {
	result, err := db.Exec(`UPDATE places SET deleted_at = CURRENT_TIMESTAMP WHERE place_id = ? AND deleted_at IS NULL`, placeID)
	if err != nil {
		return fmt.Errorf("failed to delete place: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete place: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("place %s: %w", placeID, ErrNotFound)
	}
	return nil
}

// RecordResolution logs one pipeline run.
func (db *DB) RecordResolution(rec ResolutionRecord) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO resolutions (input, resolved_url, stage, success, error_type, place_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.Input, NewNullString(rec.ResolvedURL), NewNullString(rec.Stage), rec.Success,
		NewNullString(rec.ErrorType), NewNullString(rec.PlaceID))
	if err != nil {
		return 0, fmt.Errorf("failed to record resolution: %w", err)
	}
	return result.LastInsertId()
}

// RecentResolutions returns the latest runs, newest first.
func (db *DB) RecentResolutions(limit int) ([]ResolutionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT resolution_id, input, resolved_url, stage, success, error_type, place_id, resolved_at
		FROM resolutions
		ORDER BY resolution_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list resolutions: %w", err)
	}
	defer rows.Close()

	var records []ResolutionRecord
	for rows.Next() {
		var rec ResolutionRecord
		var resolvedURL, stage, errorType, placeID sql.NullString
		if err := rows.Scan(&rec.ResolutionID, &rec.Input, &resolvedURL, &stage, &rec.Success,
			&errorType, &placeID, &rec.ResolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resolution: %w", err)
		}
		rec.ResolvedURL = resolvedURL.String
		rec.Stage = stage.String
		rec.ErrorType = errorType.String
		rec.PlaceID = placeID.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

func encodeList(values []string) (sql.NullString, error) {
	if len(values) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeList(s sql.NullString) ([]string, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(s.String), &values); err != nil {
		return nil, err
	}
	return values, nil
}

// NewNullString creates a sql.NullString from a string value.
func NewNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
