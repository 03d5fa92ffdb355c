package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ListingStatus is the availability of a property.
type ListingStatus string

const (
	StatusAvailable ListingStatus = "available"
	StatusRented    ListingStatus = "rented"
	StatusSold      ListingStatus = "sold"
)

// Valid reports whether s is one of the enumerated statuses.
func (s ListingStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusRented, StatusSold:
		return true
	}
	return false
}

// MaxListingImages is the number of images kept when a listing is created.
// Extra images are dropped, not rejected.
const MaxListingImages = 4

// Listing is a property for rent or sale (the `listings` table).
type Listing struct {
	ID           string        `json:"id"            db:"id"`
	Title        string        `json:"title"         db:"title"`
	Description  string        `json:"description"   db:"description"`
	Price        float64       `json:"price"         db:"price"`
	Bedrooms     int           `json:"bedrooms"      db:"bedrooms"`
	Bathrooms    int           `json:"bathrooms"     db:"bathrooms"`
	TotalPackage float64       `json:"total_package" db:"total_package"`
	Status       ListingStatus `json:"status"        db:"status"`
	Location     string        `json:"location"      db:"location"`
	Img          ImagePaths    `json:"img"           db:"img"`
	AuthorID     string        `json:"author_id"     db:"author_id"`
	CreatedAt    time.Time     `json:"created_at"    db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"    db:"updated_at"`
}

// ImagePaths is the ordered list of storage paths attached to a listing.
// It is persisted as a JSON array in a TEXT column so the same schema works
// on SQLite and Postgres.
type ImagePaths []string

// Value implements driver.Valuer.
func (p ImagePaths) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(p))
	if err != nil {
		return nil, fmt.Errorf("model: encoding image paths: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *ImagePaths) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = ImagePaths{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("model: cannot scan %T into ImagePaths", src)
	}

	if len(raw) == 0 {
		*p = ImagePaths{}
		return nil
	}

	var paths []string
	if err := json.Unmarshal(raw, &paths); err != nil {
		return fmt.Errorf("model: decoding image paths: %w", err)
	}
	if paths == nil {
		paths = []string{}
	}
	*p = paths
	return nil
}

// MarshalJSON always renders an array, never null.
func (p ImagePaths) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(p))
}
