package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// VerificationStatus classifies whether registry data confirms a business is
// an active registered entity.
type VerificationStatus string

const (
	StatusVerified   VerificationStatus = "verified"   // matched an active registry record
	StatusInactive   VerificationStatus = "inactive"   // matched a dissolved/inactive record
	StatusUnverified VerificationStatus = "unverified" // no registry match
)

// Rank orders statuses for result sorting: verified > inactive > unverified.
func (s VerificationStatus) Rank() int {
	switch s {
	case StatusVerified:
		return 2
	case StatusInactive:
		return 1
	default:
		return 0
	}
}

// Director is an officer of a registered company.
type Director struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	AppointedOn string `json:"appointed_on,omitempty"`
}

// RegistryMatch holds the company-registry data a business was enriched with.
// Stored as a JSON column so the record stays one row.
type RegistryMatch struct {
	CompanyNumber     string     `json:"company_number"`
	CompanyName       string     `json:"company_name"`
	CompanyStatus     string     `json:"company_status"`
	RegisteredAddress string     `json:"registered_address,omitempty"`
	SICCodes          []string   `json:"sic_codes,omitempty"`
	Directors         []Director `json:"directors,omitempty"`
	IncorporatedOn    string     `json:"incorporated_on,omitempty"`
	MatchScore        float64    `json:"match_score"`
	MatchedAt         time.Time  `json:"matched_at"`
}

// Value implements database/sql/driver.Valuer
func (m *RegistryMatch) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements database/sql.Scanner
func (m *RegistryMatch) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan RegistryMatch")
	}

	return json.Unmarshal(bytes, m)
}

// Business is a single business record keyed by its external place ID.
// The place ID is globally unique in the store; upserts are idempotent on it.
type Business struct {
	ID          uint               `gorm:"primarykey" json:"-"`
	PlaceID     string             `gorm:"uniqueIndex;not null" json:"place_id"` // external identity
	Name        string             `gorm:"not null" json:"name"`
	Category    string             `gorm:"index;not null" json:"category"`
	Address     string             `gorm:"type:text" json:"address"`
	Postcode    string             `gorm:"index" json:"postcode,omitempty"`
	PhoneNumber string             `gorm:"type:varchar(30)" json:"phone_number,omitempty"`
	Website     string             `json:"website,omitempty"`
	Rating      float64            `json:"rating"`       // 0-5
	RatingCount int                `json:"rating_count"` // >= 0
	Latitude    float64            `gorm:"index;type:decimal(10,8)" json:"latitude"`  // WGS84
	Longitude   float64            `gorm:"index;type:decimal(11,8)" json:"longitude"` // WGS84
	Status      VerificationStatus `gorm:"index;default:unverified" json:"status"`
	Registry    *RegistryMatch     `gorm:"type:text" json:"registry,omitempty"`

	LastUpdated time.Time `gorm:"index" json:"last_updated"` // upstream data freshness
	CacheExpiry time.Time `gorm:"index" json:"cache_expiry"` // record eligible for purge after this

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Business) TableName() string {
	return "businesses"
}

// BusinessWithDistance pairs a record with its distance from a query point.
// The distance is computed per query, not stored.
type BusinessWithDistance struct {
	Business
	DistanceMeters float64 `json:"distance_meters"`
}
