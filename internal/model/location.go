package model

import (
	"database/sql"
	"time"
)

// Location types describe what kind of physical place a location is.
const (
	LocationTypeRoot      = "ROOT"
	LocationTypeFloor     = "FLOOR"
	LocationTypeRoom      = "ROOM"
	LocationTypeContainer = "CONTAINER"
	LocationTypeOther     = "OTHER"
)

// ValidLocationType reports whether t is one of the known location types.
func ValidLocationType(t string) bool {
	switch t {
	case LocationTypeRoot, LocationTypeFloor, LocationTypeRoom,
		LocationTypeContainer, LocationTypeOther:
		return true
	}
	return false
}

// External reference kinds for scannable identifiers. A location or
// item carries at most one reference: a (reference_id, reference_type)
// pair where the type tags how the identifier was produced.
const (
	ReferenceTypeNFC     = "NFC"
	ReferenceTypeQRCode  = "QR_CODE"
	ReferenceTypeBarcode = "BARCODE"
	ReferenceTypeManual  = "MANUAL"
)

// ValidReferenceType reports whether t is a known reference kind.
func ValidReferenceType(t string) bool {
	switch t {
	case ReferenceTypeNFC, ReferenceTypeQRCode, ReferenceTypeBarcode, ReferenceTypeManual:
		return true
	}
	return false
}

// Location is a node in a space-scoped hierarchy as stored in the
// `locations` table. A null parent marks a root of the hierarchy.
// The parent chain must stay acyclic; writes that would introduce a
// cycle are rejected by the repository.
//
// Fields:
//  ID            – primary key identifier.
//  SpaceID       – owning space.
//  Name          – human readable name, used to build display paths.
//  ParentID      – parent location within the same space (nullable).
//  LocationType  – ROOT, FLOOR, ROOM, CONTAINER or OTHER.
//  ReferenceID   – optional scannable identifier (nullable).
//  ReferenceType – kind of the identifier (nullable).
//  CreatedByID   – member who created the location.
//  CreatedAt     – timestamp of creation.
//  UpdatedAt     – timestamp of last update.
type Location struct {
	ID            uint64         // locations.id
	SpaceID       uint64         // locations.space_id
	Name          string         // locations.name
	ParentID      *uint64        // locations.parent_location_id (nullable)
	LocationType  string         // locations.location_type
	ReferenceID   sql.NullString // locations.reference_id
	ReferenceType sql.NullString // locations.reference_type
	CreatedByID   uint64         // locations.created_by_id
	CreatedAt     time.Time      // locations.created_at
	UpdatedAt     time.Time      // locations.updated_at
}
