package model

import (
	"database/sql"
	"time"
)

// Membership roles. Roles are recorded on memberships and returned in
// responses, but no route currently rejects a caller based on role;
// enforcement is expected to happen at the gateway.
const (
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
	RoleViewer = "VIEWER"
)

// ValidRole reports whether the given string is one of the known
// membership roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

// Space represents a tenant boundary as stored in the `spaces` table.
// Every location, item, tag and membership hangs off exactly one
// space. The owner is a member and is granted an ADMIN membership in
// the same transaction that creates the space.
//
// Fields:
//  ID          – primary key identifier.
//  OwnerID     – member ID of the space owner.
//  Name        – human readable name of the space.
//  Description – optional free text.
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
type Space struct {
	ID          uint64         // spaces.id
	OwnerID     uint64         // spaces.owner_id
	Name        string         // spaces.name
	Description sql.NullString // spaces.description
	CreatedAt   time.Time      // spaces.created_at
	UpdatedAt   time.Time      // spaces.updated_at
}

// SpaceMembership models a row in the `space_memberships` table.
// The (member_id, space_id) pair is unique.
//
// Fields:
//  MemberID – member belonging to the space.
//  SpaceID  – the space the member belongs to.
//  Role     – ADMIN, MEMBER or VIEWER.
//  JoinedAt – when the membership was created.
type SpaceMembership struct {
	MemberID uint64    // space_memberships.member_id
	SpaceID  uint64    // space_memberships.space_id
	Role     string    // space_memberships.role
	JoinedAt time.Time // space_memberships.joined_at
}
