package store

import "time"

// Gorm models for the rows this core consumes and produces. The user
// table is read-only here; writes belong to the identity service.

type userRow struct {
	ID       string `gorm:"primaryKey"`
	Username string `gorm:"uniqueIndex"`
}

func (userRow) TableName() string { return "users" }

type groupRow struct {
	ID          string `gorm:"primaryKey"`
	Name        string
	Description string
	CreatorID   string
	CreatedAt   time.Time
}

func (groupRow) TableName() string { return "groups" }

type groupMemberRow struct {
	UserID  string `gorm:"primaryKey"`
	GroupID string `gorm:"primaryKey;index"`
}

func (groupMemberRow) TableName() string { return "group_members" }

type messageRow struct {
	ID       string `gorm:"primaryKey"`
	RoomID   string `gorm:"index"`
	SenderID string
	Content  string
	SentAt   time.Time

	// Messages may only reference groups that exist; the constraint
	// makes a write to an unknown room fail before any fanout happens.
	Room groupRow `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
}

func (messageRow) TableName() string { return "messages" }
