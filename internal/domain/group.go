package domain

type GroupID string

// Group is a persisted chat group. Membership rows live in the store.
type Group struct {
	ID          GroupID `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CreatorID   UserID  `json:"-"`
}
