package models

import (
	"time"

	"github.com/google/uuid"
)

type FriendshipStatus string

const (
	FriendshipStatusPending  FriendshipStatus = "PENDING"
	FriendshipStatusAccepted FriendshipStatus = "ACCEPTED"
)

type Friendship struct {
	ID          uuid.UUID        `json:"id"`
	RequesterID uuid.UUID        `json:"requesterId"`
	AddresseeID uuid.UUID        `json:"addresseeId"`
	Status      FriendshipStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	AcceptedAt  *time.Time       `json:"acceptedAt"`
}

// Involves reports whether userID is either party of the friendship.
func (f *Friendship) Involves(userID uuid.UUID) bool {
	return f.RequesterID == userID || f.AddresseeID == userID
}

// OtherParty returns the id of the user on the other side from userID.
func (f *Friendship) OtherParty(userID uuid.UUID) uuid.UUID {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}

// FriendshipWithUser carries whichever public profiles the caller asked for.
// Friend is always the party other than the viewer.
type FriendshipWithUser struct {
	Friendship
	Requester *PublicUser    `json:"requester,omitempty"`
	Addressee *PublicUser    `json:"addressee,omitempty"`
	Friend    *FriendSummary `json:"friend,omitempty"`
}

type FriendSummary struct {
	PublicUser
	ItemCount    int       `json:"itemCount"`
	WishCount    int       `json:"wishCount"`
	FriendsSince time.Time `json:"friendsSince"`
}
