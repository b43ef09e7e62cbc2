package models

import (
	"time"

	"github.com/google/uuid"
)

type WishPriority string

const (
	PriorityLow    WishPriority = "LOW"
	PriorityMedium WishPriority = "MEDIUM"
	PriorityHigh   WishPriority = "HIGH"
)

type Wish struct {
	ID          uuid.UUID    `json:"id"`
	UserID      uuid.UUID    `json:"userId"`
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	Category    string       `json:"category"`
	Priority    WishPriority `json:"priority"`
	IsFulfilled bool         `json:"isFulfilled"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	User        *PublicUser  `json:"user,omitempty"`
}

type WishCreate struct {
	Title       string       `json:"title" validate:"required,min=1,max=100"`
	Description *string      `json:"description" validate:"omitempty,max=500"`
	Category    string       `json:"category" validate:"required,min=1,max=50"`
	Priority    WishPriority `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH"`
}

type WishPatch struct {
	Title       Optional[string]       `json:"title"`
	Description Optional[string]       `json:"description"`
	Category    Optional[string]       `json:"category"`
	Priority    Optional[WishPriority] `json:"priority"`
	IsFulfilled Optional[bool]         `json:"isFulfilled"`
}

func (p WishPatch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Category.Set && !p.Priority.Set && !p.IsFulfilled.Set
}
