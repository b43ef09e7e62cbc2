package models

import (
	"time"

	"github.com/google/uuid"
)

type ItemCondition string

const (
	ConditionNew     ItemCondition = "NEW"
	ConditionLikeNew ItemCondition = "LIKE_NEW"
	ConditionGood    ItemCondition = "GOOD"
	ConditionFair    ItemCondition = "FAIR"
	ConditionPoor    ItemCondition = "POOR"
)

const MaxPhotosPerItem = 5

type Item struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"userId"`
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	Category    string        `json:"category"`
	Condition   ItemCondition `json:"condition"`
	IsGifted    bool          `json:"isGifted"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	User        *PublicUser   `json:"user,omitempty"`
	Photos      []ItemPhoto   `json:"photos"`
}

type ItemCreate struct {
	Title       string        `json:"title" validate:"required,min=1,max=100"`
	Description *string       `json:"description" validate:"omitempty,max=500"`
	Category    string        `json:"category" validate:"required,min=1,max=50"`
	Condition   ItemCondition `json:"condition" validate:"required,oneof=NEW LIKE_NEW GOOD FAIR POOR"`
}

type ItemPatch struct {
	Title       Optional[string]        `json:"title"`
	Description Optional[string]        `json:"description"`
	Category    Optional[string]        `json:"category"`
	Condition   Optional[ItemCondition] `json:"condition"`
	IsGifted    Optional[bool]          `json:"isGifted"`
}

func (p ItemPatch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Category.Set && !p.Condition.Set && !p.IsGifted.Set
}
