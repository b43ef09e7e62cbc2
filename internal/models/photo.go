package models

import (
	"time"

	"github.com/google/uuid"
)

type PhotoKind string

const (
	PhotoKindLocal  PhotoKind = "local"
	PhotoKindRemote PhotoKind = "remote"
)

func (k PhotoKind) Valid() bool {
	return k == PhotoKindLocal || k == PhotoKindRemote
}

// PhotoLocation says where a stored photo lives. For local photos the locators
// are bare file names; for remote photos they are full object URLs.
type PhotoLocation struct {
	Kind             PhotoKind `json:"kind"`
	Locator          string    `json:"locator"`
	ThumbnailLocator string    `json:"thumbnailLocator"`
}

type ItemPhoto struct {
	ID           uuid.UUID     `json:"id"`
	ItemID       uuid.UUID     `json:"itemId"`
	Location     PhotoLocation `json:"location"`
	URL          string        `json:"url"`
	ThumbnailURL string        `json:"thumbnailUrl"`
	Order        int           `json:"order"`
	CreatedAt    time.Time     `json:"createdAt"`
}
