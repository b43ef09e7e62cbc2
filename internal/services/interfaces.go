package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/giftcircle/internal/models"
	"github.com/HammerMeetNail/giftcircle/internal/storage"
)

type AuthServiceInterface interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	GetCurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	ValidateToken(token string) (*TokenClaims, error)
}

type FriendServiceInterface interface {
	SearchUsers(ctx context.Context, query string, selfID uuid.UUID) ([]models.UserSearchResult, error)
	SendRequest(ctx context.Context, requesterID, addresseeID uuid.UUID) (*models.FriendshipWithUser, error)
	AcceptRequest(ctx context.Context, friendshipID, actingID uuid.UUID) (*models.FriendshipWithUser, error)
	DeclineRequest(ctx context.Context, friendshipID, actingID uuid.UUID) error
	RemoveFriend(ctx context.Context, friendshipID, actingID uuid.UUID) error
	GetFriends(ctx context.Context, userID uuid.UUID) ([]models.FriendshipWithUser, error)
	GetPendingRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendshipWithUser, error)
	GetSentRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendshipWithUser, error)
	FriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	CanView(ctx context.Context, viewerID, ownerID uuid.UUID) (bool, error)
}

type ItemServiceInterface interface {
	GetFeed(ctx context.Context, userID uuid.UUID) ([]models.Item, error)
	GetMyItems(ctx context.Context, userID uuid.UUID) ([]models.Item, error)
	GetByID(ctx context.Context, itemID, requesterID uuid.UUID) (*models.Item, error)
	Create(ctx context.Context, userID uuid.UUID, in models.ItemCreate) (*models.Item, error)
	Update(ctx context.Context, itemID, userID uuid.UUID, patch models.ItemPatch) (*models.Item, error)
	MarkAsGifted(ctx context.Context, itemID, userID uuid.UUID) (*models.Item, error)
	Delete(ctx context.Context, itemID, userID uuid.UUID) error
	UploadPhotos(ctx context.Context, itemID, userID uuid.UUID, uploads []storage.Upload) ([]models.ItemPhoto, error)
	DeletePhoto(ctx context.Context, itemID, photoID, userID uuid.UUID) error
}

type WishServiceInterface interface {
	GetFeed(ctx context.Context, userID uuid.UUID) ([]models.Wish, error)
	GetMyWishes(ctx context.Context, userID uuid.UUID) ([]models.Wish, error)
	GetByID(ctx context.Context, wishID, requesterID uuid.UUID) (*models.Wish, error)
	Create(ctx context.Context, userID uuid.UUID, in models.WishCreate) (*models.Wish, error)
	Update(ctx context.Context, wishID, userID uuid.UUID, patch models.WishPatch) (*models.Wish, error)
	MarkAsFulfilled(ctx context.Context, wishID, userID uuid.UUID) (*models.Wish, error)
	Delete(ctx context.Context, wishID, userID uuid.UUID) error
}

var (
	_ AuthServiceInterface   = (*AuthService)(nil)
	_ FriendServiceInterface = (*FriendService)(nil)
	_ ItemServiceInterface   = (*ItemService)(nil)
	_ WishServiceInterface   = (*WishService)(nil)
	_ Visibility             = (*FriendService)(nil)
	_ PhotoStore             = (*storage.Manager)(nil)
)
