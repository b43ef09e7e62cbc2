package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/giftcircle/internal/models"
	"github.com/HammerMeetNail/giftcircle/internal/services"
	"github.com/HammerMeetNail/giftcircle/internal/storage"
)

func assertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d (body %s)", status, rr.Code, rr.Body.String())
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Error.Message != message {
		t.Fatalf("expected error %q, got %q", message, resp.Error.Message)
	}
	if resp.Error.Code == "" {
		t.Fatal("expected error code to be set")
	}
}

func withUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), userContextKey, &models.User{ID: userID}))
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

type mockAuthService struct {
	services.AuthServiceInterface
	RegisterFunc       func(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	LoginFunc          func(ctx context.Context, email, password string) (*services.AuthResult, error)
	GetCurrentUserFunc func(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

func (m *mockAuthService) Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error) {
	return m.RegisterFunc(ctx, in)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*services.AuthResult, error) {
	return m.LoginFunc(ctx, email, password)
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return m.GetCurrentUserFunc(ctx, userID)
}

type mockFriendService struct {
	services.FriendServiceInterface
	SearchUsersFunc    func(ctx context.Context, query string, selfID uuid.UUID) ([]models.UserSearchResult, error)
	SendRequestFunc    func(ctx context.Context, requesterID, addresseeID uuid.UUID) (*models.FriendshipWithUser, error)
	AcceptRequestFunc  func(ctx context.Context, friendshipID, actingID uuid.UUID) (*models.FriendshipWithUser, error)
	DeclineRequestFunc func(ctx context.Context, friendshipID, actingID uuid.UUID) error
	RemoveFriendFunc   func(ctx context.Context, friendshipID, actingID uuid.UUID) error
	GetFriendsFunc     func(ctx context.Context, userID uuid.UUID) ([]models.FriendshipWithUser, error)
	GetPendingFunc     func(ctx context.Context, userID uuid.UUID) ([]models.FriendshipWithUser, error)
	GetSentFunc        func(ctx context.Context, userID uuid.UUID) ([]models.FriendshipWithUser, error)
}

func (m *mockFriendService) SearchUsers(ctx context.Context, query string, selfID uuid.UUID) ([]models.UserSearchResult, error) {
	return m.SearchUsersFunc(ctx, query, selfID)
}

func (m *mockFriendService) SendRequest(ctx context.Context, requesterID, addresseeID uuid.UUID) (*models.FriendshipWithUser, error) {
	return m.SendRequestFunc(ctx, requesterID, addresseeID)
}

func (m *mockFriendService) AcceptRequest(ctx context.Context, friendshipID, actingID uuid.UUID) (*models.FriendshipWithUser, error) {
	return m.AcceptRequestFunc(ctx, friendshipID, actingID)
}

func (m *mockFriendService) DeclineRequest(ctx context.Context, friendshipID, actingID uuid.UUID) error {
	return m.DeclineRequestFunc(ctx, friendshipID, actingID)
}

func (m *mockFriendService) RemoveFriend(ctx context.Context, friendshipID, actingID uuid.UUID) error {
	return m.RemoveFriendFunc(ctx, friendshipID, actingID)
}

func (m *mockFriendService) GetFriends(ctx context.Context, userID uuid.UUID) ([]models.FriendshipWithUser, error) {
	return m.GetFriendsFunc(ctx, userID)
}

func (m *mockFriendService) GetPendingRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendshipWithUser, error) {
	return m.GetPendingFunc(ctx, userID)
}

func (m *mockFriendService) GetSentRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendshipWithUser, error) {
	return m.GetSentFunc(ctx, userID)
}

type mockItemService struct {
	services.ItemServiceInterface
	GetFeedFunc      func(ctx context.Context, userID uuid.UUID) ([]models.Item, error)
	GetMyItemsFunc   func(ctx context.Context, userID uuid.UUID) ([]models.Item, error)
	GetByIDFunc      func(ctx context.Context, itemID, requesterID uuid.UUID) (*models.Item, error)
	CreateFunc       func(ctx context.Context, userID uuid.UUID, in models.ItemCreate) (*models.Item, error)
	UpdateFunc       func(ctx context.Context, itemID, userID uuid.UUID, patch models.ItemPatch) (*models.Item, error)
	MarkAsGiftedFunc func(ctx context.Context, itemID, userID uuid.UUID) (*models.Item, error)
	DeleteFunc       func(ctx context.Context, itemID, userID uuid.UUID) error
	UploadPhotosFunc func(ctx context.Context, itemID, userID uuid.UUID, uploads []storage.Upload) ([]models.ItemPhoto, error)
	DeletePhotoFunc  func(ctx context.Context, itemID, photoID, userID uuid.UUID) error
}

func (m *mockItemService) GetFeed(ctx context.Context, userID uuid.UUID) ([]models.Item, error) {
	return m.GetFeedFunc(ctx, userID)
}

func (m *mockItemService) GetMyItems(ctx context.Context, userID uuid.UUID) ([]models.Item, error) {
	return m.GetMyItemsFunc(ctx, userID)
}

func (m *mockItemService) GetByID(ctx context.Context, itemID, requesterID uuid.UUID) (*models.Item, error) {
	return m.GetByIDFunc(ctx, itemID, requesterID)
}

func (m *mockItemService) Create(ctx context.Context, userID uuid.UUID, in models.ItemCreate) (*models.Item, error) {
	return m.CreateFunc(ctx, userID, in)
}

func (m *mockItemService) Update(ctx context.Context, itemID, userID uuid.UUID, patch models.ItemPatch) (*models.Item, error) {
	return m.UpdateFunc(ctx, itemID, userID, patch)
}

func (m *mockItemService) MarkAsGifted(ctx context.Context, itemID, userID uuid.UUID) (*models.Item, error) {
	return m.MarkAsGiftedFunc(ctx, itemID, userID)
}

func (m *mockItemService) Delete(ctx context.Context, itemID, userID uuid.UUID) error {
	return m.DeleteFunc(ctx, itemID, userID)
}

func (m *mockItemService) UploadPhotos(ctx context.Context, itemID, userID uuid.UUID, uploads []storage.Upload) ([]models.ItemPhoto, error) {
	return m.UploadPhotosFunc(ctx, itemID, userID, uploads)
}

func (m *mockItemService) DeletePhoto(ctx context.Context, itemID, photoID, userID uuid.UUID) error {
	return m.DeletePhotoFunc(ctx, itemID, photoID, userID)
}

type mockWishService struct {
	services.WishServiceInterface
	GetFeedFunc         func(ctx context.Context, userID uuid.UUID) ([]models.Wish, error)
	GetMyWishesFunc     func(ctx context.Context, userID uuid.UUID) ([]models.Wish, error)
	GetByIDFunc         func(ctx context.Context, wishID, requesterID uuid.UUID) (*models.Wish, error)
	CreateFunc          func(ctx context.Context, userID uuid.UUID, in models.WishCreate) (*models.Wish, error)
	UpdateFunc          func(ctx context.Context, wishID, userID uuid.UUID, patch models.WishPatch) (*models.Wish, error)
	MarkAsFulfilledFunc func(ctx context.Context, wishID, userID uuid.UUID) (*models.Wish, error)
	DeleteFunc          func(ctx context.Context, wishID, userID uuid.UUID) error
}

func (m *mockWishService) GetFeed(ctx context.Context, userID uuid.UUID) ([]models.Wish, error) {
	return m.GetFeedFunc(ctx, userID)
}

func (m *mockWishService) GetMyWishes(ctx context.Context, userID uuid.UUID) ([]models.Wish, error) {
	return m.GetMyWishesFunc(ctx, userID)
}

func (m *mockWishService) GetByID(ctx context.Context, wishID, requesterID uuid.UUID) (*models.Wish, error) {
	return m.GetByIDFunc(ctx, wishID, requesterID)
}

func (m *mockWishService) Create(ctx context.Context, userID uuid.UUID, in models.WishCreate) (*models.Wish, error) {
	return m.CreateFunc(ctx, userID, in)
}

func (m *mockWishService) Update(ctx context.Context, wishID, userID uuid.UUID, patch models.WishPatch) (*models.Wish, error) {
	return m.UpdateFunc(ctx, wishID, userID, patch)
}

func (m *mockWishService) MarkAsFulfilled(ctx context.Context, wishID, userID uuid.UUID) (*models.Wish, error) {
	return m.MarkAsFulfilledFunc(ctx, wishID, userID)
}

func (m *mockWishService) Delete(ctx context.Context, wishID, userID uuid.UUID) error {
	return m.DeleteFunc(ctx, wishID, userID)
}
