package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/giftcircle/internal/models"
	"github.com/HammerMeetNail/giftcircle/internal/services"
	"github.com/HammerMeetNail/giftcircle/internal/validation"
)

func TestWishHandler_Create_RequiresPriority(t *testing.T) {
	handler := NewWishHandler(&mockWishService{}, validation.New())
	body := `{"title":"Camping Tent","category":"Outdoors"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/wishes", strings.NewReader(body)), uuid.New())
	rr := httptest.NewRecorder()

	handler.Create(rr, req)
	resp := decodeBody[ErrorResponse](t, rr)
	if resp.Error.Details["priority"] != "Priority is required" {
		t.Fatalf("unexpected details %+v", resp.Error.Details)
	}
}

func TestWishHandler_Create_Created(t *testing.T) {
	userID := uuid.New()
	handler := NewWishHandler(&mockWishService{
		CreateFunc: func(ctx context.Context, gotUser uuid.UUID, in models.WishCreate) (*models.Wish, error) {
			if in.Priority != models.PriorityHigh {
				t.Fatalf("unexpected priority %q", in.Priority)
			}
			return &models.Wish{ID: uuid.New(), UserID: gotUser, Title: in.Title, Priority: in.Priority}, nil
		},
	}, validation.New())
	body := `{"title":"Camping Tent","category":"Outdoors","priority":"HIGH"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/wishes", strings.NewReader(body)), userID)
	rr := httptest.NewRecorder()

	handler.Create(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if resp := decodeBody[models.Wish](t, rr); resp.UserID != userID {
		t.Fatalf("unexpected wish %+v", resp)
	}
}

func TestWishHandler_GetMissing(t *testing.T) {
	handler := NewWishHandler(&mockWishService{
		GetByIDFunc: func(ctx context.Context, wishID, requesterID uuid.UUID) (*models.Wish, error) {
			return nil, services.ErrWishNotFound
		},
	}, validation.New())
	id := uuid.NewString()
	req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/wishes/"+id, nil), uuid.New())
	req.SetPathValue("id", id)
	rr := httptest.NewRecorder()

	handler.Get(rr, req)
	assertErrorResponse(t, rr, http.StatusNotFound, "Wish not found")
}

func TestWishHandler_Update_InvalidPriority(t *testing.T) {
	handler := NewWishHandler(&mockWishService{}, validation.New())
	id := uuid.NewString()
	req := withUser(httptest.NewRequest(http.MethodPut, "/api/v1/wishes/"+id, strings.NewReader(`{"priority":"URGENT"}`)), uuid.New())
	req.SetPathValue("id", id)
	rr := httptest.NewRecorder()

	handler.Update(rr, req)
	resp := decodeBody[ErrorResponse](t, rr)
	if resp.Error.Details["priority"] != "Priority must be one of: LOW, MEDIUM, HIGH" {
		t.Fatalf("unexpected details %+v", resp.Error.Details)
	}
}

func TestWishHandler_MarkFulfilled_Forbidden(t *testing.T) {
	handler := NewWishHandler(&mockWishService{
		MarkAsFulfilledFunc: func(ctx context.Context, wishID, userID uuid.UUID) (*models.Wish, error) {
			return nil, services.ErrWishUpdateForbidden
		},
	}, validation.New())
	id := uuid.NewString()
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/wishes/"+id+"/fulfilled", nil), uuid.New())
	req.SetPathValue("id", id)
	rr := httptest.NewRecorder()

	handler.MarkFulfilled(rr, req)
	assertErrorResponse(t, rr, http.StatusForbidden, "You can only update your own wishes")
}

func TestWishHandler_FeedAndMine(t *testing.T) {
	userID := uuid.New()
	handler := NewWishHandler(&mockWishService{
		GetFeedFunc: func(ctx context.Context, id uuid.UUID) ([]models.Wish, error) {
			return []models.Wish{{ID: uuid.New(), Title: "Camping Tent"}}, nil
		},
		GetMyWishesFunc: func(ctx context.Context, id uuid.UUID) ([]models.Wish, error) {
			return []models.Wish{}, nil
		},
	}, validation.New())

	rr := httptest.NewRecorder()
	handler.Feed(rr, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/wishes/feed", nil), userID))
	if feed := decodeBody[[]models.Wish](t, rr); len(feed) != 1 {
		t.Fatalf("unexpected feed %+v", feed)
	}

	rr = httptest.NewRecorder()
	handler.Mine(rr, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/wishes/my-wishes", nil), userID))
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("expected [], got %s", rr.Body.String())
	}
}

func TestWishHandler_Delete(t *testing.T) {
	handler := NewWishHandler(&mockWishService{
		DeleteFunc: func(ctx context.Context, wishID, userID uuid.UUID) error { return nil },
	}, validation.New())
	id := uuid.NewString()
	req := withUser(httptest.NewRequest(http.MethodDelete, "/api/v1/wishes/"+id, nil), uuid.New())
	req.SetPathValue("id", id)
	rr := httptest.NewRecorder()

	handler.Delete(rr, req)
	if resp := decodeBody[MessageResponse](t, rr); resp.Message != "Wish deleted successfully" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}
