package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/giftcircle/internal/models"
)

type WishService struct {
	db         DB
	visibility Visibility
	sanitizer  *TextSanitizer
}

func NewWishService(db DB, visibility Visibility) *WishService {
	return &WishService{db: db, visibility: visibility, sanitizer: NewTextSanitizer()}
}

const wishColumns = `w.id, w.user_id, w.title, w.description, w.category, w.priority, w.is_fulfilled, w.created_at, w.updated_at`

func scanWish(row Row, wish *models.Wish, extra ...any) error {
	dest := []any{
		&wish.ID, &wish.UserID, &wish.Title, &wish.Description, &wish.Category,
		&wish.Priority, &wish.IsFulfilled, &wish.CreatedAt, &wish.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

// GetFeed returns friends' wishes that are still open, newest first.
func (s *WishService) GetFeed(ctx context.Context, userID uuid.UUID) ([]models.Wish, error) {
	friendIDs, err := s.visibility.FriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(friendIDs) == 0 {
		return []models.Wish{}, nil
	}
	return s.listWishes(ctx, true,
		`SELECT `+wishColumns+`, u.id, u.username, u.name
		 FROM wishes w
		 JOIN users u ON u.id = w.user_id
		 WHERE w.user_id = ANY($1) AND NOT w.is_fulfilled
		 ORDER BY w.created_at DESC`,
		friendIDs,
	)
}

func (s *WishService) GetMyWishes(ctx context.Context, userID uuid.UUID) ([]models.Wish, error) {
	return s.listWishes(ctx, false,
		`SELECT `+wishColumns+`
		 FROM wishes w
		 WHERE w.user_id = $1
		 ORDER BY w.created_at DESC`,
		userID,
	)
}

func (s *WishService) GetByID(ctx context.Context, wishID, requesterID uuid.UUID) (*models.Wish, error) {
	wish := &models.Wish{}
	owner := &models.PublicUser{}
	err := scanWish(s.db.QueryRow(ctx,
		`SELECT `+wishColumns+`, u.id, u.username, u.name
		 FROM wishes w
		 JOIN users u ON u.id = w.user_id
		 WHERE w.id = $1`,
		wishID,
	), wish, &owner.ID, &owner.Username, &owner.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWishNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting wish: %w", err)
	}
	wish.User = owner

	ok, err := s.visibility.CanView(ctx, requesterID, wish.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWishNotVisible
	}
	return wish, nil
}

func (s *WishService) Create(ctx context.Context, userID uuid.UUID, in models.WishCreate) (*models.Wish, error) {
	title := s.sanitizer.Clean(in.Title)
	category := s.sanitizer.Clean(in.Category)
	if err := requireCleaned(map[string]string{"title": title, "category": category, "priority": string(in.Priority)}); err != nil {
		return nil, err
	}

	wish := &models.Wish{}
	err := scanWish(s.db.QueryRow(ctx,
		`INSERT INTO wishes AS w (user_id, title, description, category, priority)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+wishColumns,
		userID, title, s.sanitizer.CleanPtr(in.Description), category, in.Priority,
	), wish)
	if err != nil {
		return nil, fmt.Errorf("creating wish: %w", err)
	}
	return wish, nil
}

func (s *WishService) Update(ctx context.Context, wishID, userID uuid.UUID, patch models.WishPatch) (*models.Wish, error) {
	wish, err := s.getOwnedWish(ctx, wishID, userID, ErrWishUpdateForbidden)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return wish, nil
	}

	set := &setClause{}
	if patch.Title.HasValue() {
		title := s.sanitizer.Clean(patch.Title.Value)
		if err := requireCleaned(map[string]string{"title": title}); err != nil {
			return nil, err
		}
		set.add("title", title)
	}
	if patch.Description.Set {
		var description *string
		if !patch.Description.Null {
			description = s.sanitizer.CleanPtr(&patch.Description.Value)
		}
		set.add("description", description)
	}
	if patch.Category.HasValue() {
		category := s.sanitizer.Clean(patch.Category.Value)
		if err := requireCleaned(map[string]string{"category": category}); err != nil {
			return nil, err
		}
		set.add("category", category)
	}
	if patch.Priority.HasValue() {
		set.add("priority", patch.Priority.Value)
	}
	if patch.IsFulfilled.HasValue() {
		set.add("is_fulfilled", patch.IsFulfilled.Value)
	}

	updated := &models.Wish{}
	sql, args := set.build("wishes AS w", "w.id", wishID, wishColumns)
	err = scanWish(s.db.QueryRow(ctx, sql, args...), updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWishNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating wish: %w", err)
	}
	return updated, nil
}

func (s *WishService) MarkAsFulfilled(ctx context.Context, wishID, userID uuid.UUID) (*models.Wish, error) {
	return s.Update(ctx, wishID, userID, models.WishPatch{IsFulfilled: models.Some(true)})
}

func (s *WishService) Delete(ctx context.Context, wishID, userID uuid.UUID) error {
	if _, err := s.getOwnedWish(ctx, wishID, userID, ErrWishDeleteForbidden); err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM wishes WHERE id = $1`, wishID)
	if err != nil {
		return fmt.Errorf("deleting wish: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWishNotFound
	}
	return nil
}

func (s *WishService) getOwnedWish(ctx context.Context, wishID, userID uuid.UUID, forbidden error) (*models.Wish, error) {
	wish := &models.Wish{}
	err := scanWish(s.db.QueryRow(ctx, `SELECT `+wishColumns+` FROM wishes w WHERE w.id = $1`, wishID), wish)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWishNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting wish: %w", err)
	}
	if wish.UserID != userID {
		return nil, forbidden
	}
	return wish, nil
}

func (s *WishService) listWishes(ctx context.Context, withOwner bool, sql string, args ...any) ([]models.Wish, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing wishes: %w", err)
	}
	defer rows.Close()

	wishes := []models.Wish{}
	for rows.Next() {
		var wish models.Wish
		if withOwner {
			owner := &models.PublicUser{}
			err = scanWish(rows, &wish, &owner.ID, &owner.Username, &owner.Name)
			wish.User = owner
		} else {
			err = scanWish(rows, &wish)
		}
		if err != nil {
			return nil, fmt.Errorf("scanning wish: %w", err)
		}
		wishes = append(wishes, wish)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating wishes: %w", err)
	}
	return wishes, nil
}
