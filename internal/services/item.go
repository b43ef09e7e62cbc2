package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/giftcircle/internal/apperr"
	"github.com/HammerMeetNail/giftcircle/internal/logging"
	"github.com/HammerMeetNail/giftcircle/internal/models"
	"github.com/HammerMeetNail/giftcircle/internal/storage"
)

// Visibility decides who may see a user's items and wishes.
type Visibility interface {
	CanView(ctx context.Context, viewerID, ownerID uuid.UUID) (bool, error)
	FriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// PhotoStore turns uploads into stored files and removes them again.
type PhotoStore interface {
	Validate(upload storage.Upload) error
	Store(ctx context.Context, upload storage.Upload) (models.PhotoLocation, error)
	Remove(ctx context.Context, loc models.PhotoLocation) error
	URLs(loc models.PhotoLocation) (string, string)
}

type ItemService struct {
	db         DB
	visibility Visibility
	photos     PhotoStore
	sanitizer  *TextSanitizer
}

func NewItemService(db DB, visibility Visibility, photos PhotoStore) *ItemService {
	return &ItemService{
		db:         db,
		visibility: visibility,
		photos:     photos,
		sanitizer:  NewTextSanitizer(),
	}
}

const itemColumns = `i.id, i.user_id, i.title, i.description, i.category, i.condition, i.is_gifted, i.created_at, i.updated_at`

const photoColumns = `p.id, p.item_id, p.storage_kind, p.locator, p.thumbnail_locator, p.display_order, p.created_at`

func scanItem(row Row, item *models.Item, extra ...any) error {
	dest := []any{
		&item.ID, &item.UserID, &item.Title, &item.Description, &item.Category,
		&item.Condition, &item.IsGifted, &item.CreatedAt, &item.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

func scanPhoto(row Row, photo *models.ItemPhoto, extra ...any) error {
	dest := []any{
		&photo.ID, &photo.ItemID, &photo.Location.Kind, &photo.Location.Locator,
		&photo.Location.ThumbnailLocator, &photo.Order, &photo.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	if !photo.Location.Kind.Valid() {
		return fmt.Errorf("photo %s has unknown storage kind %q", photo.ID, photo.Location.Kind)
	}
	return nil
}

// GetFeed returns friends' items that have not been gifted yet, newest first.
func (s *ItemService) GetFeed(ctx context.Context, userID uuid.UUID) ([]models.Item, error) {
	friendIDs, err := s.visibility.FriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(friendIDs) == 0 {
		return []models.Item{}, nil
	}

	items, err := s.listItems(ctx, true,
		`SELECT `+itemColumns+`, u.id, u.username, u.name
		 FROM items i
		 JOIN users u ON u.id = i.user_id
		 WHERE i.user_id = ANY($1) AND NOT i.is_gifted
		 ORDER BY i.created_at DESC`,
		friendIDs,
	)
	if err != nil {
		return nil, err
	}
	return items, s.attachPhotos(ctx, items)
}

func (s *ItemService) GetMyItems(ctx context.Context, userID uuid.UUID) ([]models.Item, error) {
	items, err := s.listItems(ctx, false,
		`SELECT `+itemColumns+`
		 FROM items i
		 WHERE i.user_id = $1
		 ORDER BY i.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return items, s.attachPhotos(ctx, items)
}

func (s *ItemService) GetByID(ctx context.Context, itemID, requesterID uuid.UUID) (*models.Item, error) {
	item := &models.Item{}
	owner := &models.PublicUser{}
	err := scanItem(s.db.QueryRow(ctx,
		`SELECT `+itemColumns+`, u.id, u.username, u.name
		 FROM items i
		 JOIN users u ON u.id = i.user_id
		 WHERE i.id = $1`,
		itemID,
	), item, &owner.ID, &owner.Username, &owner.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	item.User = owner

	ok, err := s.visibility.CanView(ctx, requesterID, item.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrItemNotVisible
	}

	return s.withPhotos(ctx, item)
}

func (s *ItemService) Create(ctx context.Context, userID uuid.UUID, in models.ItemCreate) (*models.Item, error) {
	title := s.sanitizer.Clean(in.Title)
	category := s.sanitizer.Clean(in.Category)
	if err := requireCleaned(map[string]string{"title": title, "category": category}); err != nil {
		return nil, err
	}

	item := &models.Item{}
	err := scanItem(s.db.QueryRow(ctx,
		`INSERT INTO items AS i (user_id, title, description, category, condition)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+itemColumns,
		userID, title, s.sanitizer.CleanPtr(in.Description), category, in.Condition,
	), item)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}
	item.Photos = []models.ItemPhoto{}
	return item, nil
}

// Update applies only the fields present in the patch. A null description
// clears it; nulls on required fields are ignored.
func (s *ItemService) Update(ctx context.Context, itemID, userID uuid.UUID, patch models.ItemPatch) (*models.Item, error) {
	item, err := s.getOwnedItem(ctx, itemID, userID, ErrItemUpdateForbidden)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return s.withPhotos(ctx, item)
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
	if patch.Condition.HasValue() {
		set.add("condition", patch.Condition.Value)
	}
	if patch.IsGifted.HasValue() {
		set.add("is_gifted", patch.IsGifted.Value)
	}

	updated := &models.Item{}
	sql, args := set.build("items AS i", "i.id", itemID, itemColumns)
	err = scanItem(s.db.QueryRow(ctx, sql, args...), updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}
	return s.withPhotos(ctx, updated)
}

func (s *ItemService) MarkAsGifted(ctx context.Context, itemID, userID uuid.UUID) (*models.Item, error) {
	return s.Update(ctx, itemID, userID, models.ItemPatch{IsGifted: models.Some(true)})
}

// Delete removes the item's photo files best-effort, then the item row. Photo
// rows go with it through the foreign key cascade.
func (s *ItemService) Delete(ctx context.Context, itemID, userID uuid.UUID) error {
	if _, err := s.getOwnedItem(ctx, itemID, userID, ErrItemDeleteForbidden); err != nil {
		return err
	}

	photos, err := s.loadPhotos(ctx, []uuid.UUID{itemID})
	if err != nil {
		return err
	}
	for _, photo := range photos[itemID] {
		s.removeFiles(ctx, photo.Location)
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// UploadPhotos stores every upload and records them after the item's existing
// photos. Files stored by this call are removed again if recording fails.
func (s *ItemService) UploadPhotos(ctx context.Context, itemID, userID uuid.UUID, uploads []storage.Upload) ([]models.ItemPhoto, error) {
	if len(uploads) == 0 {
		return nil, ErrNoPhotos
	}

	var ownerID uuid.UUID
	var existing int
	err := s.db.QueryRow(ctx,
		`SELECT i.user_id, (SELECT COUNT(*) FROM item_photos p WHERE p.item_id = i.id)
		 FROM items i
		 WHERE i.id = $1`,
		itemID,
	).Scan(&ownerID, &existing)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	if ownerID != userID {
		return nil, ErrPhotoUploadForbidden
	}
	if existing+len(uploads) > models.MaxPhotosPerItem {
		return nil, ErrTooManyPhotos
	}
	for _, upload := range uploads {
		if err := s.photos.Validate(upload); err != nil {
			return nil, err
		}
	}

	stored := make([]models.PhotoLocation, 0, len(uploads))
	for _, upload := range uploads {
		loc, err := s.photos.Store(ctx, upload)
		if err != nil {
			s.discard(ctx, stored)
			return nil, err
		}
		stored = append(stored, loc)
	}

	photos := make([]models.ItemPhoto, 0, len(stored))
	err = withTx(ctx, s.db, func(tx Tx) error {
		var lockedOwner uuid.UUID
		err := tx.QueryRow(ctx, `SELECT user_id FROM items WHERE id = $1 FOR UPDATE`, itemID).Scan(&lockedOwner)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrItemNotFound
		}
		if err != nil {
			return fmt.Errorf("locking item: %w", err)
		}

		var current int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM item_photos WHERE item_id = $1`, itemID).Scan(&current); err != nil {
			return fmt.Errorf("counting photos: %w", err)
		}
		if current+len(stored) > models.MaxPhotosPerItem {
			return ErrTooManyPhotos
		}

		for idx, loc := range stored {
			var photo models.ItemPhoto
			err := scanPhoto(tx.QueryRow(ctx,
				`INSERT INTO item_photos AS p (item_id, storage_kind, locator, thumbnail_locator, display_order)
				 VALUES ($1, $2, $3, $4, $5)
				 RETURNING `+photoColumns,
				itemID, loc.Kind, loc.Locator, loc.ThumbnailLocator, current+idx,
			), &photo)
			if err != nil {
				return fmt.Errorf("recording photo: %w", err)
			}
			photos = append(photos, photo)
		}
		return nil
	})
	if err != nil {
		s.discard(ctx, stored)
		return nil, err
	}

	for i := range photos {
		s.setURLs(&photos[i])
	}
	return photos, nil
}

func (s *ItemService) DeletePhoto(ctx context.Context, itemID, photoID, userID uuid.UUID) error {
	var photo models.ItemPhoto
	var ownerID uuid.UUID
	err := scanPhoto(s.db.QueryRow(ctx,
		`SELECT `+photoColumns+`, i.user_id
		 FROM item_photos p
		 JOIN items i ON i.id = p.item_id
		 WHERE p.id = $1`,
		photoID,
	), &photo, &ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPhotoNotFound
	}
	if err != nil {
		return fmt.Errorf("getting photo: %w", err)
	}
	if photo.ItemID != itemID {
		return ErrPhotoNotFound
	}
	if ownerID != userID {
		return ErrPhotoDeleteForbidden
	}

	s.removeFiles(ctx, photo.Location)

	tag, err := s.db.Exec(ctx, `DELETE FROM item_photos WHERE id = $1`, photoID)
	if err != nil {
		return fmt.Errorf("deleting photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPhotoNotFound
	}
	return nil
}

func (s *ItemService) getOwnedItem(ctx context.Context, itemID, userID uuid.UUID, forbidden error) (*models.Item, error) {
	item := &models.Item{}
	err := scanItem(s.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM items i WHERE i.id = $1`, itemID), item)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	if item.UserID != userID {
		return nil, forbidden
	}
	return item, nil
}

func (s *ItemService) listItems(ctx context.Context, withOwner bool, sql string, args ...any) ([]models.Item, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var item models.Item
		if withOwner {
			owner := &models.PublicUser{}
			err = scanItem(rows, &item, &owner.ID, &owner.Username, &owner.Name)
			item.User = owner
		} else {
			err = scanItem(rows, &item)
		}
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return items, nil
}

func (s *ItemService) withPhotos(ctx context.Context, item *models.Item) (*models.Item, error) {
	photos, err := s.loadPhotos(ctx, []uuid.UUID{item.ID})
	if err != nil {
		return nil, err
	}
	item.Photos = photos[item.ID]
	if item.Photos == nil {
		item.Photos = []models.ItemPhoto{}
	}
	return item, nil
}

func (s *ItemService) attachPhotos(ctx context.Context, items []models.Item) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	photos, err := s.loadPhotos(ctx, ids)
	if err != nil {
		return err
	}
	for i := range items {
		items[i].Photos = photos[items[i].ID]
		if items[i].Photos == nil {
			items[i].Photos = []models.ItemPhoto{}
		}
	}
	return nil
}

func (s *ItemService) loadPhotos(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID][]models.ItemPhoto, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+photoColumns+`
		 FROM item_photos p
		 WHERE p.item_id = ANY($1)
		 ORDER BY p.item_id, p.display_order, p.created_at`,
		itemIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("loading photos: %w", err)
	}
	defer rows.Close()

	byItem := make(map[uuid.UUID][]models.ItemPhoto, len(itemIDs))
	for rows.Next() {
		var photo models.ItemPhoto
		if err := scanPhoto(rows, &photo); err != nil {
			return nil, fmt.Errorf("scanning photo: %w", err)
		}
		s.setURLs(&photo)
		byItem[photo.ItemID] = append(byItem[photo.ItemID], photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating photos: %w", err)
	}
	return byItem, nil
}

func (s *ItemService) setURLs(photo *models.ItemPhoto) {
	photo.URL, photo.ThumbnailURL = s.photos.URLs(photo.Location)
}

func (s *ItemService) removeFiles(ctx context.Context, loc models.PhotoLocation) {
	if err := s.photos.Remove(ctx, loc); err != nil {
		logging.Error("Failed to remove photo files", map[string]interface{}{
			"error":   err.Error(),
			"kind":    string(loc.Kind),
			"locator": loc.Locator,
		})
	}
}

func (s *ItemService) discard(ctx context.Context, stored []models.PhotoLocation) {
	for _, loc := range stored {
		s.removeFiles(ctx, loc)
	}
}

// setClause accumulates "column = $n" assignments for a partial update.
type setClause struct {
	columns []string
	args    []any
}

func (c *setClause) add(column string, value any) {
	c.args = append(c.args, value)
	c.columns = append(c.columns, fmt.Sprintf("%s = $%d", column, len(c.args)))
}

func (c *setClause) build(table, idColumn string, id uuid.UUID, returning string) (string, []any) {
	args := append(c.args, id)
	assignments := append(c.columns, "updated_at = NOW()")
	sql := fmt.Sprintf(`UPDATE %s SET %s WHERE %s = $%d RETURNING %s`,
		table, strings.Join(assignments, ", "), idColumn, len(args), returning)
	return sql, args
}

// requireCleaned rejects required text that sanitizes down to nothing.
func requireCleaned(fields map[string]string) error {
	details := map[string]string{}
	for field, value := range fields {
		if value == "" {
			details[field] = field + " is required"
		}
	}
	if len(details) > 0 {
		return apperr.Validation("Validation failed", details)
	}
	return nil
}
