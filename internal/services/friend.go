package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/giftcircle/internal/logging"
	"github.com/HammerMeetNail/giftcircle/internal/models"
)

const SearchResultLimit = 20

type FriendService struct {
	db       DB
	notifier Notifier
}

func NewFriendService(db DB) *FriendService {
	return &FriendService{db: db}
}

func (s *FriendService) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

const friendshipColumns = `id, requester_id, addressee_id, status, created_at, accepted_at`

func scanFriendship(row Row, f *models.Friendship) error {
	return row.Scan(&f.ID, &f.RequesterID, &f.AddresseeID, &f.Status, &f.CreatedAt, &f.AcceptedAt)
}

// SearchUsers matches username or name and leaves out the caller and anyone
// already connected to them by a friendship row of any status.
func (s *FriendService) SearchUsers(ctx context.Context, query string, selfID uuid.UUID) ([]models.UserSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.UserSearchResult{}, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT u.id, u.username, u.name, u.created_at
		 FROM users u
		 WHERE u.id <> $1
		   AND (u.username ILIKE $2 ESCAPE '\' OR u.name ILIKE $2 ESCAPE '\')
		   AND NOT EXISTS (
		     SELECT 1 FROM friendships f
		     WHERE (f.requester_id = $1 AND f.addressee_id = u.id)
		        OR (f.requester_id = u.id AND f.addressee_id = $1)
		   )
		 ORDER BY u.username
		 LIMIT $3`,
		selfID, likePattern(query), SearchResultLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	defer rows.Close()

	results := []models.UserSearchResult{}
	for rows.Next() {
		var r models.UserSearchResult
		if err := rows.Scan(&r.ID, &r.Username, &r.Name, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return results, nil
}

func (s *FriendService) SendRequest(ctx context.Context, requesterID, addresseeID uuid.UUID) (*models.FriendshipWithUser, error) {
	if requesterID == addresseeID {
		return nil, ErrSelfFriendRequest
	}

	result := &models.FriendshipWithUser{}
	var contacts map[uuid.UUID]Contact
	err := withTx(ctx, s.db, func(tx Tx) error {
		if err := lockFriendshipPair(ctx, tx, requesterID, addresseeID); err != nil {
			return err
		}

		var status models.FriendshipStatus
		err := tx.QueryRow(ctx,
			`SELECT status FROM friendships
			 WHERE (requester_id = $1 AND addressee_id = $2)
			    OR (requester_id = $2 AND addressee_id = $1)
			 LIMIT 1`,
			requesterID, addresseeID,
		).Scan(&status)
		switch {
		case err == nil:
			if status == models.FriendshipStatusAccepted {
				return ErrAlreadyFriends
			}
			return ErrRequestAlreadySent
		case !errors.Is(err, pgx.ErrNoRows):
			return fmt.Errorf("checking existing friendship: %w", err)
		}

		err = scanFriendship(tx.QueryRow(ctx,
			`INSERT INTO friendships (requester_id, addressee_id, status)
			 VALUES ($1, $2, 'PENDING')
			 RETURNING `+friendshipColumns,
			requesterID, addresseeID,
		), &result.Friendship)
		if constraint, ok := uniqueViolation(err); ok && (constraint == "" || constraint == "friendships_pair_uq") {
			return ErrRequestAlreadySent
		}
		if err != nil {
			return fmt.Errorf("creating friend request: %w", err)
		}

		contacts, err = loadContacts(ctx, tx, requesterID, addresseeID)
		return err
	})
	if err != nil {
		return nil, err
	}

	addressee := contacts[addresseeID].Public()
	result.Addressee = &addressee

	if s.notifier != nil {
		if err := s.notifier.FriendRequestReceived(ctx, contacts[addresseeID], contacts[requesterID].Public()); err != nil {
			logging.Error("Failed to send friend request notification", map[string]interface{}{
				"error":         err.Error(),
				"friendship_id": result.ID.String(),
			})
		}
	}

	return result, nil
}

func (s *FriendService) AcceptRequest(ctx context.Context, friendshipID, actingID uuid.UUID) (*models.FriendshipWithUser, error) {
	f, err := s.getFriendship(ctx, friendshipID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFriendRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	if f.AddresseeID != actingID {
		return nil, ErrNotAddressee
	}
	if f.Status != models.FriendshipStatusPending {
		return nil, ErrRequestNotPending
	}

	result := &models.FriendshipWithUser{}
	err = scanFriendship(s.db.QueryRow(ctx,
		`UPDATE friendships
		 SET status = 'ACCEPTED', accepted_at = NOW()
		 WHERE id = $1 AND status = 'PENDING'
		 RETURNING `+friendshipColumns,
		friendshipID,
	), &result.Friendship)
	if errors.Is(err, pgx.ErrNoRows) {
		// Declined, removed or accepted concurrently.
		return nil, ErrRequestNotPending
	}
	if err != nil {
		return nil, fmt.Errorf("accepting friend request: %w", err)
	}

	contacts, err := loadContacts(ctx, s.db, result.RequesterID, result.AddresseeID)
	if err != nil {
		return nil, err
	}
	requester := contacts[result.RequesterID].Public()
	result.Requester = &requester

	if s.notifier != nil {
		if err := s.notifier.FriendRequestAccepted(ctx, contacts[result.RequesterID], contacts[result.AddresseeID].Public()); err != nil {
			logging.Error("Failed to send friend accepted notification", map[string]interface{}{
				"error":         err.Error(),
				"friendship_id": result.ID.String(),
			})
		}
	}

	return result, nil
}

// DeclineRequest deletes the row whatever its status; there is no declined state.
func (s *FriendService) DeclineRequest(ctx context.Context, friendshipID, actingID uuid.UUID) error {
	return s.deleteFriendship(ctx, friendshipID, actingID, ErrFriendRequestNotFound, ErrNotRequestParty)
}

func (s *FriendService) RemoveFriend(ctx context.Context, friendshipID, actingID uuid.UUID) error {
	return s.deleteFriendship(ctx, friendshipID, actingID, ErrFriendshipNotFound, ErrNotFriendshipParty)
}

func (s *FriendService) deleteFriendship(ctx context.Context, friendshipID, actingID uuid.UUID, notFound, forbidden error) error {
	f, err := s.getFriendship(ctx, friendshipID)
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	if err != nil {
		return err
	}
	if !f.Involves(actingID) {
		return forbidden
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM friendships WHERE id = $1`, friendshipID)
	if err != nil {
		return fmt.Errorf("deleting friendship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

// GetFriends lists accepted friendships with the other party and their open
// item and wish counts.
func (s *FriendService) GetFriends(ctx context.Context, userID uuid.UUID) ([]models.FriendshipWithUser, error) {
	rows, err := s.db.Query(ctx,
		`SELECT f.id, f.requester_id, f.addressee_id, f.status, f.created_at, f.accepted_at,
		        u.username, u.name,
		        (SELECT COUNT(*) FROM items i WHERE i.user_id = u.id AND NOT i.is_gifted),
		        (SELECT COUNT(*) FROM wishes w WHERE w.user_id = u.id AND NOT w.is_fulfilled)
		 FROM friendships f
		 JOIN users u ON u.id = CASE WHEN f.requester_id = $1 THEN f.addressee_id ELSE f.requester_id END
		 WHERE (f.requester_id = $1 OR f.addressee_id = $1)
		   AND f.status = 'ACCEPTED'
		 ORDER BY u.name, u.username`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing friends: %w", err)
	}
	defer rows.Close()

	friends := []models.FriendshipWithUser{}
	for rows.Next() {
		var fw models.FriendshipWithUser
		var summary models.FriendSummary
		if err := rows.Scan(
			&fw.ID, &fw.RequesterID, &fw.AddresseeID, &fw.Status, &fw.CreatedAt, &fw.AcceptedAt,
			&summary.Username, &summary.Name,
			&summary.ItemCount, &summary.WishCount,
		); err != nil {
			return nil, fmt.Errorf("scanning friend: %w", err)
		}
		summary.ID = fw.OtherParty(userID)
		summary.FriendsSince = friendsSince(fw.Friendship)
		fw.Friend = &summary
		friends = append(friends, fw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating friends: %w", err)
	}
	return friends, nil
}

// GetPendingRequests lists PENDING requests addressed to userID.
func (s *FriendService) GetPendingRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendshipWithUser, error) {
	return s.listRequests(ctx, "requester_id", "addressee_id", userID, func(fw *models.FriendshipWithUser, u *models.PublicUser) {
		fw.Requester = u
	})
}

// GetSentRequests lists PENDING requests userID has sent.
func (s *FriendService) GetSentRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendshipWithUser, error) {
	return s.listRequests(ctx, "addressee_id", "requester_id", userID, func(fw *models.FriendshipWithUser, u *models.PublicUser) {
		fw.Addressee = u
	})
}

func (s *FriendService) listRequests(ctx context.Context, joinColumn, ownColumn string, userID uuid.UUID, attach func(*models.FriendshipWithUser, *models.PublicUser)) ([]models.FriendshipWithUser, error) {
	rows, err := s.db.Query(ctx,
		`SELECT f.id, f.requester_id, f.addressee_id, f.status, f.created_at, f.accepted_at,
		        u.id, u.username, u.name
		 FROM friendships f
		 JOIN users u ON u.id = f.`+joinColumn+`
		 WHERE f.`+ownColumn+` = $1 AND f.status = 'PENDING'
		 ORDER BY f.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing friend requests: %w", err)
	}
	defer rows.Close()

	requests := []models.FriendshipWithUser{}
	for rows.Next() {
		var fw models.FriendshipWithUser
		other := &models.PublicUser{}
		if err := rows.Scan(
			&fw.ID, &fw.RequesterID, &fw.AddresseeID, &fw.Status, &fw.CreatedAt, &fw.AcceptedAt,
			&other.ID, &other.Username, &other.Name,
		); err != nil {
			return nil, fmt.Errorf("scanning friend request: %w", err)
		}
		attach(&fw, other)
		requests = append(requests, fw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating friend requests: %w", err)
	}
	return requests, nil
}

// FriendIDs returns the ids of everyone with an ACCEPTED friendship with userID.
func (s *FriendService) FriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT CASE WHEN requester_id = $1 THEN addressee_id ELSE requester_id END
		 FROM friendships
		 WHERE (requester_id = $1 OR addressee_id = $1) AND status = 'ACCEPTED'`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing friend ids: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning friend id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating friend ids: %w", err)
	}
	return ids, nil
}

// CanView is the visibility rule for items and wishes: owners always see
// their own, anyone else needs an ACCEPTED friendship in either direction.
func (s *FriendService) CanView(ctx context.Context, viewerID, ownerID uuid.UUID) (bool, error) {
	if viewerID == ownerID {
		return true, nil
	}
	var ok bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(
		   SELECT 1 FROM friendships
		   WHERE status = 'ACCEPTED'
		     AND ((requester_id = $1 AND addressee_id = $2) OR (requester_id = $2 AND addressee_id = $1))
		 )`,
		viewerID, ownerID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("checking friendship: %w", err)
	}
	return ok, nil
}

func (s *FriendService) getFriendship(ctx context.Context, id uuid.UUID) (*models.Friendship, error) {
	f := &models.Friendship{}
	err := scanFriendship(s.db.QueryRow(ctx, `SELECT `+friendshipColumns+` FROM friendships WHERE id = $1`, id), f)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("getting friendship: %w", err)
	}
	return f, nil
}

func loadContacts(ctx context.Context, q DBConn, ids ...uuid.UUID) (map[uuid.UUID]Contact, error) {
	rows, err := q.Query(ctx, `SELECT id, username, name, email FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	defer rows.Close()

	contacts := make(map[uuid.UUID]Contact, len(ids))
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Username, &c.Name, &c.Email); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		contacts[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return contacts, nil
}

func friendsSince(f models.Friendship) time.Time {
	if f.AcceptedAt != nil {
		return *f.AcceptedAt
	}
	return f.CreatedAt
}
