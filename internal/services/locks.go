package services

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

const lockUsersSQL = `SELECT id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`

// lockFriendshipPair locks both users of a prospective friendship in id
// order, so SendRequest calls for the same pair in either direction queue on
// the same first row. It must run inside a transaction. A user that does not
// exist is ErrUserNotFound.
func lockFriendshipPair(ctx context.Context, tx DBConn, requesterID, addresseeID uuid.UUID) error {
	ids := []uuid.UUID{requesterID, addresseeID}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	ids = slices.Compact(ids)

	rows, err := tx.Query(ctx, lockUsersSQL, ids)
	if err != nil {
		return fmt.Errorf("locking users: %w", err)
	}
	defer rows.Close()

	locked := 0
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scanning locked user: %w", err)
		}
		locked++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("locking users: %w", err)
	}
	if locked != len(ids) {
		return ErrUserNotFound
	}
	return nil
}
