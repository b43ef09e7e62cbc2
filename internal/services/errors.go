package services

import "github.com/HammerMeetNail/giftcircle/internal/apperr"

var (
	ErrEmailTaken         = apperr.Conflict("Email already in use")
	ErrUsernameTaken      = apperr.Conflict("Username already taken")
	ErrInvalidCredentials = apperr.Unauthorized("Invalid email or password")
	ErrCurrentUserGone    = apperr.Unauthorized("User not found")
	ErrInvalidToken       = apperr.Unauthorized("Invalid or expired token")
)

var (
	ErrSelfFriendRequest     = apperr.BadRequest("You cannot send a friend request to yourself")
	ErrUserNotFound          = apperr.NotFound("User not found")
	ErrAlreadyFriends        = apperr.BadRequest("You are already friends")
	ErrRequestAlreadySent    = apperr.BadRequest("Friend request already sent")
	ErrFriendRequestNotFound = apperr.NotFound("Friend request not found")
	ErrNotAddressee          = apperr.Forbidden("You can only accept requests sent to you")
	ErrRequestNotPending     = apperr.BadRequest("This request is not pending")
	ErrNotRequestParty       = apperr.Forbidden("You can only decline your own requests")
	ErrFriendshipNotFound    = apperr.NotFound("Friendship not found")
	ErrNotFriendshipParty    = apperr.Forbidden("You can only remove your own friendships")
)

var (
	ErrItemNotFound         = apperr.NotFound("Item not found")
	ErrItemNotVisible       = apperr.Forbidden("You can only view items from friends")
	ErrItemUpdateForbidden  = apperr.Forbidden("You can only update your own items")
	ErrItemDeleteForbidden  = apperr.Forbidden("You can only delete your own items")
	ErrPhotoUploadForbidden = apperr.Forbidden("You can only upload photos for your own items")
	ErrTooManyPhotos        = apperr.BadRequest("Maximum 5 photos per item")
	ErrNoPhotos             = apperr.BadRequest("No files uploaded")
	ErrPhotoNotFound        = apperr.NotFound("Photo not found")
	ErrPhotoDeleteForbidden = apperr.Forbidden("You can only delete photos from your own items")
)

var (
	ErrWishNotFound        = apperr.NotFound("Wish not found")
	ErrWishNotVisible      = apperr.Forbidden("You can only view wishes from friends")
	ErrWishUpdateForbidden = apperr.Forbidden("You can only update your own wishes")
	ErrWishDeleteForbidden = apperr.Forbidden("You can only delete your own wishes")
)
