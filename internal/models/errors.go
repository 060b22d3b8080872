package models

import "errors"

// Sentinel errors returned by the stores. Handlers translate these into
// HTTP status codes at the boundary.
var (
	// ErrNotFound is returned when a referenced account, post or comment does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateUser is returned when an insert or update trips the
	// unique index on username or email. Pre-checks lose the race; the
	// index is what actually enforces uniqueness.
	ErrDuplicateUser = errors.New("username or email already taken")

	// ErrAlreadyLiked is returned when a (user, post) like already exists.
	// Duplicate likes are a caller-visible conflict, not a silent no-op.
	ErrAlreadyLiked = errors.New("post already liked")

	// ErrNotLiked is returned when unliking a post that was never liked.
	ErrNotLiked = errors.New("post not liked")

	// ErrAlreadyFollowing is returned by the follow store when the edge
	// already exists. The follow action absorbs it: following twice succeeds.
	ErrAlreadyFollowing = errors.New("already following this user")
)
