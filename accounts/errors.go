package accounts

import "errors"

var (
	ErrNotFound      = errors.New("account not found")
	ErrDuplicate     = errors.New("account already exists")
	ErrClaimConflict = errors.New("claim conditions no longer hold")
)
