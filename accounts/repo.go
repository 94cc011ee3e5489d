package accounts

// Repo is the persistence contract the auth core requires for accounts.
type Repo interface {
	Create(account *Account) error
	Update(account *Account) error
	Delete(id string) error
	GetByID(id string) (*Account, error)
	GetByEmail(email string) (*Account, error)
	GetByClaimToken(token string) (*Account, error)
	List(offset, limit int) ([]*Account, error)

	// Claim is the atomic conditional update behind consumeClaim: set the
	// password hash, mark the account claimed and null the claim token, but
	// only if the stored token still matches and the account is still
	// unclaimed. When two requests race on the same token exactly one wins;
	// the loser gets ErrClaimConflict.
	Claim(id, token, passwordHash string) (*Account, error)
}
