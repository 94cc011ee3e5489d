package fakeaccountrepo

import (
	"sort"
	"sync"
	"time"

	"github.com/clientportal/portal-auth/accounts"
	"github.com/google/uuid"
)

var _ accounts.Repo = (*FakeAccountRepo)(nil)

// FakeAccountRepo is an in-memory accounts.Repo for tests and local runs.
type FakeAccountRepo struct {
	accounts map[string]*accounts.Account
	emailIDs map[string]string // email to account id
	lock     sync.RWMutex
}

func NewFakeAccountRepo() *FakeAccountRepo {
	return &FakeAccountRepo{
		accounts: make(map[string]*accounts.Account),
		emailIDs: make(map[string]string),
	}
}

func (ar *FakeAccountRepo) Create(account *accounts.Account) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	if _, ok := ar.emailIDs[account.Email]; ok {
		return accounts.ErrDuplicate
	}
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	account.UpdatedAt = account.CreatedAt

	cloned := clone(account)
	ar.accounts[cloned.ID] = cloned
	ar.emailIDs[cloned.Email] = cloned.ID
	return nil
}

func (ar *FakeAccountRepo) Update(account *accounts.Account) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	existing, ok := ar.accounts[account.ID]
	if !ok {
		return accounts.ErrNotFound
	}
	if existing.Email != account.Email {
		if _, taken := ar.emailIDs[account.Email]; taken {
			return accounts.ErrDuplicate
		}
		delete(ar.emailIDs, existing.Email)
		ar.emailIDs[account.Email] = account.ID
	}
	account.UpdatedAt = time.Now()
	ar.accounts[account.ID] = clone(account)
	return nil
}

func (ar *FakeAccountRepo) Delete(id string) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	account, ok := ar.accounts[id]
	if !ok {
		return accounts.ErrNotFound
	}
	delete(ar.emailIDs, account.Email)
	delete(ar.accounts, id)
	return nil
}

func (ar *FakeAccountRepo) GetByID(id string) (*accounts.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	account, ok := ar.accounts[id]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	return clone(account), nil
}

func (ar *FakeAccountRepo) GetByEmail(email string) (*accounts.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	id, ok := ar.emailIDs[email]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	return clone(ar.accounts[id]), nil
}

func (ar *FakeAccountRepo) GetByClaimToken(token string) (*accounts.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	for _, account := range ar.accounts {
		if account.ClaimToken != nil && *account.ClaimToken == token {
			return clone(account), nil
		}
	}
	return nil, accounts.ErrNotFound
}

func (ar *FakeAccountRepo) List(offset, limit int) ([]*accounts.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	all := make([]*accounts.Account, 0, len(ar.accounts))
	for _, account := range ar.accounts {
		all = append(all, clone(account))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return []*accounts.Account{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

// Claim performs the update-if-token-matches-and-unclaimed conditional write
// under the repo lock, so concurrent claims on one token yield exactly one
// winner.
func (ar *FakeAccountRepo) Claim(id, token, passwordHash string) (*accounts.Account, error) {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	account, ok := ar.accounts[id]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	if account.Claimed || account.ClaimToken == nil || *account.ClaimToken != token {
		return nil, accounts.ErrClaimConflict
	}

	account.PasswordHash = passwordHash
	account.Claimed = true
	account.ClaimToken = nil
	account.ClaimTokenExpires = nil
	account.UpdatedAt = time.Now()
	return clone(account), nil
}

func clone(a *accounts.Account) *accounts.Account {
	copied := *a
	if a.ClaimToken != nil {
		token := *a.ClaimToken
		copied.ClaimToken = &token
	}
	if a.ClaimTokenExpires != nil {
		expires := *a.ClaimTokenExpires
		copied.ClaimTokenExpires = &expires
	}
	return &copied
}
