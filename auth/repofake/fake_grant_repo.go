package fakeauthrepo

import (
	"errors"
	"sync"

	"github.com/clientportal/portal-auth/auth"
)

var _ auth.GrantRepo = (*FakeGrantRepo)(nil)

// FakeGrantRepo is an in-memory auth.GrantRepo for tests and local runs.
type FakeGrantRepo struct {
	grants map[string]*auth.LoginGrant
	lock   sync.Mutex
}

func NewFakeGrantRepo() *FakeGrantRepo {
	return &FakeGrantRepo{
		grants: make(map[string]*auth.LoginGrant),
	}
}

func (gr *FakeGrantRepo) Create(grant *auth.LoginGrant) error {
	gr.lock.Lock()
	defer gr.lock.Unlock()

	copied := *grant
	gr.grants[grant.Token] = &copied
	return nil
}

// Consume removes and returns the grant under the lock, so a grant can only
// be redeemed once even under concurrent attempts.
func (gr *FakeGrantRepo) Consume(token string) (*auth.LoginGrant, error) {
	gr.lock.Lock()
	defer gr.lock.Unlock()

	grant, ok := gr.grants[token]
	if !ok {
		return nil, errors.New("not found")
	}
	delete(gr.grants, token)
	copied := *grant
	return &copied, nil
}
