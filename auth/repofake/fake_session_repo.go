package fakeauthrepo

import (
	"errors"
	"sync"

	"github.com/clientportal/portal-auth/auth"
)

var _ auth.SessionRepo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is an in-memory auth.SessionRepo for tests and local runs.
type FakeSessionRepo struct {
	sessions map[string]*auth.CredentialSession
	lock     sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]*auth.CredentialSession),
	}
}

func (sr *FakeSessionRepo) Create(session *auth.CredentialSession) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	copied := *session
	sr.sessions[session.Token] = &copied
	return nil
}

func (sr *FakeSessionRepo) GetByToken(token string) (*auth.CredentialSession, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	session, ok := sr.sessions[token]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *session
	return &copied, nil
}

func (sr *FakeSessionRepo) Delete(token string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	delete(sr.sessions, token)
	return nil
}

func (sr *FakeSessionRepo) DeleteByAccount(accountID string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	for token, session := range sr.sessions {
		if session.AccountID == accountID {
			delete(sr.sessions, token)
		}
	}
	return nil
}
