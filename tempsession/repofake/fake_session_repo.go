package fakesessionrepo

import (
	"sync"

	"github.com/clientportal/portal-auth/tempsession"
)

var _ tempsession.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is an in-memory tempsession.Repo for tests and local runs.
type FakeSessionRepo struct {
	sessions map[string]*tempsession.Session
	lock     sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]*tempsession.Session),
	}
}

func (sr *FakeSessionRepo) Create(session *tempsession.Session) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	copied := *session
	sr.sessions[session.Token] = &copied
	return nil
}

func (sr *FakeSessionRepo) GetByToken(token string) (*tempsession.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	session, ok := sr.sessions[token]
	if !ok {
		return nil, tempsession.ErrInvalidSession
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

// Count is a test helper reporting how many sessions are stored.
func (sr *FakeSessionRepo) Count() int {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return len(sr.sessions)
}
