package fakeclientrepo

import (
	"sort"
	"sync"
	"time"

	"github.com/clientportal/portal-auth/serviceclients"
)

var _ serviceclients.Repo = (*FakeClientRepo)(nil)

// FakeClientRepo is an in-memory serviceclients.Repo for tests and local
// runs.
type FakeClientRepo struct {
	clients map[string]*serviceclients.Client
	lock    sync.RWMutex
}

func NewFakeClientRepo() *FakeClientRepo {
	return &FakeClientRepo{
		clients: make(map[string]*serviceclients.Client),
	}
}

func (cr *FakeClientRepo) Get(id string) (*serviceclients.Client, error) {
	cr.lock.RLock()
	defer cr.lock.RUnlock()

	client, ok := cr.clients[id]
	if !ok {
		return nil, serviceclients.ErrNotFound
	}
	copied := *client
	return &copied, nil
}

func (cr *FakeClientRepo) Upsert(client *serviceclients.Client) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	if client.CreatedAt.IsZero() {
		client.CreatedAt = time.Now()
	}
	client.UpdatedAt = time.Now()
	copied := *client
	cr.clients[client.ID] = &copied
	return nil
}

func (cr *FakeClientRepo) Delete(id string) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	if _, ok := cr.clients[id]; !ok {
		return serviceclients.ErrNotFound
	}
	delete(cr.clients, id)
	return nil
}

func (cr *FakeClientRepo) List() ([]*serviceclients.Client, error) {
	cr.lock.RLock()
	defer cr.lock.RUnlock()

	all := make([]*serviceclients.Client, 0, len(cr.clients))
	for _, client := range cr.clients {
		copied := *client
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

func (cr *FakeClientRepo) SetActive(id string, active bool) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	client, ok := cr.clients[id]
	if !ok {
		return serviceclients.ErrNotFound
	}
	client.Active = active
	client.UpdatedAt = time.Now()
	return nil
}

func (cr *FakeClientRepo) RotateSecret(id, newSecret string) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	client, ok := cr.clients[id]
	if !ok {
		return serviceclients.ErrNotFound
	}
	client.PlainSecret = newSecret
	client.UpdatedAt = time.Now()
	return nil
}

func (cr *FakeClientRepo) TrackUsage(id string, at time.Time) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	client, ok := cr.clients[id]
	if !ok {
		return serviceclients.ErrNotFound
	}
	client.LastUsed = at
	return nil
}
