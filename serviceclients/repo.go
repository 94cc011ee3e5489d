package serviceclients

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("service client not found")

// Repo is the registry of service clients. Lifecycle changes (disable,
// secret rotation, scope edits) take effect on the next request; nothing is
// cached in the verifiers.
type Repo interface {
	Get(id string) (*Client, error)
	Upsert(client *Client) error
	Delete(id string) error
	List() ([]*Client, error)
	SetActive(id string, active bool) error
	RotateSecret(id, newSecret string) error
	TrackUsage(id string, at time.Time) error
}
