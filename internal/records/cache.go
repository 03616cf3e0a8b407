// Package records keeps the in-memory mirror of remote patient records and
// per-patient document listings. The authority is the source of truth: the
// mirror changes only after a confirmed remote write, so a failed operation
// never leaves a half-applied local state.
package records

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/medvault/medvault/internal/transport"
	"github.com/medvault/medvault/pkg/logging"
)

// Cache mirrors the authority's patient collection. Mutations against the
// same patient id are serialized with a per-id lock so concurrent in-process
// writers apply in confirmation order instead of racing.
type Cache struct {
	transport *transport.Client
	logger    *logging.Logger

	mu       sync.Mutex
	patients []Patient
	docs     map[int64][]Document
	locks    map[int64]*sync.Mutex
}

func NewCache(tc *transport.Client, logger *logging.Logger) *Cache {
	if logger == nil {
		logger = logging.Default()
	}
	return &Cache{
		transport: tc,
		logger:    logger,
		docs:      make(map[int64][]Document),
		locks:     make(map[int64]*sync.Mutex),
	}
}

func (c *Cache) keyLock(id int64) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[id]
	if !ok {
		l = &sync.Mutex{}
		c.locks[id] = l
	}
	return l
}

// List fetches the full collection and replaces the mirror wholesale. On
// failure the stale mirror is kept (stale-but-available over
// empty-on-error) and the error is reported for the caller to surface.
func (c *Cache) List(ctx context.Context) ([]Patient, error) {
	var fetched []Patient
	if err := c.transport.DoJSON(ctx, http.MethodGet, "/patients", nil, &fetched); err != nil {
		c.logger.Warn("listing patients failed, keeping cached mirror", "error", err)
		return c.Patients(), fmt.Errorf("list patients: %w", err)
	}
	c.mu.Lock()
	c.patients = fetched
	c.mu.Unlock()
	return c.Patients(), nil
}

// Get fetches a single record and patches the mirror entry in place.
func (c *Cache) Get(ctx context.Context, id int64) (Patient, error) {
	l := c.keyLock(id)
	l.Lock()
	defer l.Unlock()

	var fetched Patient
	if err := c.transport.DoJSON(ctx, http.MethodGet, fmt.Sprintf("/patients/%d", id), nil, &fetched); err != nil {
		return Patient{}, fmt.Errorf("get patient %d: %w", id, err)
	}
	c.mu.Lock()
	c.replaceLocked(fetched)
	c.mu.Unlock()
	return fetched, nil
}

// Create posts a new record and, once the authority confirms, prepends the
// canonical record (with its server-assigned id) to the mirror.
func (c *Cache) Create(ctx context.Context, fields Patient) (Patient, error) {
	var created Patient
	if err := c.transport.DoJSON(ctx, http.MethodPost, "/patients", fields, &created); err != nil {
		return Patient{}, fmt.Errorf("create patient: %w", err)
	}
	c.mu.Lock()
	c.removeLocked(created.ID)
	c.patients = append([]Patient{created}, c.patients...)
	c.mu.Unlock()
	return created, nil
}

// Update puts the full field set and replaces the matching mirror entry
// after confirmation. On failure the mirror is untouched.
func (c *Cache) Update(ctx context.Context, id int64, fields Patient) (Patient, error) {
	l := c.keyLock(id)
	l.Lock()
	defer l.Unlock()

	var updated Patient
	if err := c.transport.DoJSON(ctx, http.MethodPut, fmt.Sprintf("/patients/%d", id), fields, &updated); err != nil {
		return Patient{}, fmt.Errorf("update patient %d: %w", id, err)
	}
	c.mu.Lock()
	c.replaceLocked(updated)
	c.mu.Unlock()
	return updated, nil
}

// Delete removes the record remotely, then drops the mirror entry and that
// patient's document listing.
func (c *Cache) Delete(ctx context.Context, id int64) error {
	l := c.keyLock(id)
	l.Lock()
	defer l.Unlock()

	if err := c.transport.DoJSON(ctx, http.MethodDelete, fmt.Sprintf("/patients/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete patient %d: %w", id, err)
	}
	c.mu.Lock()
	c.removeLocked(id)
	delete(c.docs, id)
	delete(c.locks, id)
	c.mu.Unlock()
	return nil
}

// RefreshDocuments fetches and replaces the document listing for one
// patient; other patients' cached listings are untouched.
func (c *Cache) RefreshDocuments(ctx context.Context, patientID int64) ([]Document, error) {
	var fetched []Document
	if err := c.transport.DoJSON(ctx, http.MethodGet, fmt.Sprintf("/files/patient/%d", patientID), nil, &fetched); err != nil {
		return nil, fmt.Errorf("list documents for patient %d: %w", patientID, err)
	}
	c.mu.Lock()
	c.docs[patientID] = fetched
	c.mu.Unlock()
	return append([]Document(nil), fetched...), nil
}

// Patients returns a snapshot of the mirror.
func (c *Cache) Patients() []Patient {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Patient(nil), c.patients...)
}

// Documents returns the cached listing for a patient. The second return
// reports whether the listing has been populated at all; an empty populated
// listing and a never-fetched one are different states.
func (c *Cache) Documents(patientID int64) ([]Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	docs, ok := c.docs[patientID]
	return append([]Document(nil), docs...), ok
}

// Clear wipes the mirror and all document listings. Called on logout so
// patient data does not outlive the session.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patients = nil
	c.docs = make(map[int64][]Document)
	c.locks = make(map[int64]*sync.Mutex)
}

// replaceLocked swaps the entry matching p's id; unknown ids are ignored.
// Caller holds mu.
func (c *Cache) replaceLocked(p Patient) {
	for i := range c.patients {
		if c.patients[i].ID == p.ID {
			c.patients[i] = p
			return
		}
	}
}

// removeLocked drops the entry with the given id, keeping order stable.
// Caller holds mu.
func (c *Cache) removeLocked(id int64) {
	for i := range c.patients {
		if c.patients[i].ID == id {
			c.patients = append(c.patients[:i], c.patients[i+1:]...)
			return
		}
	}
}
