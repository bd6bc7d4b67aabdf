package session

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/innovativesol/voice-assessment/internal/models"
)

// MemoryStore is an in-process Store for tests and local runs. It applies the
// same revision discipline as the S3 implementation.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
	versions map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]byte),
		versions: make(map[string]int),
	}
}

func (m *MemoryStore) Get(ctx context.Context, assessmentID string) (*models.CallSession, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.sessions[assessmentID]
	if !ok {
		return nil, "", ErrNotFound
	}

	var session models.CallSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, "", err
	}
	return &session, strconv.Itoa(m.versions[assessmentID]), nil
}

func (m *MemoryStore) Put(ctx context.Context, session *models.CallSession, revision string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[session.AssessmentID]; !ok {
		return "", ErrNotFound
	}
	if strconv.Itoa(m.versions[session.AssessmentID]) != revision {
		return "", ErrRevisionConflict
	}
	return m.store(session)
}

func (m *MemoryStore) Create(ctx context.Context, session *models.CallSession) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[session.AssessmentID]; ok {
		return "", ErrAlreadyExists
	}
	return m.store(session)
}

func (m *MemoryStore) store(session *models.CallSession) (string, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return "", err
	}
	m.sessions[session.AssessmentID] = data
	m.versions[session.AssessmentID]++
	return strconv.Itoa(m.versions[session.AssessmentID]), nil
}
