// Package bestscore persists the best grid score per board and difficulty.
// Every store is monotonic: SetBest never lowers a stored value.
package bestscore

import (
	"context"
	"sync"

	"github.com/mcdev12/reflex/go/internal/round"
)

var (
	_ round.BestScoreStore = (*MemoryStore)(nil)
	_ round.BestScoreStore = (*SQLStore)(nil)
	_ round.BestScoreStore = (*PostgresStore)(nil)
)

// MemoryStore keeps best scores for the lifetime of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	scores map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scores: make(map[string]int)}
}

func (m *MemoryStore) GetBest(ctx context.Context, key round.BoardKey) (int, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.scores[key.String()]
	return v, ok, nil
}

func (m *MemoryStore) SetBest(ctx context.Context, key round.BoardKey, value int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.scores[key.String()]; ok && value <= cur {
		return nil
	}
	m.scores[key.String()] = value
	return nil
}
