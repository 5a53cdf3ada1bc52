package repo

import (
	"sync"

	"github.com/google/uuid"
)

// claimSet — посты, которые сейчас публикуются или меняются в этом процессе.
//
// SQLiteRepo держит захват вместо транзакции на время вызова платформы:
// соединение освобождается, а параллельная запись в тот же пост
// получает ErrNotClaimed или ErrConflict.
type claimSet struct {
	mu  sync.Mutex
	ids map[uuid.UUID]struct{}
}

func newClaimSet() *claimSet {
	return &claimSet{ids: make(map[uuid.UUID]struct{})}
}

// acquire захватывает id. false — пост уже захвачен.
func (c *claimSet) acquire(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.ids[id]; busy {
		return false
	}
	c.ids[id] = struct{}{}
	return true
}

func (c *claimSet) release(id uuid.UUID) {
	c.mu.Lock()
	delete(c.ids, id)
	c.mu.Unlock()
}
