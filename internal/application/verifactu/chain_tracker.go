package verifactu

import (
	"sync"

	"github.com/facturalia/verifactu-api/internal/domain"
)

// ChainTracker serializa los ciclos por empresa dentro del proceso. El
// bloqueo de fila del TxRunner protege entre réplicas; este mutex evita que
// dos peticiones de la misma réplica lleguen siquiera a abrir transacción.
type ChainTracker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewChainTracker crea el tracker.
func NewChainTracker() *ChainTracker {
	return &ChainTracker{locks: make(map[string]*sync.Mutex)}
}

// Acquire toma el ciclo de la empresa sin esperar. Devuelve la función de
// liberación, o ErrChainBusy si otro ciclo lo tiene tomado.
func (t *ChainTracker) Acquire(companyID string) (func(), error) {
	t.mu.Lock()
	l, ok := t.locks[companyID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[companyID] = l
	}
	t.mu.Unlock()

	if !l.TryLock() {
		return nil, domain.ErrChainBusy
	}
	return l.Unlock, nil
}
