package alerting

import "sync"

// ruleLocks hands out one mutex per rule id so the dedup check and the alert
// insert for the same rule never interleave inside this process. Different
// rules proceed in parallel. Cross-process safety comes from the conditional
// insert in the alert store.
type ruleLocks struct {
	locks sync.Map // rule id -> *sync.Mutex
}

func (r *ruleLocks) forRule(id int64) *sync.Mutex {
	mu, _ := r.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
