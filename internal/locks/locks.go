// Package locks provides an in-process advisory lock arena keyed by
// order id. Conference, split and replace flows hold the order's lock
// for their full duration so two warehouse terminals working the same
// order inside one process are serialized.
package locks

import "sync"

type OrderLocks struct {
	mus sync.Map // int64 → *sync.Mutex
}

func NewOrderLocks() *OrderLocks {
	return &OrderLocks{}
}

// Lock blocks until the order's mutex is held and returns the unlock
// function.
func (l *OrderLocks) Lock(orderID int64) func() {
	v, _ := l.mus.LoadOrStore(orderID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
