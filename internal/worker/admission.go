package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Admission bounds the number of full-chapter renders in flight at once.
// Excess accepted requests queue inside the semaphore wait; a render that
// cannot get a slot within the timeout fails and is never retried.
type Admission struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

func NewAdmission(capacity int64, timeout time.Duration) *Admission {
	return &Admission{
		sem:     semaphore.NewWeighted(capacity),
		timeout: timeout,
	}
}

// Acquire blocks until a render slot is free or the timeout elapses. On
// success it returns a release func that is safe to defer and to call more
// than once — the slot is given back exactly once.
func (a *Admission) Acquire(ctx context.Context) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.sem.Acquire(waitCtx, 1); err != nil {
		return nil, fmt.Errorf("no render slot available after %s: %w", a.timeout, err)
	}

	var once sync.Once
	release := func() {
		once.Do(func() { a.sem.Release(1) })
	}
	return release, nil
}
