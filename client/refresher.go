package client

import (
	"sync"
	"time"
)

// DefaultRefreshWindow is how long IsRefreshing stays true after Refresh.
const DefaultRefreshWindow = 2 * time.Second

// Refresher is the layout-level refresh button. Every Refresh bumps a key
// that mounted views reload on.
type Refresher struct {
	window time.Duration

	mu         sync.Mutex
	key        uint64
	refreshing bool
	timer      *time.Timer
	subs       map[int]chan uint64
	nextSub    int
}

// NewRefresher uses DefaultRefreshWindow when window is not positive.
func NewRefresher(window time.Duration) *Refresher {
	if window <= 0 {
		window = DefaultRefreshWindow
	}
	return &Refresher{window: window, subs: make(map[int]chan uint64)}
}

func (r *Refresher) RefreshKey() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.key
}

// IsRefreshing is a fixed-length indicator; it does not track the
// reloads it triggers.
func (r *Refresher) IsRefreshing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshing
}

// Refresh increments the key once and notifies subscribers. A slow
// subscriber only ever sees the latest key.
func (r *Refresher) Refresh() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.key++
	r.refreshing = true
	if r.timer != nil {
		r.timer.Stop()
	}
	key := r.key
	r.timer = time.AfterFunc(r.window, func() { r.expire(key) })

	for _, ch := range r.subs {
		select {
		case <-ch:
		default:
		}
		ch <- r.key
	}
	return r.key
}

// expire ends the window opened by the Refresh that produced key. Timer.Stop
// cannot recall a callback that already fired and is waiting on mu, so a
// callback from an older window must not end the current one.
func (r *Refresher) expire(key uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.key == key {
		r.refreshing = false
	}
}

// Subscribe returns a channel of new keys and a cancel func that closes it.
func (r *Refresher) Subscribe() (<-chan uint64, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	ch := make(chan uint64, 1)
	r.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
			close(ch)
		})
	}
}

// Stop cancels a pending indicator reset.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.refreshing = false
}
