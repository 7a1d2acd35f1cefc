package channel

import (
	"fmt"
	"sync"

	protoerr "github.com/alxayo/go-ihs/internal/errors"
	"github.com/alxayo/go-ihs/internal/ihs/wire"
)

// Dispatcher routes inbound packets to the registered channel by id, the
// session-level lookup table named in spec.md §4.4.
type Dispatcher struct {
	mu       sync.RWMutex
	channels map[uint8]Channel
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{channels: make(map[uint8]Channel)}
}

// Register installs a channel under the given id, calling Init with cfg.
func (d *Dispatcher) Register(id uint8, ch Channel, cfg Config) error {
	cfg.ChannelID = id
	if err := ch.Init(cfg); err != nil {
		return err
	}
	d.mu.Lock()
	d.channels[id] = ch
	d.mu.Unlock()
	return nil
}

// Unregister notifies the channel (if it implements Stopper), tears it
// down via Deinit, and removes it from the table. Safe to call on an
// unknown id.
func (d *Dispatcher) Unregister(id uint8) {
	d.mu.Lock()
	ch, ok := d.channels[id]
	delete(d.channels, id)
	d.mu.Unlock()
	if !ok {
		return
	}
	if s, ok := ch.(Stopper); ok {
		s.Stopped()
	}
	ch.Deinit()
}

// Dispatch looks up the channel for h.ChannelID and forwards Received.
// Returns an error identifying an unknown channel id as a protocol
// error so the caller can decide whether to log-and-drop.
func (d *Dispatcher) Dispatch(h wire.Header, body []byte) error {
	d.mu.RLock()
	ch, ok := d.channels[h.ChannelID]
	d.mu.RUnlock()
	if !ok {
		return protoerr.NewWireError("dispatch", fmt.Errorf("unknown channel id %d", h.ChannelID))
	}
	return ch.Received(h, body)
}

// Lookup returns the channel registered under id, if any.
func (d *Dispatcher) Lookup(id uint8) (Channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ch, ok := d.channels[id]
	return ch, ok
}

// StopAll calls Stopped/Deinit on every registered channel and empties
// the table, used during session shutdown.
func (d *Dispatcher) StopAll() {
	d.mu.Lock()
	ids := make([]uint8, 0, len(d.channels))
	for id := range d.channels {
		ids = append(ids, id)
	}
	d.mu.Unlock()
	for _, id := range ids {
		d.Unregister(id)
	}
}
