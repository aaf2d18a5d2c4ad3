package kds

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/events"
)

type fakeConn struct {
	mu        sync.Mutex
	messages  [][]byte
	deadlines int
	fail      bool
	closed    bool
	// block, when set, stalls every write until it is closed.
	block chan struct{}
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	f.messages = append(f.messages, data)
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadlines++
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestNotifyBroadcastsToAllClients(t *testing.T) {
	hub := NewHub()
	cashier, chef := &fakeConn{}, &fakeConn{}
	hub.RegisterClient(cashier, "cashier")
	hub.RegisterClient(chef, "chef")

	hub.Notify(context.Background(), events.New(events.OrderCreated, map[string]int{"id": 3}))

	require.Eventually(t, func() bool { return cashier.count() == 1 && chef.count() == 1 }, time.Second, 5*time.Millisecond)

	cashier.mu.Lock()
	defer cashier.mu.Unlock()
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(cashier.messages[0], &decoded))
	assert.Equal(t, events.OrderCreated, decoded["event"])
	assert.Equal(t, 1, cashier.deadlines, "every write carries a deadline")
}

func TestBrokenClientIsDropped(t *testing.T) {
	hub := NewHub()
	broken := &fakeConn{fail: true}
	hub.RegisterClient(broken, "waiter")

	hub.Notify(context.Background(), events.New(events.TableUpdated, nil))

	assert.Eventually(t, broken.isClosed, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSlowClientDoesNotStallOthers(t *testing.T) {
	hub := NewHub()
	stuck := &fakeConn{block: make(chan struct{})}
	defer close(stuck.block)
	kitchen := &fakeConn{}
	hub.RegisterClient(stuck, "waiter")
	hub.RegisterClient(kitchen, "chef")

	// The kitchen keeps up frame by frame while the stalled terminal's
	// queue overflows.
	frames := sendBuffer + 5
	done := make(chan bool)
	go func() {
		for i := 0; i < frames; i++ {
			hub.Notify(context.Background(), events.New(events.OrderUpdated, map[string]int{"seq": i}))
			if !waitFor(func() bool { return kitchen.count() == i+1 }, time.Second) {
				done <- false
				return
			}
		}
		done <- true
	}()

	select {
	case ok := <-done:
		require.True(t, ok, "kitchen terminal fell behind")
	case <-time.After(5 * time.Second):
		t.Fatal("broadcast blocked on a stalled terminal")
	}

	assert.Equal(t, frames, kitchen.count())
	assert.Equal(t, 1, hub.ClientCount(), "the stalled terminal is dropped")
	assert.False(t, kitchen.isClosed())
}

func waitFor(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

func TestUnregisterClient(t *testing.T) {
	hub := NewHub()
	c := &fakeConn{}
	hub.RegisterClient(c, "chef")
	hub.RegisterClient(c, "chef")
	assert.Equal(t, 1, hub.ClientCount())

	hub.UnregisterClient(c)
	assert.Equal(t, 0, hub.ClientCount())
	assert.Eventually(t, c.isClosed, time.Second, 5*time.Millisecond)

	hub.UnregisterClient(c)
	hub.Notify(context.Background(), events.New(events.TableUpdated, nil))
	assert.Equal(t, 0, c.count())
}
