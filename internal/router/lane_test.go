package router

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flemzord/tgrelay/pkg/message"
)

func TestLaneLock_SameConversation_Serial(t *testing.T) {
	t.Parallel()

	ll := NewLaneLock()
	key := LaneKey{Channel: "telegram", ConversationID: 1}

	var counter atomic.Int32
	var maxConcurrent atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ll.Acquire(key)
			defer ll.Release(key)

			cur := counter.Add(1)
			for {
				old := maxConcurrent.Load()
				if cur <= old || maxConcurrent.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			counter.Add(-1)
		}()
	}

	wg.Wait()

	if peak := maxConcurrent.Load(); peak != 1 {
		t.Errorf("max concurrent goroutines in critical section = %d, want 1", peak)
	}
	if ll.Len() != 0 {
		t.Errorf("Len() = %d after all releases, want 0", ll.Len())
	}
}

func TestLaneLock_DifferentConversations_Parallel(t *testing.T) {
	t.Parallel()

	ll := NewLaneLock()
	keyA := LaneKey{Channel: "telegram", ConversationID: 1}
	keyB := LaneKey{Channel: "telegram", ConversationID: 2}

	ll.Acquire(keyA)
	defer ll.Release(keyA)

	done := make(chan struct{})
	go func() {
		ll.Acquire(keyB)
		ll.Release(keyB)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lane B blocked by lane A")
	}
}

func TestLaneLock_ReleaseUnknownKey(t *testing.T) {
	t.Parallel()

	ll := NewLaneLock()
	ll.Release(LaneKey{ConversationID: 99})
	if ll.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ll.Len())
	}
}

func TestLaneKeyFromMessage(t *testing.T) {
	t.Parallel()

	id := int64(-100123)
	key, ok := LaneKeyFromMessage(message.InboundMessage{Channel: "telegram", ConversationID: &id})
	if !ok || key != (LaneKey{Channel: "telegram", ConversationID: id}) {
		t.Errorf("LaneKeyFromMessage() = (%+v, %v)", key, ok)
	}

	if _, ok := LaneKeyFromMessage(message.InboundMessage{Channel: "telegram"}); ok {
		t.Error("expected false for message without conversation")
	}
}
