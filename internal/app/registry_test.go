package app

import (
	"fmt"
	"sync"
	"testing"

	"github.com/solocast/solocast/internal/core"
)

func TestRegistry_AddGetRemove(t *testing.T) {
	r := NewRegistry()
	sess := core.NewClientSession("client-1")

	r.Add(sess)
	if r.Len() != 1 {
		t.Fatalf("len after add = %d", r.Len())
	}
	got, ok := r.Get("client-1")
	if !ok || got != sess {
		t.Fatalf("Get must return the registered session")
	}

	r.Remove("client-1")
	if r.Len() != 0 {
		t.Fatalf("len after remove = %d", r.Len())
	}
	if _, ok := r.Get("client-1"); ok {
		t.Fatalf("removed session must not resolve")
	}

	// Removing twice is a no-op.
	r.Remove("client-1")
}

func TestRegistry_CloseAll(t *testing.T) {
	r := NewRegistry()
	sessions := make([]*core.ClientSession, 5)
	for i := range sessions {
		sessions[i] = core.NewClientSession(core.SessionID(fmt.Sprintf("client-%d", i)))
		r.Add(sessions[i])
	}

	r.CloseAll()

	if r.Len() != 0 {
		t.Fatalf("registry must be empty after CloseAll, holds %d", r.Len())
	}
	for _, sess := range sessions {
		if sess.State() != core.StateClosed {
			t.Fatalf("session %s not closed", sess.ID())
		}
	}
}

func TestRegistry_ConcurrentChurn(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess := core.NewClientSession(core.SessionID(fmt.Sprintf("client-%d", i)))
			r.Add(sess)
			r.Get(sess.ID())
			r.Remove(sess.ID())
		}(i)
	}
	wg.Wait()

	if r.Len() != 0 {
		t.Fatalf("registry must be empty after churn, holds %d", r.Len())
	}
}
