package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

func TestManagerLoginRestoreLogout(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store)

	if m.IsAuthenticated() {
		t.Fatalf("expected logged out manager")
	}
	if err := m.Login(ctx, Session{}); err == nil {
		t.Fatalf("expected error for empty token")
	}
	if err := m.Login(ctx, Session{User: User{Email: "a@b.c"}, Token: "tok"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if m.Token() != "tok" {
		t.Fatalf("unexpected token %q", m.Token())
	}

	restored := NewManager(store)
	ok, err := restored.Restore(ctx)
	if err != nil || !ok {
		t.Fatalf("expected restore, got %v %v", ok, err)
	}
	if s, _ := restored.Current(); s.User.Email != "a@b.c" {
		t.Fatalf("unexpected restored session %+v", s)
	}

	if err := m.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if m.IsAuthenticated() {
		t.Fatalf("expected logged out")
	}
	if _, ok, _ := store.Load(ctx); ok {
		t.Fatalf("expected store cleared")
	}
}

func TestManagerExpireNotifiesOnce(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil)
	_ = m.Login(ctx, Session{Token: "tok"})

	var calls int32
	var got Session
	unsubscribe := m.OnExpired(func(ctx context.Context, expired Session) {
		atomic.AddInt32(&calls, 1)
		got = expired
	})
	defer unsubscribe()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Expire(ctx)
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected one expiry notification, got %d", n)
	}
	if got.Token != "tok" {
		t.Fatalf("expected observer to receive the expired session")
	}
	if m.IsAuthenticated() {
		t.Fatalf("expected session cleared")
	}

	_ = m.Login(ctx, Session{Token: "tok-2"})
	if !m.Expire(ctx) {
		t.Fatalf("expected expiry to re-arm after login")
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected second notification, got %d", n)
	}
}

func TestExpireTokenIgnoresStaleToken(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil)
	_ = m.Login(ctx, Session{Token: "old"})
	_ = m.Login(ctx, Session{Token: "new"})

	if m.ExpireToken(ctx, "old") {
		t.Fatalf("expected stale token to leave the session alone")
	}
	if m.ExpireToken(ctx, "") {
		t.Fatalf("expected empty token to be ignored")
	}
	if m.Token() != "new" {
		t.Fatalf("expected new session kept, got %q", m.Token())
	}
	if !m.ExpireToken(ctx, "new") || m.IsAuthenticated() {
		t.Fatalf("expected current token to expire the session")
	}
}

func TestOnExpiredUnsubscribe(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil)
	_ = m.Login(ctx, Session{Token: "tok"})

	called := false
	unsubscribe := m.OnExpired(func(context.Context, Session) { called = true })
	unsubscribe()
	m.Expire(ctx)
	if called {
		t.Fatalf("expected unsubscribed observer to be skipped")
	}
}
