package chat

import (
	"context"
	"testing"

	"github.com/talent-catalog/chat-client/internal/auth"
)

func TestBinderTearsDownOnLogout(t *testing.T) {
	svc, b := newTestService()
	authn := auth.NewAuthenticator()
	authn.Login("tok-1")

	binder := NewBinder(svc, b, authn)
	defer binder.Close()

	obs, err := svc.Watch(context.Background(), ChatRoom{ID: 1})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	authn.Logout()

	expectClosed(t, obs)
	waitFor(t, func() bool { return b.deactivateCount() == 1 },
		"timed out waiting for Deactivate")

	// A second unrelated transition must not deactivate again.
	authn.Login("tok-2")
	if n := b.deactivateCount(); n != 1 {
		t.Fatalf("expected Deactivate exactly once, got %d", n)
	}
}

func TestBinderRearmsSessionOnLogin(t *testing.T) {
	svc, b := newTestService()
	authn := auth.NewAuthenticator()
	authn.Login("tok-1")

	binder := NewBinder(svc, b, authn)
	defer binder.Close()

	room := ChatRoom{ID: 5}
	if _, err := svc.Watch(context.Background(), room); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	authn.Logout()
	waitFor(t, func() bool { return b.deactivateCount() == 1 },
		"timed out waiting for teardown")

	authn.Login("tok-2")
	// Wait for the binder to arm the fresh cancellation scope, then watch
	// again: a new subscription must be created and deliver normally.
	waitFor(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return svc.session.ctx.Err() == nil
	}, "timed out waiting for the binder to arm a new session")

	fresh, err := svc.Watch(context.Background(), room)
	if err != nil {
		t.Fatalf("Watch after re-login: %v", err)
	}
	if n := b.subscribeCount(Topic(room.ID)); n != 2 {
		t.Fatalf("expected a second subscription after re-login, got %d", n)
	}

	b.Publish(Topic(room.ID), []byte("after re-login"))
	msg := recvMsg(t, fresh)
	if string(msg.Data) != "after re-login" {
		t.Fatalf("unexpected payload %q", msg.Data)
	}
}

// TestRoom42Scenario runs the end-to-end script: two watchers share one
// subscription, a message arrives and flips the room unread, the user marks
// it read, then logout silences everything.
func TestRoom42Scenario(t *testing.T) {
	svc, b := newTestService()
	authn := auth.NewAuthenticator()
	authn.Login("tok")

	binder := NewBinder(svc, b, authn)
	defer binder.Close()

	room := ChatRoom{ID: 42, Type: RoomTypeAllJobCandidates}

	first, err := svc.Watch(context.Background(), room)
	if err != nil {
		t.Fatalf("first Watch: %v", err)
	}
	second, err := svc.Watch(context.Background(), room)
	if err != nil {
		t.Fatalf("second Watch: %v", err)
	}

	if n := b.subscribeCount(Topic(42)); n != 1 {
		t.Fatalf("expected one subscription for room 42, got %d", n)
	}

	b.Publish(Topic(42), []byte("M1"))
	if msg := recvMsg(t, first); string(msg.Data) != "M1" {
		t.Fatalf("first observer got %q", msg.Data)
	}
	if msg := recvMsg(t, second); string(msg.Data) != "M1" {
		t.Fatalf("second observer got %q", msg.Data)
	}

	waitFor(t, func() bool { return !svc.IsRead(room) },
		"timed out waiting for room 42 to turn unread")

	svc.MarkAsRead(room)
	if !svc.IsRead(room) {
		t.Fatal("expected room 42 read after MarkAsRead")
	}

	authn.Logout()
	expectClosed(t, first)
	expectClosed(t, second)

	b.Publish(Topic(42), []byte("M2"))

	b.mu.Lock()
	subs := b.subs[Topic(42)]
	b.mu.Unlock()
	for _, sub := range subs {
		if !sub.unsubscribed {
			t.Fatal("expected room 42 subscription terminated after logout")
		}
	}
	if n := b.deactivateCount(); n != 1 {
		t.Fatalf("expected exactly one Deactivate, got %d", n)
	}
}
