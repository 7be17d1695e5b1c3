package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return fmt.Sprintf("sess:%s", accessID)
}

func newTestManager() (*Manager, *mockStore) {
	store := newMockStore()
	return &Manager{store: store, keyer: store, ttl: time.Hour}, store
}

func TestManagerGenerateAndRotate(t *testing.T) {
	manager, store := newTestManager()
	ctx := context.Background()
	userID := uuid.New()

	sess, err := manager.Generate(ctx, userID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if sess.AccessID == "" || sess.RefreshToken == "" {
		t.Fatalf("expected populated session, got %+v", sess)
	}

	if _, err := manager.Rotate(ctx, sess.AccessID, "wrong"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token error, got %v", err)
	}

	next, err := manager.Rotate(ctx, sess.AccessID, sess.RefreshToken)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if next.UserID != userID {
		t.Fatalf("expected rotated session to keep user %s, got %s", userID, next.UserID)
	}
	if _, exists := store.data[store.AccessSessionKey(sess.AccessID)]; exists {
		t.Fatalf("old access key left behind")
	}
	ok, err := manager.HasSession(ctx, next.AccessID)
	if err != nil || !ok {
		t.Fatalf("expected new session present, ok=%v err=%v", ok, err)
	}

	if _, err := manager.Rotate(ctx, sess.AccessID, sess.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("reusing a rotated token should fail, got %v", err)
	}
}

func TestManagerRevoke(t *testing.T) {
	manager, _ := newTestManager()
	ctx := context.Background()

	sess, err := manager.Generate(ctx, uuid.New())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := manager.Revoke(ctx, sess.AccessID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, err := manager.HasSession(ctx, sess.AccessID)
	if err != nil {
		t.Fatalf("has session: %v", err)
	}
	if ok {
		t.Fatal("expected session to be gone after revoke")
	}
	if err := manager.Revoke(ctx, " "); err == nil {
		t.Fatal("expected error for blank access id")
	}
}

func TestManagerGenerateRequiresUser(t *testing.T) {
	manager, _ := newTestManager()
	if _, err := manager.Generate(context.Background(), uuid.Nil); err == nil {
		t.Fatal("expected error for nil user id")
	}
}
