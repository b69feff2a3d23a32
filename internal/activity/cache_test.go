package activity_test

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Ethan041028/audacieuses-content/internal/activity"
	"github.com/Ethan041028/audacieuses-content/internal/platform/cache"
)

func TestNopContentCache(t *testing.T) {
	var c activity.NopContentCache
	ctx := t.Context()

	if err := c.Set(ctx, activity.Activity{ID: "a1"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, ok, err := c.Get(ctx, "a1"); ok || err != nil {
		t.Errorf("Get() = ok %v, err %v; want a miss", ok, err)
	}
	if err := c.Delete(ctx, "a1"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}

func TestService_UnreachableCacheFallsBackToStore(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:59999",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	contentCache := activity.NewRedisContentCache(&cache.Cache{Client: client}, time.Minute)
	svc := activity.NewService(activity.NewMemoryStore(), activity.WithCache(contentCache))
	ctx := t.Context()

	a, err := svc.Create(ctx, activity.CreateInput{ModuleID: "m", Title: "T", Content: "Bonjour"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	got, err := svc.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get() error = %v, cache failures must not fail reads", err)
	}
	if got.Content != a.Content {
		t.Errorf("Get() content = %s, want %s", got.Content, a.Content)
	}
	if _, err := svc.Update(ctx, activity.UpdateInput{ID: a.ID, Content: "Salut"}); err != nil {
		t.Errorf("Update() error = %v, cache failures must not fail writes", err)
	}
}
