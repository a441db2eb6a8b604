package cache

import (
	"context"
	"testing"
	"time"

	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
)

func newTestCache(t *testing.T) *Store {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return NewStore(db, nil)
}

func samplePlaylists() []models.Playlist {
	return []models.Playlist{
		{ID: "pl-1", Name: "Morning Mix", Owner: "user-1", TrackCount: 12},
		{ID: "pl-2", Name: "Focus", Owner: "user-1", TrackCount: 40, Public: true},
	}
}

func TestCacheStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Miss On Empty Cache", func(t *testing.T) {
		store := newTestCache(t)

		playlists, hit, err := store.Get(ctx, Featured, "", DefaultMaxAge)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if hit {
			t.Error("expected a miss on an empty cache")
		}
		if playlists != nil {
			t.Errorf("expected nil playlists on miss, got %v", playlists)
		}
	})

	t.Run("Put Then Get", func(t *testing.T) {
		store := newTestCache(t)

		if err := store.Put(ctx, User, "user-1", samplePlaylists()); err != nil {
			t.Fatalf("put failed: %v", err)
		}

		playlists, hit, err := store.Get(ctx, User, "user-1", DefaultMaxAge)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if !hit {
			t.Fatal("expected a hit after put")
		}
		if len(playlists) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(playlists))
		}
		if playlists[0].ID != "pl-1" || playlists[1].Name != "Focus" {
			t.Errorf("unexpected playlists: %+v", playlists)
		}
	})

	t.Run("Keys Are Independent", func(t *testing.T) {
		store := newTestCache(t)

		if err := store.Put(ctx, User, "user-1", samplePlaylists()); err != nil {
			t.Fatalf("put failed: %v", err)
		}

		if _, hit, _ := store.Get(ctx, User, "user-2", DefaultMaxAge); hit {
			t.Error("different owner should not hit")
		}
		if _, hit, _ := store.Get(ctx, Owned, "user-1", DefaultMaxAge); hit {
			t.Error("different entity type should not hit")
		}
	})

	t.Run("Put Replaces Prior Entry", func(t *testing.T) {
		store := newTestCache(t)

		if err := store.Put(ctx, User, "user-1", samplePlaylists()); err != nil {
			t.Fatalf("put failed: %v", err)
		}
		if err := store.Put(ctx, User, "user-1", []models.Playlist{{ID: "pl-9", Name: "Replaced"}}); err != nil {
			t.Fatalf("second put failed: %v", err)
		}

		playlists, hit, err := store.Get(ctx, User, "user-1", DefaultMaxAge)
		if err != nil || !hit {
			t.Fatalf("expected a hit, got hit=%v err=%v", hit, err)
		}
		if len(playlists) != 1 || playlists[0].ID != "pl-9" {
			t.Errorf("expected replaced entry, got %+v", playlists)
		}
	})

	t.Run("Empty Set Is A Valid Entry", func(t *testing.T) {
		store := newTestCache(t)

		if err := store.Put(ctx, Featured, "", nil); err != nil {
			t.Fatalf("put failed: %v", err)
		}

		playlists, hit, err := store.Get(ctx, Featured, "", DefaultMaxAge)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if !hit {
			t.Fatal("expected a hit for a cached empty set")
		}
		if len(playlists) != 0 {
			t.Errorf("expected empty set, got %+v", playlists)
		}
	})

	t.Run("Freshness Window Is Per Read", func(t *testing.T) {
		store := newTestCache(t)

		base := time.Now().UTC()
		store.now = func() time.Time { return base }

		if err := store.Put(ctx, User, "user-1", samplePlaylists()); err != nil {
			t.Fatalf("put failed: %v", err)
		}

		store.now = func() time.Time { return base.Add(2 * time.Hour) }

		if _, hit, err := store.Get(ctx, User, "user-1", time.Hour); err != nil || hit {
			t.Errorf("expected a miss past a 1h window, got hit=%v err=%v", hit, err)
		}
		if _, hit, err := store.Get(ctx, User, "user-1", 3*time.Hour); err != nil || !hit {
			t.Errorf("expected a hit within a 3h window, got hit=%v err=%v", hit, err)
		}
	})

	t.Run("Invalidate", func(t *testing.T) {
		store := newTestCache(t)

		if err := store.Put(ctx, User, "user-1", samplePlaylists()); err != nil {
			t.Fatalf("put failed: %v", err)
		}
		if err := store.Invalidate(ctx, User, "user-1"); err != nil {
			t.Fatalf("invalidate failed: %v", err)
		}

		if _, hit, _ := store.Get(ctx, User, "user-1", DefaultMaxAge); hit {
			t.Error("expected a miss after invalidation")
		}

		if err := store.Invalidate(ctx, User, "user-1"); err != nil {
			t.Errorf("invalidating an absent entry should not error: %v", err)
		}
	})

	t.Run("Sweep Removes Entries Past Ceiling", func(t *testing.T) {
		store := newTestCache(t)

		base := time.Now().UTC()
		store.now = func() time.Time { return base.Add(-48 * time.Hour) }
		if err := store.Put(ctx, User, "old-user", samplePlaylists()); err != nil {
			t.Fatalf("put failed: %v", err)
		}

		store.now = func() time.Time { return base }
		if err := store.Put(ctx, User, "new-user", samplePlaylists()); err != nil {
			t.Fatalf("put failed: %v", err)
		}

		removed, err := store.Sweep(ctx, 24*time.Hour)
		if err != nil {
			t.Fatalf("sweep failed: %v", err)
		}
		if removed != 1 {
			t.Errorf("expected 1 swept entry, got %d", removed)
		}

		if _, hit, _ := store.Get(ctx, User, "old-user", 72*time.Hour); hit {
			t.Error("swept entry should be gone")
		}
		if _, hit, _ := store.Get(ctx, User, "new-user", DefaultMaxAge); !hit {
			t.Error("fresh entry should survive the sweep")
		}
	})
}
