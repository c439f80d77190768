package channel

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	logx "pushpipe/pkg/logx"
)

func openTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := OpenRegistry(RegistryConfig{
		Path:    filepath.Join(t.TempDir(), "channels.db"),
		Package: "com.example",
	}, logx.Nop())
	if err != nil {
		t.Fatalf("OpenRegistry error: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRegistryCreateAndGet(t *testing.T) {
	t.Parallel()
	r := openTestRegistry(t)
	ctx := context.Background()

	created, err := r.CreateOrGet(ctx, Spec{
		ID:               "news",
		Description:      "News updates",
		Importance:       intp(ImportanceHigh),
		Sound:            strp("chime"),
		VibrationPattern: []int64{0, 100, 50, 100},
	})
	if err != nil {
		t.Fatalf("CreateOrGet error: %v", err)
	}

	got, err := r.Get(ctx, "news")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Importance != ImportanceHigh {
		t.Fatalf("Importance = %d", got.Importance)
	}
	if got.SoundKind != SoundResource || got.SoundURI != created.SoundURI {
		t.Fatalf("sound = %q %q", got.SoundKind, got.SoundURI)
	}
	if len(got.VibrationPattern) != 4 || got.VibrationPattern[1] != 100 {
		t.Fatalf("pattern = %v", got.VibrationPattern)
	}
}

func TestRegistryUpsertUpdates(t *testing.T) {
	t.Parallel()
	r := openTestRegistry(t)
	ctx := context.Background()

	if _, err := r.CreateOrGet(ctx, Spec{ID: "x", Description: "first"}); err != nil {
		t.Fatalf("CreateOrGet error: %v", err)
	}
	if _, err := r.CreateOrGet(ctx, Spec{ID: "x", Description: "second"}); err != nil {
		t.Fatalf("CreateOrGet error: %v", err)
	}

	got, err := r.Get(ctx, "x")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Description != "second" {
		t.Fatalf("Description = %q", got.Description)
	}
	if n, _ := r.Count(ctx); n != 1 {
		t.Fatalf("Count = %d", n)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	t.Parallel()
	r := openTestRegistry(t)
	if _, err := r.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRegistryDelete(t *testing.T) {
	t.Parallel()
	r := openTestRegistry(t)
	ctx := context.Background()

	if _, err := r.CreateOrGet(ctx, Spec{ID: "gone"}); err != nil {
		t.Fatalf("CreateOrGet error: %v", err)
	}
	if err := r.Delete(ctx, "gone"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := r.Get(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	// Deleting an unknown id is fine.
	if err := r.Delete(ctx, "never-existed"); err != nil {
		t.Fatalf("Delete unknown id: %v", err)
	}
}

func TestRegistryListAndOnly(t *testing.T) {
	t.Parallel()
	r := openTestRegistry(t)
	ctx := context.Background()

	if _, ok, err := r.Only(ctx); err != nil || ok {
		t.Fatalf("Only on empty registry = %v, %v", ok, err)
	}

	if _, err := r.CreateOrGet(ctx, Spec{ID: "solo"}); err != nil {
		t.Fatalf("CreateOrGet error: %v", err)
	}
	id, ok, err := r.Only(ctx)
	if err != nil || !ok || id != "solo" {
		t.Fatalf("Only = %q, %v, %v", id, ok, err)
	}

	if _, err := r.CreateOrGet(ctx, Spec{ID: "more"}); err != nil {
		t.Fatalf("CreateOrGet error: %v", err)
	}
	if _, ok, _ := r.Only(ctx); ok {
		t.Fatal("Only should fail with two channels")
	}

	sums, err := r.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(sums) != 2 || sums[0].ID != "more" || sums[1].ID != "solo" {
		t.Fatalf("List = %+v", sums)
	}
}

func TestRegistryEnsureDefault(t *testing.T) {
	t.Parallel()
	r := openTestRegistry(t)
	ctx := context.Background()

	if err := r.EnsureDefault(ctx, "Default"); err != nil {
		t.Fatalf("EnsureDefault error: %v", err)
	}
	ch, err := r.Get(ctx, DefaultChannelID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if ch.Description != "Default" {
		t.Fatalf("Description = %q", ch.Description)
	}

	// Second call leaves the existing channel alone.
	if err := r.EnsureDefault(ctx, "Other"); err != nil {
		t.Fatalf("EnsureDefault error: %v", err)
	}
	ch, _ = r.Get(ctx, DefaultChannelID)
	if ch.Description != "Default" {
		t.Fatalf("Description overwritten: %q", ch.Description)
	}
}
