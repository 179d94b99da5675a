package storage

import (
	"context"
	"errors"
	"testing"
)

func TestCollectionRepo_GetOrCreate(t *testing.T) {
	db := newTestDB(t)
	repo := NewCollectionRepo(db)
	ctx := context.Background()

	created, err := repo.GetOrCreate(ctx, "docs", 8)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if created.Name != "docs" || created.VectorSize != 8 {
		t.Errorf("GetOrCreate() = %+v, want docs/8", created)
	}

	again, err := repo.GetOrCreate(ctx, "docs", 16)
	if err != nil {
		t.Fatalf("GetOrCreate() second call error = %v", err)
	}
	if again.VectorSize != 8 {
		t.Errorf("existing collection VectorSize = %d, want 8", again.VectorSize)
	}
}

func TestCollectionRepo_Get_NotFound(t *testing.T) {
	repo := NewCollectionRepo(newTestDB(t))

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestCollectionRepo_ListAndDelete(t *testing.T) {
	db := newTestDB(t)
	collections := NewCollectionRepo(db)
	chunks := NewChunkRepo(db)
	ctx := context.Background()

	for _, name := range []string{"b", "a"} {
		if _, err := collections.GetOrCreate(ctx, name, 2); err != nil {
			t.Fatalf("GetOrCreate(%s) error = %v", name, err)
		}
	}
	err := chunks.UpsertBatch(ctx, []*ChunkRecord{
		{Collection: "a", ID: "1", SourcePath: "x.md", Text: "x", Vector: []byte{0, 0, 0, 0, 0, 0, 0, 0}},
	})
	if err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	list, err := collections.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].Name != "a" || list[0].ChunkCount != 1 || list[1].ChunkCount != 0 {
		t.Errorf("List() = %+v, want [a(1) b(0)]", list)
	}

	if err := collections.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	var remaining int
	if err := db.QueryRow("SELECT COUNT(*) FROM chunks WHERE collection = 'a'").Scan(&remaining); err != nil {
		t.Fatalf("count chunks: %v", err)
	}
	if remaining != 0 {
		t.Errorf("chunks after collection delete = %d, want 0 (cascade)", remaining)
	}
}
