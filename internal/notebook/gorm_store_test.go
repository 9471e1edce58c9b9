package notebook

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGormStoreTranslatesUniqueViolations(t *testing.T) {
	db := openTestDatabase(t)
	store, err := NewGormStore(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()

	first := Tag{ID: "tag-1", Name: "Go", CreatedAt: now, UpdatedAt: now}
	if err := store.Tags().Save(ctx, &first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	duplicate := Tag{ID: "tag-2", Name: "Go", CreatedAt: now, UpdatedAt: now}
	err = store.Tags().Save(ctx, &duplicate)
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestGormStoreHydratesMembership(t *testing.T) {
	db := openTestDatabase(t)
	store, err := NewGormStore(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()

	rootID := "folder-root"
	folders := []Folder{
		{ID: rootID, Name: RootFolderName, CreatedAt: now, UpdatedAt: now},
		{ID: "folder-java", Name: "Java", ParentID: &rootID, CreatedAt: now, UpdatedAt: now},
	}
	for index := range folders {
		if err := store.Folders().Save(ctx, &folders[index]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	note := Note{ID: "note-1", FolderID: rootID, Name: "Summary", CreatedAt: now, UpdatedAt: now}
	if err := store.Notes().Save(ctx, &note); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tag := Tag{ID: "tag-1", Name: "Go", CreatedAt: now, UpdatedAt: now}
	if err := store.Tags().Save(ctx, &tag); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Notes().AttachTag(ctx, note.ID, tag.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	root, found, err := store.Folders().FindRoot(ctx)
	if err != nil || !found {
		t.Fatalf("expected root, found=%v err=%v", found, err)
	}
	if len(root.ChildIDs) != 1 || root.ChildIDs[0] != "folder-java" {
		t.Fatalf("unexpected children %v", root.ChildIDs)
	}
	if len(root.NoteIDs) != 1 || root.NoteIDs[0] != note.ID {
		t.Fatalf("unexpected notes %v", root.NoteIDs)
	}

	loadedTag, found, err := store.Tags().FindByName(ctx, "Go")
	if err != nil || !found {
		t.Fatalf("expected tag, found=%v err=%v", found, err)
	}
	if len(loadedTag.NoteIDs) != 1 || loadedTag.NoteIDs[0] != note.ID {
		t.Fatalf("unexpected tag notes %v", loadedTag.NoteIDs)
	}

	if err := store.Notes().DetachTag(ctx, note.ID, tag.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loadedNote, _, err := store.Notes().FindByID(ctx, note.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(loadedNote.TagIDs) != 0 {
		t.Fatalf("expected no tags after detach, got %v", loadedNote.TagIDs)
	}
}

func TestWithinTransactionRollsBack(t *testing.T) {
	db := openTestDatabase(t)
	store, err := NewGormStore(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	sentinel := errors.New("abort")

	err = store.WithinTransaction(ctx, func(tx Store) error {
		tag := Tag{ID: "tag-1", Name: "Go", CreatedAt: now, UpdatedAt: now}
		if err := tx.Tags().Save(ctx, &tag); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	exists, err := store.Tags().ExistsByID(ctx, "tag-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Fatalf("expected rolled back tag to be absent")
	}
}
