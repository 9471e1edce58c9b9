package notebook

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCreateNote(t *testing.T) {
	notebook := newTestNotebook(t)
	ctx := context.Background()
	java := notebook.mustCreateFolder(t, notebook.root.ID, "Java")

	jdbc := notebook.mustCreateNote(t, java.ID, "JDBC", "")
	if jdbc.FolderID != java.ID {
		t.Fatalf("expected folder %s, got %s", java.ID, jdbc.FolderID)
	}
	if len(jdbc.TagIDs) != 0 {
		t.Fatalf("expected new note to be untagged, got %v", jdbc.TagIDs)
	}

	refreshed := notebook.mustFolder(t, java.ID)
	if !containsID(refreshed.NoteIDs, jdbc.ID) {
		t.Fatalf("expected folder to list note %s", jdbc.ID)
	}
	if !refreshed.UpdatedAt.After(java.UpdatedAt) {
		t.Fatalf("expected folder updatedAt to advance")
	}

	_, err := notebook.notes.Create(ctx, java.ID, "JDBC", "again")
	expectKind(t, err, ErrNameConflict)

	_, err = notebook.notes.Create(ctx, java.ID, " ", "blank")
	expectKind(t, err, ErrBlankName)

	_, err = notebook.notes.Create(ctx, "missing", "Orphan", "")
	expectKind(t, err, ErrNotFound)

	if _, err := notebook.notes.Create(ctx, notebook.root.ID, "JDBC", "other folder"); err != nil {
		t.Fatalf("expected same note name in another folder to succeed: %v", err)
	}
}

func TestNoteQueries(t *testing.T) {
	notebook := newTestNotebook(t)
	ctx := context.Background()
	java := notebook.mustCreateFolder(t, notebook.root.ID, "Java")
	jdbc := notebook.mustCreateNote(t, java.ID, "JDBC", "")
	notebook.mustCreateNote(t, notebook.root.ID, "Summary", "")

	all, err := notebook.notes.GetAll(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(all))
	}

	inJava, err := notebook.notes.GetByFolder(ctx, java.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inJava) != 1 || inJava[0].ID != jdbc.ID {
		t.Fatalf("expected only JDBC in Java, got %+v", inJava)
	}

	_, err = notebook.notes.GetByFolder(ctx, "missing")
	expectKind(t, err, ErrNotFound)

	_, err = notebook.notes.GetByTag(ctx, "missing")
	expectKind(t, err, ErrNotFound)

	_, err = notebook.notes.GetByID(ctx, "missing")
	expectKind(t, err, ErrNotFound)
}

func TestTagLifecycleThroughNote(t *testing.T) {
	notebook := newTestNotebook(t)
	ctx := context.Background()
	java := notebook.mustCreateFolder(t, notebook.root.ID, "Java")
	jdbc := notebook.mustCreateNote(t, java.ID, "JDBC", "")

	tagged := notebook.mustAddTag(t, jdbc.ID, "Programming Language")
	tag := notebook.mustFindTagByName(t, "Programming Language")
	if !tagged.HasTag(tag.ID) {
		t.Fatalf("expected note to carry new tag")
	}
	if !containsID(tag.NoteIDs, jdbc.ID) {
		t.Fatalf("expected tag to reference note")
	}

	byTag, err := notebook.notes.GetByTag(ctx, tag.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byTag) != 1 || byTag[0].Name != "JDBC" {
		t.Fatalf("expected [JDBC], got %+v", byTag)
	}

	untagged, err := notebook.notes.RemoveTag(ctx, jdbc.ID, "Programming Language")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if untagged.HasTag(tag.ID) {
		t.Fatalf("expected note to drop tag")
	}

	byTag, err = notebook.notes.GetByTag(ctx, tag.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byTag) != 0 {
		t.Fatalf("expected no notes for tag, got %+v", byTag)
	}
	if remaining := notebook.mustTag(t, tag.ID); len(remaining.NoteIDs) != 0 {
		t.Fatalf("expected tag to survive with no notes, got %v", remaining.NoteIDs)
	}
	notebook.assertSymmetricMembership(t)
}

func TestAddTagReusesExistingTag(t *testing.T) {
	notebook := newTestNotebook(t)
	ctx := context.Background()
	first := notebook.mustCreateNote(t, notebook.root.ID, "First", "")
	second := notebook.mustCreateNote(t, notebook.root.ID, "Second", "")
	existing, err := notebook.tags.Create(ctx, "Go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	notebook.mustAddTag(t, first.ID, "Go")
	notebook.mustAddTag(t, second.ID, " Go ")

	tags, err := notebook.tags.GetAll(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tags) != 1 {
		t.Fatalf("expected a single tag, got %d", len(tags))
	}
	refreshed := notebook.mustTag(t, existing.ID)
	if len(refreshed.NoteIDs) != 2 {
		t.Fatalf("expected tag to reference both notes, got %v", refreshed.NoteIDs)
	}
	notebook.assertSymmetricMembership(t)
}

func TestAddTagTwiceIsNoOp(t *testing.T) {
	observedCore, recorded := observer.New(zapcore.InfoLevel)
	notebook := newTestNotebookWithLogger(t, zap.New(observedCore))
	note := notebook.mustCreateNote(t, notebook.root.ID, "Summary", "")

	first := notebook.mustAddTag(t, note.ID, "Go")
	second := notebook.mustAddTag(t, note.ID, "Go")

	if len(second.TagIDs) != 1 {
		t.Fatalf("expected one tag, got %v", second.TagIDs)
	}
	if !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Fatalf("expected redundant add to leave updatedAt unchanged")
	}
	if recorded.FilterMessage("operation skipped").Len() != 1 {
		t.Fatalf("expected a logged no-op")
	}
}

func TestRemoveTagErrors(t *testing.T) {
	notebook := newTestNotebook(t)
	ctx := context.Background()
	note := notebook.mustCreateNote(t, notebook.root.ID, "Summary", "")
	if _, err := notebook.tags.Create(ctx, "Unused"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := notebook.notes.RemoveTag(ctx, note.ID, "Nonexistent")
	expectKind(t, err, ErrTagNotFound)

	_, err = notebook.notes.RemoveTag(ctx, note.ID, "Unused")
	expectKind(t, err, ErrBadRequest)

	_, err = notebook.notes.RemoveTag(ctx, "missing", "Unused")
	expectKind(t, err, ErrNotFound)

	_, err = notebook.notes.AddTag(ctx, note.ID, "  ")
	expectKind(t, err, ErrBlankName)
}

func TestModifyContent(t *testing.T) {
	notebook := newTestNotebook(t)
	ctx := context.Background()
	note := notebook.mustCreateNote(t, notebook.root.ID, "Summary", "draft")

	unchanged, err := notebook.notes.ModifyContent(ctx, note.ID, "draft")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !unchanged.UpdatedAt.Equal(note.UpdatedAt) {
		t.Fatalf("expected identical content to leave updatedAt unchanged")
	}

	edited, err := notebook.notes.ModifyContent(ctx, note.ID, "final")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if edited.Content != "final" {
		t.Fatalf("expected content final, got %q", edited.Content)
	}
	if !edited.UpdatedAt.After(note.UpdatedAt) {
		t.Fatalf("expected updatedAt to advance")
	}

	emptied, err := notebook.notes.ModifyContent(ctx, note.ID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emptied.Content != "" {
		t.Fatalf("expected empty content to be accepted")
	}
}

func TestRenameNote(t *testing.T) {
	notebook := newTestNotebook(t)
	ctx := context.Background()
	note := notebook.mustCreateNote(t, notebook.root.ID, "Summary", "")
	notebook.mustCreateNote(t, notebook.root.ID, "Other", "")

	renamed, err := notebook.notes.Rename(ctx, note.ID, "Overview")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if renamed.Name != "Overview" {
		t.Fatalf("expected Overview, got %q", renamed.Name)
	}

	_, err = notebook.notes.Rename(ctx, note.ID, "Other")
	expectKind(t, err, ErrNameConflict)

	_, err = notebook.notes.Rename(ctx, note.ID, "")
	expectKind(t, err, ErrBlankName)

	same, err := notebook.notes.Rename(ctx, note.ID, "Overview")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !same.UpdatedAt.Equal(renamed.UpdatedAt) {
		t.Fatalf("expected same-name rename to be a no-op")
	}
}

func TestMoveNote(t *testing.T) {
	notebook := newTestNotebook(t)
	ctx := context.Background()
	java := notebook.mustCreateFolder(t, notebook.root.ID, "Java")
	ios := notebook.mustCreateFolder(t, notebook.root.ID, "iOS")
	note := notebook.mustCreateNote(t, java.ID, "Basics", "")
	notebook.mustCreateNote(t, notebook.root.ID, "Basics", "")

	moved, err := notebook.notes.Move(ctx, note.ID, ios.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if moved.FolderID != ios.ID {
		t.Fatalf("expected folder %s, got %s", ios.ID, moved.FolderID)
	}
	if containsID(notebook.mustFolder(t, java.ID).NoteIDs, note.ID) {
		t.Fatalf("expected source folder to drop note")
	}
	if !containsID(notebook.mustFolder(t, ios.ID).NoteIDs, note.ID) {
		t.Fatalf("expected destination folder to list note")
	}

	same, err := notebook.notes.Move(ctx, note.ID, ios.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !same.UpdatedAt.Equal(moved.UpdatedAt) {
		t.Fatalf("expected same-folder move to be a no-op")
	}

	_, err = notebook.notes.Move(ctx, note.ID, notebook.root.ID)
	expectKind(t, err, ErrNameConflict)

	_, err = notebook.notes.Move(ctx, note.ID, "missing")
	expectKind(t, err, ErrNotFound)
}

func TestDeleteNoteDetachesTags(t *testing.T) {
	notebook := newTestNotebook(t)
	ctx := context.Background()
	note := notebook.mustCreateNote(t, notebook.root.ID, "Summary", "")
	notebook.mustAddTag(t, note.ID, "Go")
	notebook.mustAddTag(t, note.ID, "Databases")

	if err := notebook.notes.Delete(ctx, note.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{"Go", "Databases"} {
		tag := notebook.mustFindTagByName(t, name)
		if containsID(tag.NoteIDs, note.ID) {
			t.Fatalf("expected tag %s to drop deleted note", name)
		}
	}
	if containsID(notebook.mustFolder(t, notebook.root.ID).NoteIDs, note.ID) {
		t.Fatalf("expected folder to drop deleted note")
	}

	err := notebook.notes.Delete(ctx, note.ID)
	expectKind(t, err, ErrNotFound)
}

func TestNoteUpdateDispatch(t *testing.T) {
	notebook := newTestNotebook(t)
	ctx := context.Background()
	java := notebook.mustCreateFolder(t, notebook.root.ID, "Java")
	note := notebook.mustCreateNote(t, notebook.root.ID, "Summary", "")

	steps := []NoteUpdate{
		{Type: NoteUpdateRename, NewName: "Overview"},
		{Type: NoteUpdateModifyContent, NewContent: "text"},
		{Type: NoteUpdateMove, ToFolderID: java.ID},
		{Type: NoteUpdateAddTag, TagName: "Go"},
	}
	for _, step := range steps {
		if _, err := notebook.notes.Update(ctx, note.ID, step); err != nil {
			t.Fatalf("unexpected error for %s: %v", step.Type, err)
		}
	}

	result := notebook.mustNote(t, note.ID)
	if result.Name != "Overview" || result.Content != "text" || result.FolderID != java.ID || len(result.TagIDs) != 1 {
		t.Fatalf("unexpected note after updates: %+v", result)
	}

	if _, err := notebook.notes.Update(ctx, note.ID, NoteUpdate{Type: NoteUpdateRemoveTag, TagName: "Go"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := notebook.notes.Update(ctx, note.ID, NoteUpdate{Type: "MOVE_FOLDER"})
	expectKind(t, err, ErrUnsupportedOperation)
}
