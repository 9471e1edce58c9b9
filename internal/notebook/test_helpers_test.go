package notebook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type sequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int
}

func (g *sequentialIDGenerator) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s-%03d", g.prefix, g.next), nil
}

type failingIDGenerator struct{}

func (failingIDGenerator) NewID() (string, error) {
	return "", errors.New("exhausted ids")
}

// stepClock advances by one second on every reading.
type stepClock struct {
	mu      sync.Mutex
	current time.Time
}

func newStepClock() *stepClock {
	return &stepClock{current: time.Unix(1700000000, 0).UTC()}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(time.Second)
	return c.current
}

type testNotebook struct {
	db      *gorm.DB
	store   *GormStore
	clock   *stepClock
	root    Folder
	folders *FolderManager
	notes   *NoteManager
	tags    *TagManager
}

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:notebook_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestNotebook(t *testing.T) *testNotebook {
	t.Helper()
	return newTestNotebookWithLogger(t, zap.NewNop())
}

func newTestNotebookWithLogger(t *testing.T, logger *zap.Logger) *testNotebook {
	t.Helper()

	db := openTestDatabase(t)
	store, err := NewGormStore(db)
	if err != nil {
		t.Fatalf("failed to construct store: %v", err)
	}
	clock := newStepClock()
	cfg := ServiceConfig{
		Store:      store,
		Clock:      clock.Now,
		IDProvider: &sequentialIDGenerator{prefix: "id"},
		Logger:     logger,
	}

	root, err := EnsureRoot(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to ensure root: %v", err)
	}
	cfg.RootID = root.ID

	folders, err := NewFolderManager(cfg)
	if err != nil {
		t.Fatalf("failed to construct folder manager: %v", err)
	}
	notes, err := NewNoteManager(cfg)
	if err != nil {
		t.Fatalf("failed to construct note manager: %v", err)
	}
	tags, err := NewTagManager(cfg)
	if err != nil {
		t.Fatalf("failed to construct tag manager: %v", err)
	}

	return &testNotebook{
		db:      db,
		store:   store,
		clock:   clock,
		root:    root,
		folders: folders,
		notes:   notes,
		tags:    tags,
	}
}

func (n *testNotebook) mustFolder(t *testing.T, id string) Folder {
	t.Helper()
	folder, err := n.folders.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load folder %s: %v", id, err)
	}
	return folder
}

func (n *testNotebook) mustNote(t *testing.T, id string) Note {
	t.Helper()
	note, err := n.notes.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load note %s: %v", id, err)
	}
	return note
}

func (n *testNotebook) mustTag(t *testing.T, id string) Tag {
	t.Helper()
	tag, err := n.tags.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load tag %s: %v", id, err)
	}
	return tag
}

func (n *testNotebook) mustCreateFolder(t *testing.T, parentID, name string) Folder {
	t.Helper()
	folder, err := n.folders.Create(context.Background(), parentID, name)
	if err != nil {
		t.Fatalf("failed to create folder %s: %v", name, err)
	}
	return folder
}

func (n *testNotebook) mustCreateNote(t *testing.T, folderID, name, content string) Note {
	t.Helper()
	note, err := n.notes.Create(context.Background(), folderID, name, content)
	if err != nil {
		t.Fatalf("failed to create note %s: %v", name, err)
	}
	return note
}

func (n *testNotebook) mustAddTag(t *testing.T, noteID, tagName string) Note {
	t.Helper()
	note, err := n.notes.AddTag(context.Background(), noteID, tagName)
	if err != nil {
		t.Fatalf("failed to add tag %s: %v", tagName, err)
	}
	return note
}

func (n *testNotebook) mustFindTagByName(t *testing.T, name string) Tag {
	t.Helper()
	tag, found, err := n.store.Tags().FindByName(context.Background(), name)
	if err != nil {
		t.Fatalf("failed to query tag %s: %v", name, err)
	}
	if !found {
		t.Fatalf("expected tag %s to exist", name)
	}
	return tag
}

// assertSymmetricMembership checks that every note/tag reference is mirrored
// on the other side.
func (n *testNotebook) assertSymmetricMembership(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	notes, err := n.notes.GetAll(ctx)
	if err != nil {
		t.Fatalf("failed to list notes: %v", err)
	}
	tags, err := n.tags.GetAll(ctx)
	if err != nil {
		t.Fatalf("failed to list tags: %v", err)
	}
	tagsByID := make(map[string]Tag, len(tags))
	for _, tag := range tags {
		tagsByID[tag.ID] = tag
	}
	notesByID := make(map[string]Note, len(notes))
	for _, note := range notes {
		notesByID[note.ID] = note
		for _, tagID := range note.TagIDs {
			tag, ok := tagsByID[tagID]
			if !ok {
				t.Fatalf("note %s references missing tag %s", note.ID, tagID)
			}
			if !containsID(tag.NoteIDs, note.ID) {
				t.Fatalf("tag %s does not mirror note %s", tagID, note.ID)
			}
		}
	}
	for _, tag := range tags {
		for _, noteID := range tag.NoteIDs {
			note, ok := notesByID[noteID]
			if !ok {
				t.Fatalf("tag %s references missing note %s", tag.ID, noteID)
			}
			if !note.HasTag(tag.ID) {
				t.Fatalf("note %s does not mirror tag %s", noteID, tag.ID)
			}
		}
	}
}

func expectKind(t *testing.T, err error, sentinel error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %v, got nil", sentinel)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected error %v, got %v", sentinel, err)
	}
}
