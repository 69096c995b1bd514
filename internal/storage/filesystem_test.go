package storage

import (
	"context"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestObjectName(t *testing.T) {
	ms := fixedNow.UnixMilli()
	cases := []struct {
		input string
		want  string
	}{
		{"Jane Doe CV.PDF", "jane-doe-cv.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\bob\Résumé.docx`, "resume.docx"},
		{"   ", "document"},
		{"no-extension", "no-extension"},
	}
	for _, tc := range cases {
		require.Equal(t, fmtName(ms, tc.want), ObjectName(tc.input, fixedNow), tc.input)
	}
}

func fmtName(ms int64, rest string) string {
	return strconv.FormatInt(ms, 10) + "_" + rest
}

func TestSaveOpenDelete(t *testing.T) {
	store := NewMemoryStore("/uploads", WithClock(func() time.Time { return fixedNow }))
	ctx := context.Background()

	stored, err := store.Save(ctx, Object{Name: "cv.pdf", ContentType: "application/pdf"}, strings.NewReader("%PDF-1.4 body"))
	require.NoError(t, err)
	require.Equal(t, int64(len("%PDF-1.4 body")), stored.Size)
	require.True(t, strings.HasSuffix(stored.Locator, "_cv.pdf"))
	require.Equal(t, "/uploads/"+stored.Locator, store.URL(stored.Locator))

	rc, err := store.Open(ctx, stored.Locator)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "%PDF-1.4 body", string(body))

	require.NoError(t, store.Delete(ctx, stored.Locator))
	_, err = store.Open(ctx, stored.Locator)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, stored.Locator))
}

func TestSaveAvoidsCollisions(t *testing.T) {
	store := NewMemoryStore("/uploads", WithClock(func() time.Time { return fixedNow }))
	ctx := context.Background()

	first, err := store.Save(ctx, Object{Name: "cv.pdf"}, strings.NewReader("a"))
	require.NoError(t, err)
	second, err := store.Save(ctx, Object{Name: "cv.pdf"}, strings.NewReader("b"))
	require.NoError(t, err)

	require.NotEqual(t, first.Locator, second.Locator)
	require.True(t, strings.HasSuffix(second.Locator, "_cv-1.pdf"))
}

func TestOpenRejectsTraversal(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "secret.txt", []byte("x"), 0o600))
	store := NewFilesystemStore(fsys, "")

	_, err := store.Open(context.Background(), "../secret.txt")
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, "/uploads/secret.txt", store.URL("secret.txt"))
}

func TestSaveHonoursCancelledContext(t *testing.T) {
	store := NewMemoryStore("/uploads")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Save(ctx, Object{Name: "cv.pdf"}, strings.NewReader("a"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewLocalStore(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root, "/files")
	require.NoError(t, err)

	stored, err := store.Save(context.Background(), Object{Name: "letter.doc"}, strings.NewReader("doc"))
	require.NoError(t, err)
	exists, err := afero.Exists(afero.NewOsFs(), root+"/"+stored.Locator)
	require.NoError(t, err)
	require.True(t, exists)

	_, err = NewLocalStore(" ", "/files")
	require.Error(t, err)
}
