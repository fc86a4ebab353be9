package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

type fakeDrive struct {
	mu      sync.Mutex
	folders map[string]string // parent/name -> id
	finds   int
	uploads map[string][]byte // parent/name -> body
	updates int
	failUp  error
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{folders: map[string]string{}, uploads: map[string][]byte{}}
}

func (f *fakeDrive) FindFolder(_ context.Context, name, parent string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	return f.folders[parent+"/"+name], nil
}

func (f *fakeDrive) CreateFolder(_ context.Context, name, parent string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("folder-%d", len(f.folders)+1)
	f.folders[parent+"/"+name] = id
	return id, nil
}

func (f *fakeDrive) FindFile(_ context.Context, name, parent string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.uploads[parent+"/"+name]; ok {
		return parent + "/" + name, nil
	}
	return "", nil
}

func (f *fakeDrive) Update(_ context.Context, id, _ string, r io.Reader) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	f.uploads[id] = body
	return "https://drive.google.com/file/d/" + id + "/view", nil
}

func (f *fakeDrive) Upload(_ context.Context, name, parent, _ string, r io.Reader) (string, error) {
	if f.failUp != nil {
		return "", f.failUp
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[parent+"/"+name] = body
	return "https://drive.google.com/file/d/" + name + "/view", nil
}

func TestPutObjectBuildsFolderTreeOnce(t *testing.T) {
	t.Parallel()

	fake := newFakeDrive()
	fake.folders["root/Raw Ads"] = "raw-ads"
	store, err := New(fake, "root", zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	link, err := store.PutObject(ctx, "Raw Ads/SkinnyFit/VIDEO_SkinnyFit_ad1.mp4", "video/mp4", bytes.NewReader([]byte("v1")))
	require.NoError(t, err)
	require.Equal(t, "https://drive.google.com/file/d/VIDEO_SkinnyFit_ad1.mp4/view", link)

	_, err = store.PutObject(ctx, "Raw Ads/SkinnyFit/VIDEO_SkinnyFit_ad2.mp4", "video/mp4", bytes.NewReader([]byte("v2")))
	require.NoError(t, err)

	require.Equal(t, 2, fake.finds, "folder ids are cached after the first lookup")
	skinny := fake.folders["raw-ads/SkinnyFit"]
	require.NotEmpty(t, skinny)
	require.Equal(t, []byte("v2"), fake.uploads[skinny+"/VIDEO_SkinnyFit_ad2.mp4"])
}

func TestPutObjectReplacesExistingFile(t *testing.T) {
	t.Parallel()

	fake := newFakeDrive()
	store, err := New(fake, "root", zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.PutObject(ctx, "Scripts/ad1_script.json", "application/json", strings.NewReader(`{"v":1}`))
	require.NoError(t, err)
	_, err = store.PutObject(ctx, "Scripts/ad1_script.json", "application/json", strings.NewReader(`{"v":2}`))
	require.NoError(t, err)

	require.Len(t, fake.uploads, 1)
	require.Equal(t, 1, fake.updates)
	scripts := fake.folders["root/Scripts"]
	require.Equal(t, []byte(`{"v":2}`), fake.uploads[scripts+"/ad1_script.json"])
}

func TestPutObjectAtRootAndErrors(t *testing.T) {
	t.Parallel()

	fake := newFakeDrive()
	store, err := New(fake, "root", nil)
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "summary.json", "", strings.NewReader("{}"))
	require.NoError(t, err)
	require.Contains(t, fake.uploads, "root/summary.json")

	_, err = store.PutObject(context.Background(), "/", "", strings.NewReader(""))
	require.Error(t, err)

	fake.failUp = errors.New("quota exceeded")
	_, err = store.PutObject(context.Background(), "Scripts/ad1_script.json", "application/json", strings.NewReader("{}"))
	require.ErrorContains(t, err, "quota exceeded")
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(nil, "root", nil)
	require.Error(t, err)
	_, err = New(newFakeDrive(), "", nil)
	require.Error(t, err)
}

func TestServiceAPIFindFolderQuery(t *testing.T) {
	t.Parallel()

	var gotQ string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQ = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(gdrive.FileList{Files: []*gdrive.File{{Id: "abc", Name: "Raw Ads"}}})
	}))
	defer srv.Close()

	svc, err := gdrive.NewService(context.Background(), option.WithEndpoint(srv.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	api := &serviceAPI{svc: svc}

	id, err := api.FindFolder(context.Background(), "Bob's Ads", "root")
	require.NoError(t, err)
	require.Equal(t, "abc", id)
	require.Contains(t, gotQ, `name = 'Bob\'s Ads'`)
	require.Contains(t, gotQ, "'root' in parents")
	require.Contains(t, gotQ, "mimeType = '"+folderMimeType+"'")

	_, err = api.FindFile(context.Background(), "ad1_script.json", "scripts")
	require.NoError(t, err)
	require.Contains(t, gotQ, "mimeType != '"+folderMimeType+"'")
	require.Contains(t, gotQ, "'scripts' in parents")
}
