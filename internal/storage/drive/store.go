// Package drive uploads media and pipeline artifacts into a Google Drive
// folder tree.
package drive

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"go.uber.org/zap"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// folderAPI is the slice of the Drive API the store needs.
type folderAPI interface {
	FindFolder(ctx context.Context, name, parent string) (string, error)
	CreateFolder(ctx context.Context, name, parent string) (string, error)
	FindFile(ctx context.Context, name, parent string) (string, error)
	Upload(ctx context.Context, name, parent, contentType string, r io.Reader) (string, error)
	Update(ctx context.Context, id, contentType string, r io.Reader) (string, error)
}

// Store implements creative.MediaStore. Object paths map to nested folders
// under the root folder; the last element is the file name.
type Store struct {
	api    folderAPI
	root   string
	logger *zap.Logger

	mu      sync.Mutex
	folders map[string]string
}

// Open connects to Drive with the given client options, typically
// option.WithCredentialsFile.
func Open(ctx context.Context, rootFolderID string, logger *zap.Logger, opts ...option.ClientOption) (*Store, error) {
	opts = append([]option.ClientOption{option.WithScopes(gdrive.DriveScope)}, opts...)
	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return New(&serviceAPI{svc: svc}, rootFolderID, logger)
}

// New wraps a Drive client rooted at rootFolderID.
func New(api folderAPI, rootFolderID string, logger *zap.Logger) (*Store, error) {
	if api == nil {
		return nil, fmt.Errorf("drive api is required")
	}
	if rootFolderID == "" {
		return nil, fmt.Errorf("root folder id is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{api: api, root: rootFolderID, logger: logger, folders: make(map[string]string)}, nil
}

// PutObject uploads r as p and returns the file's web link. An existing file
// with the same name in the target folder gets its content replaced.
func (s *Store) PutObject(ctx context.Context, p string, contentType string, r io.Reader) (string, error) {
	clean := strings.Trim(path.Clean("/"+p), "/")
	if clean == "" || clean == "." {
		return "", fmt.Errorf("path is required")
	}
	dir, name := path.Split(clean)
	parent, err := s.folder(ctx, strings.TrimSuffix(dir, "/"))
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	existing, err := s.api.FindFile(ctx, name, parent)
	if err != nil {
		return "", fmt.Errorf("find file %s: %w", clean, err)
	}
	var link string
	if existing != "" {
		link, err = s.api.Update(ctx, existing, contentType, r)
	} else {
		link, err = s.api.Upload(ctx, name, parent, contentType, r)
	}
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", clean, err)
	}
	s.logger.Debug("uploaded to drive",
		zap.String("path", clean),
		zap.String("link", link),
		zap.Bool("replaced", existing != ""),
	)
	return link, nil
}

// folder resolves a slash separated folder path to an id, creating missing
// folders. Resolved ids are cached for the life of the store.
func (s *Store) folder(ctx context.Context, dir string) (string, error) {
	if dir == "" {
		return s.root, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	parent := s.root
	walked := ""
	for _, name := range strings.Split(dir, "/") {
		walked = path.Join(walked, name)
		if id, ok := s.folders[walked]; ok {
			parent = id
			continue
		}
		id, err := s.api.FindFolder(ctx, name, parent)
		if err != nil {
			return "", fmt.Errorf("find folder %q: %w", walked, err)
		}
		if id == "" {
			id, err = s.api.CreateFolder(ctx, name, parent)
			if err != nil {
				return "", fmt.Errorf("create folder %q: %w", walked, err)
			}
			s.logger.Info("created drive folder", zap.String("folder", walked))
		}
		s.folders[walked] = id
		parent = id
	}
	return parent, nil
}

// serviceAPI adapts *drive.Service.
type serviceAPI struct {
	svc *gdrive.Service
}

func (a *serviceAPI) FindFolder(ctx context.Context, name, parent string) (string, error) {
	return a.find(ctx, name, parent, "=")
}

func (a *serviceAPI) FindFile(ctx context.Context, name, parent string) (string, error) {
	return a.find(ctx, name, parent, "!=")
}

// find returns the id of the first child of parent called name whose mime
// type compares to the folder type with op, or "" when there is none.
func (a *serviceAPI) find(ctx context.Context, name, parent, op string) (string, error) {
	q := fmt.Sprintf("name = '%s' and '%s' in parents and mimeType %s '%s' and trashed = false",
		escapeQuery(name), escapeQuery(parent), op, folderMimeType)
	list, err := a.svc.Files.List().Q(q).Fields("files(id, name)").
		SupportsAllDrives(true).IncludeItemsFromAllDrives(true).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

func (a *serviceAPI) CreateFolder(ctx context.Context, name, parent string) (string, error) {
	f, err := a.svc.Files.Create(&gdrive.File{Name: name, MimeType: folderMimeType, Parents: []string{parent}}).
		Fields("id").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return f.Id, nil
}

func (a *serviceAPI) Upload(ctx context.Context, name, parent, contentType string, r io.Reader) (string, error) {
	f, err := a.svc.Files.Create(&gdrive.File{Name: name, Parents: []string{parent}}).
		Media(r, googleapi.ContentType(contentType)).
		Fields("id, webViewLink").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return webLink(f), nil
}

func (a *serviceAPI) Update(ctx context.Context, id, contentType string, r io.Reader) (string, error) {
	f, err := a.svc.Files.Update(id, &gdrive.File{}).
		Media(r, googleapi.ContentType(contentType)).
		Fields("id, webViewLink").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return webLink(f), nil
}

func webLink(f *gdrive.File) string {
	if f.WebViewLink != "" {
		return f.WebViewLink
	}
	return "https://drive.google.com/file/d/" + f.Id + "/view"
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
