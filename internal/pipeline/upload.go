package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

// upload pushes the record's local media and JSON artifacts to the media
// store. The media link is kept on the record as MediaURI.
func (e *Engine) upload(ctx context.Context, rec *creative.Record) error {
	if e.deps.Media == nil {
		return nil
	}
	var errs []error
	if rec.LocalPath != "" {
		uri, err := e.uploadFile(ctx, MediaPath(rec.Competitor, filepath.Base(rec.LocalPath)), rec.LocalPath, true)
		if err != nil {
			errs = append(errs, err)
		} else {
			rec.MediaURI = uri
		}
	}
	artifacts := []struct{ folder, file string }{
		{TranscriptsFolder, rec.TranscriptFile},
		{AnalysisFolder, rec.AnalysisFile},
		{ScriptsFolder, rec.ScriptFile},
	}
	for _, a := range artifacts {
		if a.file == "" {
			continue
		}
		if _, err := e.uploadFile(ctx, path.Join(a.folder, filepath.Base(a.file)), a.file, false); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return creative.NewStageError(creative.ErrStorage, creative.StageStore, rec.ID, errors.Join(errs...))
}

// uploadFile reads local and stores it under object. Media with identical
// content is uploaded once per engine and the first link is reused.
func (e *Engine) uploadFile(ctx context.Context, object, local string, dedupe bool) (string, error) {
	// #nosec G304 -- paths were produced by earlier stages.
	data, err := os.ReadFile(local)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", local, err)
	}

	var digest string
	if dedupe && e.deps.Hasher != nil {
		if digest, err = e.deps.Hasher.Hash(data); err != nil {
			return "", fmt.Errorf("hash %s: %w", local, err)
		}
		e.uploadMu.Lock()
		uri, ok := e.uploaded[digest]
		e.uploadMu.Unlock()
		if ok {
			return uri, nil
		}
	}

	uri, err := e.deps.Media.PutObject(ctx, object, contentType(local), bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", object, err)
	}
	if digest != "" {
		e.uploadMu.Lock()
		e.uploaded[digest] = uri
		e.uploadMu.Unlock()
	}
	return uri, nil
}

func contentType(file string) string {
	if ct := mime.TypeByExtension(filepath.Ext(file)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
