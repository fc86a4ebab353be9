package creative

import (
	"errors"
	"fmt"
)

// Error kinds reported by pipeline stages. Match with errors.Is.
var (
	ErrAuthentication  = errors.New("authentication error")
	ErrScrape          = errors.New("scrape error")
	ErrDownload        = errors.New("download error")
	ErrTranscription   = errors.New("transcription error")
	ErrAnalysis        = errors.New("analysis error")
	ErrStorage         = errors.New("storage error")
	ErrWebhookDelivery = errors.New("webhook delivery error")
)

// StageError attaches the failing stage and ad to an error kind.
type StageError struct {
	Kind  error
	Stage string
	AdID  string
	Err   error
}

// NewStageError builds a StageError. adID may be empty for batch-level failures.
func NewStageError(kind error, stage, adID string, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, AdID: adID, Err: err}
}

func (e *StageError) Error() string {
	switch {
	case e.AdID != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v (ad %s): %v", e.Stage, e.Kind, e.AdID, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
	case e.AdID != "":
		return fmt.Sprintf("%s: %v (ad %s)", e.Stage, e.Kind, e.AdID)
	default:
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *StageError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// KindOf returns the error kind carried by err, or nil.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrAuthentication,
		ErrScrape,
		ErrDownload,
		ErrTranscription,
		ErrAnalysis,
		ErrStorage,
		ErrWebhookDelivery,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
