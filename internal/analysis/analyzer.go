// Package analysis asks an LLM to break competitor ad transcripts down into
// hooks, angles, pain points and emotional triggers.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/llm"
	"github.com/JakeFAU/creative-intel/internal/metrics"
	"github.com/JakeFAU/creative-intel/internal/storage/files"
)

// ErrUnparsable marks a structured reply that was not valid JSON.
var ErrUnparsable = errors.New("structured analysis is not valid json")

// Analyzer implements creative.Analyzer.
type Analyzer struct {
	llm    llm.Completer
	dir    string
	clock  creative.Clock
	logger *zap.Logger
}

// New builds an Analyzer writing artifacts to dir.
func New(completer llm.Completer, dir string, clock creative.Clock, logger *zap.Logger) (*Analyzer, error) {
	if completer == nil {
		return nil, errors.New("llm completer is required")
	}
	if dir == "" {
		return nil, errors.New("analysis dir is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{llm: completer, dir: dir, clock: clock, logger: logger}, nil
}

// artifact is the on-disk analysis file.
type artifact struct {
	ID       string             `json:"id"`
	Analysis *creative.Analysis `json:"analysis"`
	Insights creative.Insights  `json:"insights"`
}

// Analyze runs one analysis over the record's transcript. Records without a
// transcript pass through untouched.
func (a *Analyzer) Analyze(ctx context.Context, rec *creative.Record, kind creative.AnalysisType) error {
	if strings.TrimSpace(rec.Transcript) == "" {
		a.logger.Debug("no transcript, skipping analysis", zap.String("ad_id", rec.ID))
		metrics.ObserveStageItem(creative.StageAnalyze, "skipped")
		return nil
	}
	if _, ok := prompts[kind]; !ok {
		kind = creative.AnalysisFull
	}

	set, prompt := buildPrompt(kind, rec)
	reply, err := a.llm.Complete(ctx, set.system, prompt)
	if err != nil {
		metrics.ObserveStageItem(creative.StageAnalyze, "failed")
		return creative.NewStageError(creative.ErrAnalysis, creative.StageAnalyze, rec.ID, err)
	}

	result := &creative.Analysis{Type: kind, Text: reply, AnalyzedAt: a.clock.Now()}
	insights, parseErr := insightsFor(kind, reply)
	if parseErr != nil {
		result.RawResponse = reply
		insights = creative.Insights{TopHooks: creative.Truncate(reply, rawInsightSize)}
		a.logger.Warn("structured analysis not parsable, keeping raw response",
			zap.String("ad_id", rec.ID), zap.Error(parseErr))
	}

	rec.Analysis = result
	rec.Insights = insights
	path := files.ArtifactPath(a.dir, rec.ID, "analysis")
	if err := files.WriteJSON(path, artifact{ID: rec.ID, Analysis: result, Insights: insights}); err != nil {
		metrics.ObserveStageItem(creative.StageAnalyze, "failed")
		return creative.NewStageError(creative.ErrAnalysis, creative.StageAnalyze, rec.ID, err)
	}
	rec.AnalysisFile = path

	if parseErr != nil {
		metrics.ObserveStageItem(creative.StageAnalyze, "failed")
		return creative.NewStageError(creative.ErrAnalysis, creative.StageAnalyze, rec.ID, parseErr)
	}
	rec.Status = rec.Status.Advance(creative.StatusAnalyzed)
	metrics.ObserveStageItem(creative.StageAnalyze, "success")
	a.logger.Info("analysis completed", zap.String("ad_id", rec.ID), zap.String("type", string(kind)))
	return nil
}

func insightsFor(kind creative.AnalysisType, reply string) (creative.Insights, error) {
	switch kind {
	case creative.AnalysisStructured:
		return ParseStructured(reply)
	case creative.AnalysisHooks:
		return creative.Insights{
			TopHooks: creative.Truncate(strings.TrimSpace(reply), sectionLimit),
			HookType: firstMatch(hookTypeLine, reply),
		}, nil
	case creative.AnalysisAngles:
		return creative.Insights{
			TopAngles: creative.Truncate(strings.TrimSpace(reply), sectionLimit),
			MainAngle: firstMatch(mainAngleLine, reply),
		}, nil
	case creative.AnalysisEmotional:
		return creative.Insights{
			EmotionalTriggers: creative.Truncate(strings.TrimSpace(reply), sectionLimit),
			PainPoints:        painPoints(reply),
		}, nil
	default:
		return ExtractSections(reply), nil
	}
}

// text decodes a JSON string or a list of strings.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = text(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*t = text(strings.Join(list, "\n"))
	return nil
}

type structuredReply struct {
	TopHooks          text `json:"top_hooks"`
	HookType          text `json:"hook_type"`
	TopAngles         text `json:"top_angles"`
	MainAngle         text `json:"main_angle"`
	PainPoints        text `json:"pain_points"`
	EmotionalTriggers text `json:"emotional_triggers"`
	WhyItWorks        text `json:"why_this_works"`
}

// ParseStructured decodes a structured analysis reply, tolerating a markdown
// code fence around the JSON.
func ParseStructured(reply string) (creative.Insights, error) {
	var out structuredReply
	if err := json.Unmarshal([]byte(llm.StripCodeFence(reply)), &out); err != nil {
		return creative.Insights{}, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	return creative.Insights{
		TopHooks:          string(out.TopHooks),
		HookType:          string(out.HookType),
		TopAngles:         string(out.TopAngles),
		MainAngle:         string(out.MainAngle),
		PainPoints:        string(out.PainPoints),
		EmotionalTriggers: string(out.EmotionalTriggers),
		WhyItWorks:        string(out.WhyItWorks),
	}, nil
}
