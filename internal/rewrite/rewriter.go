// Package rewrite turns an analyzed competitor ad into an original script for
// our own brand.
package rewrite

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

const (
	// DefaultBrandName is used when a request names no brand.
	DefaultBrandName = "ThermoSlim"
	// DefaultProductBenefits is used when a request names no benefits.
	DefaultProductBenefits = "Natural weight management, metabolism boost, appetite control"

	noAnalysis        = "Original ad transcript - analyze during rewrite"
	transcriptPreview = 200
)

// Rewriter implements creative.Rewriter.
type Rewriter struct {
	llm      llm.Completer
	dir      string
	defaults creative.Brand
	clock    creative.Clock
	logger   *zap.Logger
}

// New builds a Rewriter writing scripts to dir. Empty fields in defaults fall
// back to the built-in brand.
func New(completer llm.Completer, dir string, defaults creative.Brand, clock creative.Clock, logger *zap.Logger) (*Rewriter, error) {
	if completer == nil {
		return nil, errors.New("llm completer is required")
	}
	if dir == "" {
		return nil, errors.New("scripts dir is required")
	}
	if defaults.Name == "" {
		defaults.Name = DefaultBrandName
	}
	if defaults.ProductBenefits == "" {
		defaults.ProductBenefits = DefaultProductBenefits
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rewriter{llm: completer, dir: dir, defaults: defaults, clock: clock, logger: logger}, nil
}

// Rewrite generates a script and three hook variations for the record.
// Records without a transcript pass through untouched.
func (r *Rewriter) Rewrite(ctx context.Context, rec *creative.Record, brand creative.Brand) error {
	if strings.TrimSpace(rec.Transcript) == "" {
		r.logger.Debug("no transcript, skipping rewrite", zap.String("ad_id", rec.ID))
		metrics.ObserveStageItem(creative.StageRewrite, "skipped")
		return nil
	}
	if brand.Name == "" {
		brand.Name = r.defaults.Name
	}
	if brand.ProductBenefits == "" {
		brand.ProductBenefits = r.defaults.ProductBenefits
	}

	reply, err := r.llm.Complete(ctx, scriptSystem, scriptPrompt(rec.Transcript, analysisText(rec), brand))
	if err != nil {
		metrics.ObserveStageItem(creative.StageRewrite, "failed")
		return creative.NewStageError(creative.ErrAnalysis, creative.StageRewrite, rec.ID, err)
	}

	script := &creative.Script{
		Text:              reply,
		HookVariations:    inlineVariations(reply),
		BrandName:         brand.Name,
		ProductBenefits:   brand.ProductBenefits,
		BasedOnTranscript: preview(rec.Transcript),
		CreatedAt:         r.clock.Now(),
	}

	// The hook variation call is best effort; the script stands on its own.
	if hooks, err := r.hookVariations(ctx, rec.Transcript, brand); err != nil {
		r.logger.Warn("hook variations failed", zap.String("ad_id", rec.ID), zap.Error(err))
	} else {
		script.HookVariationsParsed = hooks
		if formatted := FormatHooks(hooks); formatted != "" {
			script.HookVariations = formatted
		}
	}

	path := files.ArtifactPath(r.dir, rec.ID, "script")
	if err := files.WriteJSON(path, script); err != nil {
		metrics.ObserveStageItem(creative.StageRewrite, "failed")
		return creative.NewStageError(creative.ErrAnalysis, creative.StageRewrite, rec.ID, err)
	}
	rec.Script = script
	rec.ScriptFile = path
	rec.Status = rec.Status.Advance(creative.StatusScripted)
	metrics.ObserveStageItem(creative.StageRewrite, "success")
	r.logger.Info("script generated", zap.String("ad_id", rec.ID), zap.String("brand", brand.Name))
	return nil
}

func (r *Rewriter) hookVariations(ctx context.Context, transcript string, brand creative.Brand) (*creative.HookVariations, error) {
	reply, err := r.llm.Complete(ctx, hooksSystem, hooksPrompt(transcript, brand))
	if err != nil {
		return nil, err
	}
	var out creative.HookVariations
	if err := json.Unmarshal([]byte(llm.StripCodeFence(reply)), &out); err != nil {
		return &creative.HookVariations{RawResponse: reply}, nil
	}
	return &out, nil
}

// FormatHooks renders parsed hook variations as one sheet cell.
func FormatHooks(h *creative.HookVariations) string {
	if h == nil || (h.Question == "" && h.Story == "" && h.Shock == "") {
		return ""
	}
	return fmt.Sprintf("1. Question: %s\n\n2. Story: %s\n\n3. Shock/Stat: %s", h.Question, h.Story, h.Shock)
}

// analysisText picks the best available analysis for the prompt: the full
// text, then the structured insights, then a placeholder.
func analysisText(rec *creative.Record) string {
	if rec.Analysis != nil && rec.Analysis.Type != creative.AnalysisStructured && strings.TrimSpace(rec.Analysis.Text) != "" {
		return rec.Analysis.Text
	}
	if !rec.Insights.IsZero() {
		in := rec.Insights
		return fmt.Sprintf("Top Hooks: %s\nTop Angles: %s\nPain Points: %s\nEmotional Triggers: %s\nWhy This Works: %s",
			in.TopHooks, in.TopAngles, in.PainPoints, in.EmotionalTriggers, in.WhyItWorks)
	}
	return noAnalysis
}

func inlineVariations(reply string) string {
	_, after, ok := strings.Cut(reply, "HOOK VARIATIONS")
	if !ok {
		return ""
	}
	return strings.TrimSpace(after)
}

func preview(transcript string) string {
	if len([]rune(transcript)) <= transcriptPreview {
		return transcript
	}
	return creative.Truncate(transcript, transcriptPreview) + "..."
}
