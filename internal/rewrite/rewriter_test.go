package rewrite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/storage/files"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// scriptedCompleter answers the script call and the hook call in order.
type scriptedCompleter struct {
	replies []string
	errs    []error
	prompts []string
}

func (s *scriptedCompleter) Complete(_ context.Context, _, prompt string) (string, error) {
	i := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], err
	}
	return "", err
}

const scriptReply = `[HOOK - 0:00-0:05]
Tired of diets that never stick?

## HOOK VARIATIONS
**Hook 1 (Question):** Ever wonder why?`

func newTestRewriter(t *testing.T, c *scriptedCompleter) *Rewriter {
	t.Helper()
	r, err := New(c, t.TempDir(), creative.Brand{}, fixedClock{time.Unix(1700000000, 0).UTC()}, zap.NewNop())
	require.NoError(t, err)
	return r
}

func TestRewriteBuildsScriptAndHooks(t *testing.T) {
	t.Parallel()

	stub := &scriptedCompleter{replies: []string{
		scriptReply,
		"```json\n{\"hook_1_question\":\"Q?\",\"hook_2_story\":\"Last May...\",\"hook_3_shock\":\"9 in 10\"}\n```",
	}}
	r := newTestRewriter(t, stub)
	rec := &creative.Record{
		ID:         "ad1",
		Transcript: strings.Repeat("word ", 60),
		Analysis:   &creative.Analysis{Type: creative.AnalysisFull, Text: "HOOK ANALYSIS: question"},
		Status:     creative.StatusAnalyzed,
	}

	require.NoError(t, r.Rewrite(context.Background(), rec, creative.Brand{Name: "Acme"}))

	require.Equal(t, creative.StatusScripted, rec.Status)
	require.Equal(t, scriptReply, rec.Script.Text)
	require.Equal(t, "Acme", rec.Script.BrandName)
	require.Equal(t, DefaultProductBenefits, rec.Script.ProductBenefits)
	require.True(t, strings.HasSuffix(rec.Script.BasedOnTranscript, "..."))
	require.Equal(t, "1. Question: Q?\n\n2. Story: Last May...\n\n3. Shock/Stat: 9 in 10", rec.Script.HookVariations)
	require.Equal(t, "9 in 10", rec.Script.HookVariationsParsed.Shock)

	require.Contains(t, stub.prompts[0], "HOOK ANALYSIS: question")
	require.Contains(t, stub.prompts[0], "- Brand: Acme")
	require.Contains(t, stub.prompts[1], "Acme")

	require.Equal(t, "ad1_script.json", filepath.Base(rec.ScriptFile))
	var saved creative.Script
	require.NoError(t, files.ReadJSON(rec.ScriptFile, &saved))
	require.Equal(t, rec.Script.HookVariations, saved.HookVariations)
}

func TestRewriteFallsBackToInlineHooks(t *testing.T) {
	t.Parallel()

	stub := &scriptedCompleter{replies: []string{scriptReply, "sorry, no json"}}
	r := newTestRewriter(t, stub)
	rec := &creative.Record{ID: "ad2", Transcript: "short"}

	require.NoError(t, r.Rewrite(context.Background(), rec, creative.Brand{}))
	require.Equal(t, DefaultBrandName, rec.Script.BrandName)
	require.Equal(t, "short", rec.Script.BasedOnTranscript)
	require.Equal(t, "**Hook 1 (Question):** Ever wonder why?", rec.Script.HookVariations)
	require.Equal(t, "sorry, no json", rec.Script.HookVariationsParsed.RawResponse)
	require.Contains(t, stub.prompts[0], noAnalysis)
}

func TestRewriteUsesInsightsWhenNoFullAnalysis(t *testing.T) {
	t.Parallel()

	stub := &scriptedCompleter{replies: []string{scriptReply}, errs: []error{nil, errors.New("boom")}}
	r := newTestRewriter(t, stub)
	rec := &creative.Record{ID: "ad3", Transcript: "t", Insights: creative.Insights{TopHooks: "Struggling?"}}

	require.NoError(t, r.Rewrite(context.Background(), rec, creative.Brand{}))
	require.Contains(t, stub.prompts[0], "Top Hooks: Struggling?")
	require.Nil(t, rec.Script.HookVariationsParsed)
}

func TestRewriteFailure(t *testing.T) {
	t.Parallel()

	r := newTestRewriter(t, &scriptedCompleter{errs: []error{errors.New("rate limited")}})
	rec := &creative.Record{ID: "ad4", Transcript: "t", Status: creative.StatusAnalyzed}

	err := r.Rewrite(context.Background(), rec, creative.Brand{})
	require.ErrorIs(t, err, creative.ErrAnalysis)
	require.Nil(t, rec.Script)
	require.Equal(t, creative.StatusAnalyzed, rec.Status)
}

func TestRewriteSkipsWithoutTranscript(t *testing.T) {
	t.Parallel()

	stub := &scriptedCompleter{}
	r := newTestRewriter(t, stub)
	rec := &creative.Record{ID: "ad5"}

	require.NoError(t, r.Rewrite(context.Background(), rec, creative.Brand{}))
	require.Nil(t, rec.Script)
	require.Empty(t, stub.prompts)
}

func TestFormatHooksEmpty(t *testing.T) {
	t.Parallel()

	require.Empty(t, FormatHooks(nil))
	require.Empty(t, FormatHooks(&creative.HookVariations{RawResponse: "x"}))
}
