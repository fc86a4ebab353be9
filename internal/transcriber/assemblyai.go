package transcriber

import (
	"context"
	"fmt"
	"io"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

// AssemblyAI adapts the AssemblyAI SDK client to API.
type AssemblyAI struct {
	client *aai.Client
	params *aai.TranscriptOptionalParams
}

// NewAssemblyAI builds an SDK-backed API with speaker labels, highlights,
// sentiment and IAB categories enabled.
func NewAssemblyAI(apiKey string) (*AssemblyAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("assemblyai api key is required")
	}
	return &AssemblyAI{
		client: aai.NewClient(apiKey),
		params: &aai.TranscriptOptionalParams{
			SpeakerLabels:     aai.Bool(true),
			AutoHighlights:    aai.Bool(true),
			SentimentAnalysis: aai.Bool(true),
			EntityDetection:   aai.Bool(false),
			IABCategories:     aai.Bool(true),
		},
	}, nil
}

// Submit uploads media and queues a transcript without waiting for it.
func (a *AssemblyAI) Submit(ctx context.Context, media io.Reader) (Job, error) {
	transcript, err := a.client.Transcripts.SubmitFromReader(ctx, media, a.params)
	if err != nil {
		return Job{}, fmt.Errorf("assemblyai submit: %w", err)
	}
	return toJob(transcript), nil
}

// Get fetches the current state of a transcript.
func (a *AssemblyAI) Get(ctx context.Context, id string) (Job, error) {
	transcript, err := a.client.Transcripts.Get(ctx, id)
	if err != nil {
		return Job{}, fmt.Errorf("assemblyai get: %w", err)
	}
	return toJob(transcript), nil
}

func toJob(t aai.Transcript) Job {
	job := Job{
		ID:         aai.ToString(t.ID),
		Status:     string(t.Status),
		Error:      aai.ToString(t.Error),
		Text:       aai.ToString(t.Text),
		Confidence: aai.ToFloat64(t.Confidence),
		WordCount:  len(t.Words),
	}
	for _, u := range t.Utterances {
		job.Utterances = append(job.Utterances, creative.Utterance{
			Speaker:    aai.ToString(u.Speaker),
			Text:       aai.ToString(u.Text),
			Start:      aai.ToInt64(u.Start),
			End:        aai.ToInt64(u.End),
			Confidence: aai.ToFloat64(u.Confidence),
		})
	}
	for _, h := range t.AutoHighlightsResult.Results {
		job.Highlights = append(job.Highlights, creative.Highlight{
			Text:  aai.ToString(h.Text),
			Count: aai.ToInt64(h.Count),
			Rank:  aai.ToFloat64(h.Rank),
		})
	}
	for _, s := range t.SentimentAnalysisResults {
		job.Sentiment = append(job.Sentiment, creative.SentimentResult{
			Text:       aai.ToString(s.Text),
			Sentiment:  string(s.Sentiment),
			Confidence: aai.ToFloat64(s.Confidence),
		})
	}
	if len(t.IABCategoriesResult.Summary) > 0 {
		job.Categories = make(map[string]float64, len(t.IABCategoriesResult.Summary))
		for k, v := range t.IABCategoriesResult.Summary {
			job.Categories[k] = v
		}
	}
	return job
}
