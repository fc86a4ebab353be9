package creative

import "time"

// Action names a pipeline entry point.
type Action string

const (
	ActionFull       Action = "full"
	ActionScrape     Action = "scrape"
	ActionTranscribe Action = "transcribe"
	ActionAnalyze    Action = "analyze"
	ActionRewrite    Action = "rewrite"
)

// Stage names used in run state and metrics.
const (
	StageScrape     = "scrape"
	StageDownload   = "download"
	StageTranscribe = "transcribe"
	StageAnalyze    = "analyze"
	StageRewrite    = "rewrite"
	StageStore      = "store"
	StageNotify     = "notify"
)

// Request describes one pipeline invocation from the CLI, a webhook or the scheduler.
type Request struct {
	RunID         string       `json:"run_id"`
	Action        Action       `json:"action"`
	Competitors   []string     `json:"competitors,omitempty"`
	MinDaysActive *int         `json:"min_days,omitempty"`
	AdIDs         []string     `json:"ad_ids,omitempty"`
	AnalysisType  AnalysisType `json:"analysis_type,omitempty"`
	Brand         Brand        `json:"brand"`
	AdsFile       string       `json:"ads_file,omitempty"`
	Source        string       `json:"source"`
	Submitted     time.Time    `json:"submitted"`
}

// RunPhase is the coarse lifecycle of a run.
type RunPhase string

const (
	RunIdle      RunPhase = "idle"
	RunRunning   RunPhase = "running"
	RunCompleted RunPhase = "completed"
	RunFailed    RunPhase = "failed"
)

// StageCounts counts items handled by one stage.
type StageCounts struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// RunState is reported by the status endpoint.
type RunState struct {
	RunID              string                 `json:"run_id,omitempty"`
	Action             Action                 `json:"action,omitempty"`
	State              RunPhase               `json:"status"`
	CurrentStage       string                 `json:"current_stage,omitempty"`
	LastCompletedStage string                 `json:"last_completed_stage,omitempty"`
	Counts             map[string]StageCounts `json:"counts,omitempty"`
	StartedAt          *time.Time             `json:"started_at,omitempty"`
	FinishedAt         *time.Time             `json:"finished_at,omitempty"`
	LastError          string                 `json:"last_error,omitempty"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// Clone returns a deep copy.
func (s RunState) Clone() RunState {
	cp := s
	if s.Counts != nil {
		cp.Counts = make(map[string]StageCounts, len(s.Counts))
		for k, v := range s.Counts {
			cp.Counts[k] = v
		}
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		cp.StartedAt = &t
	}
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		cp.FinishedAt = &t
	}
	return cp
}

// RunSummary is the outcome of a full pipeline run.
type RunSummary struct {
	RunID           string   `json:"run_id"`
	Status          string   `json:"status"`
	TotalAds        int      `json:"total_ads"`
	Successful      int      `json:"successful"`
	Failed          int      `json:"failed"`
	Competitors     []string `json:"competitors"`
	DurationSeconds float64  `json:"duration_seconds"`
	ResultsFile     string   `json:"results_file,omitempty"`
	Message         string   `json:"message,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// EventType names an outbound notification.
type EventType string

const (
	EventNewAd            EventType = "new_ad_scraped"
	EventAnalysisComplete EventType = "analysis_complete"
	EventScriptReady      EventType = "script_ready"
	EventBatchComplete    EventType = "batch_complete"
)

// Event is handed to notifiers when a stage finishes.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Record    *Record
	Summary   *RunSummary
}

// DailySummary is one row of the daily summary sheet.
type DailySummary struct {
	Date        string
	Scraped     int
	Transcribed int
	Analyzed    int
	Scripted    int
	Competitors []string
}
