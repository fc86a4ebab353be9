package analysis

import (
	"strconv"
	"strings"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

type promptSet struct {
	system   string
	template string
}

const contextBlock = `Competitor: {competitor}
Platform: {platform}
Days active: {days_active}

Transcript:
{transcript}`

var prompts = map[creative.AnalysisType]promptSet{
	creative.AnalysisHooks: {
		system: "You are an expert ad copywriter and marketing analyst. Analyze ads to identify effective hooks and attention-grabbing techniques. Provide structured, actionable insights.",
		template: `Analyze this ad transcript and identify:
1. The opening hook (first 3-5 seconds)
2. Hook type (question, statement, shocking fact, story, etc.)
3. Emotional trigger used
4. Target pain point addressed

` + contextBlock + `

Provide a structured analysis. Include a line starting with "Hook type:".`,
	},
	creative.AnalysisAngles: {
		system: "You are an expert ad strategist specializing in direct response marketing. Analyze ads to identify selling angles, value propositions, and persuasion techniques.",
		template: `Analyze this ad transcript and identify:
1. The main selling angle/approach
2. Key benefits highlighted
3. Unique value proposition
4. Call to action strategy

` + contextBlock + `

Provide a structured analysis. Include a line starting with "Main selling angle:".`,
	},
	creative.AnalysisEmotional: {
		system: "You are a consumer psychology expert specializing in advertising and persuasion. Identify emotional triggers, psychological techniques, and persuasion patterns in ad copy.",
		template: `Analyze this ad transcript and identify all emotional triggers:
1. Primary emotion targeted (fear, desire, curiosity, etc.)
2. Secondary emotions
3. Specific trigger phrases/words
4. Psychological techniques used (scarcity, social proof, authority, etc.)

` + contextBlock + `

Provide a detailed breakdown.`,
	},
	creative.AnalysisFull: {
		system: `You are an elite creative strategist with expertise in direct response advertising, consumer psychology, copywriting and video ad production.
Provide comprehensive, actionable analysis that can be used to inform new creative development.`,
		template: `Perform a comprehensive analysis of this competitor ad:

` + contextBlock + `

Analyze and provide:
1. HOOK ANALYSIS
   - Opening hook (first 3-5 seconds)
   - Hook type
   - Effectiveness rating (1-10)

2. ANGLE/APPROACH
   - Main selling angle
   - Target audience
   - Key benefits highlighted

3. EMOTIONAL TRIGGERS
   - Primary emotion
   - Secondary emotions
   - Trigger phrases

4. STRUCTURE
   - Ad format/style
   - Pacing
   - Length effectiveness

5. CALL TO ACTION
   - CTA type
   - Urgency tactics
   - Offer presented

6. KEY TAKEAWAYS
   - What makes this ad work
   - Elements to potentially adapt
   - Weaknesses to avoid

Provide a detailed, actionable analysis.`,
	},
	creative.AnalysisStructured: {
		system: `You are an elite ad analyst. Extract insights from ad transcripts.
Return ONLY valid JSON with no markdown formatting or extra text.
Be concise but comprehensive in your analysis.`,
		template: `Extract the key creative insights from this competitor ad.

` + contextBlock + `

Return a JSON object with exactly these string fields:
{
  "top_hooks": "the strongest opening lines, quoted",
  "hook_type": "question, story, shocking fact, statement or similar",
  "top_angles": "the sales angles used",
  "main_angle": "the single main selling angle",
  "pain_points": "customer frustrations the ad names",
  "emotional_triggers": "emotions the ad activates",
  "why_this_works": "two or three sentences on why the ad performs"
}`,
	},
}

// buildPrompt renders the user prompt for a record.
func buildPrompt(kind creative.AnalysisType, rec *creative.Record) (promptSet, string) {
	set, ok := prompts[kind]
	if !ok {
		set = prompts[creative.AnalysisFull]
	}
	days := "unknown"
	if rec.DaysActive != nil {
		days = strconv.Itoa(*rec.DaysActive)
	}
	platform := rec.Platform
	if platform == "" {
		platform = "Unknown"
	}
	r := strings.NewReplacer(
		"{competitor}", rec.Competitor,
		"{platform}", platform,
		"{days_active}", days,
		"{transcript}", rec.Transcript,
	)
	return set, r.Replace(set.template)
}
