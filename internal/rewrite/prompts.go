package rewrite

import (
	"strings"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

const scriptSystem = `You are an elite direct response copywriter with decades of experience creating winning ad scripts.
Your scripts consistently generate high conversion rates and ROI.
You understand consumer psychology, persuasion techniques, and what makes people take action.
Create original, compelling scripts that capture attention and drive conversions.`

const scriptTemplate = `Based on this competitor ad analysis and transcript, create a new, original script for our brand.

ORIGINAL TRANSCRIPT:
{transcript}

ANALYSIS:
{analysis}

BRAND GUIDELINES:
- Brand: {brand_name}
- Tone: Professional yet relatable
- Target audience: Health-conscious adults interested in weight management
- Key product benefits: {product_benefits}

Create a new script that:
1. Uses a similar effective hook structure but with original content
2. Maintains the emotional appeal
3. Follows our brand voice
4. Includes a clear call to action
5. Is approximately the same length as the original

OUTPUT FORMAT:
[HOOK - 0:00-0:05]
(Script content)

[PROBLEM - 0:05-0:15]
(Script content)

[SOLUTION - 0:15-0:30]
(Script content)

[BENEFITS - 0:30-0:45]
(Script content)

[CTA - 0:45-0:60]
(Script content)

---
SCRIPT NOTES:
(Any production notes or suggestions)

---

ALSO GENERATE 3 HOOK VARIATIONS:
After the main script, provide 3 alternative opening hooks (first 5 seconds) using different techniques:
1. Question Hook - Ask a provocative question
2. Story Hook - Start with a personal anecdote
3. Statistic/Fact Hook - Lead with a surprising fact

Format as:
## HOOK VARIATIONS

**Hook 1 (Question):**
[Hook text]

**Hook 2 (Story):**
[Hook text]

**Hook 3 (Fact/Statistic):**
[Hook text]`

const hooksSystem = "You are an expert ad copywriter. Generate compelling hooks. Return ONLY valid JSON."

const hooksTemplate = `Write three alternative opening hooks (first 5 seconds) for a {brand_name} ad, inspired by this competitor transcript.

TRANSCRIPT:
{transcript}

PRODUCT BENEFITS:
{product_benefits}

Use a different technique for each hook: a provocative question, a short personal story, and a shocking fact or statistic.

Return JSON only:
{"hook_1_question": "...", "hook_2_story": "...", "hook_3_shock": "..."}`

func scriptPrompt(transcript, analysis string, brand creative.Brand) string {
	return strings.NewReplacer(
		"{transcript}", transcript,
		"{analysis}", analysis,
		"{brand_name}", brand.Name,
		"{product_benefits}", brand.ProductBenefits,
	).Replace(scriptTemplate)
}

func hooksPrompt(transcript string, brand creative.Brand) string {
	return strings.NewReplacer(
		"{transcript}", transcript,
		"{brand_name}", brand.Name,
		"{product_benefits}", brand.ProductBenefits,
	).Replace(hooksTemplate)
}
