package service

import (
	"fmt"
	"strings"

	"github.com/dlrandrade/Multiverso-do-Impacto/model"
)

const defaultCharacterInstructions = `
**Character Clothing:** The character should be wearing jeans and a simple white college-style shirt.`

const promptTemplate = `
You are an expert character concept artist for the "Multiverso do Impacto" project.
Your task is to transform the person from the user-submitted photo into a stylized, futuristic hero whose powers and visual elements are inspired by a specific Sustainable Development Goal (SDG/ODS).

**Primary Output Goal:**
Your final output is a single image layer containing ONLY the character against a solid, pure chroma key green background (#00FF00). This background will be programmatically removed later, so its color must be uniform.

**CRITICAL OUTPUT REQUIREMENT:**
- The generated image's background MUST be a solid, flat, vibrant chroma key green color: hex code #00FF00.
- DO NOT add any other color, gradient, texture, pattern, or any other elements to the background layer.
- The character must be perfectly isolated against this green background.

**Core Instructions (MUST BE FOLLOWED):**
1.  **Facial Likeness:** You MUST retain the person's exact facial likeness, hair color, and distinguishing features from the provided image. This is the most important rule.
2.  **Pose & Composition:** The character MUST be rendered in a full-body, dynamic, zero-gravity floating pose. Do not show them standing or sitting. They must appear to be suspended in the air.

**Thematic Instructions (from chosen SDG):**
- %s

**Character & Style Instructions:**
%s

**Aesthetic Style:**
- The overall aesthetic should be inspired by a dark, futuristic world.
- Use a color palette dominated by deep cobalt blue and vibrant electric yellow/gold.
- The lighting on the character must be dramatic and luminescent, as if lit by neon or energy sources.

**Final Image Restrictions:**
- DO NOT generate any text, logos, or watermarks.
- The final image must feel epic, energetic, and impactful.
`

// BuildPrompt 组装英雄生成提示词；自定义描述非空时替换默认服装说明
func BuildPrompt(customPrompt string, mission model.Mission) string {
	character := defaultCharacterInstructions
	if strings.TrimSpace(customPrompt) != "" {
		character = fmt.Sprintf(`
**Character Description:** Transform their body and clothing according to the user's specific request below:
"%s"`, customPrompt)
	}
	return fmt.Sprintf(promptTemplate, mission.Instruction(), character)
}
