package judge

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Stage identifies which request a prompt is composed for.
type Stage string

const (
	StageRelevance Stage = "relevance"
	StageEvaluate  Stage = "evaluate"
)

const relevanceInstructions = `You decide which evaluation sets apply to a recorded voice-agent call.

Each evaluation set has a condition. An evaluation set is relevant only when its condition is clearly true for the call transcript. When the transcript does not clearly show the condition, the set is not relevant.

For example, an evaluation set with the condition "the user tries to book an appointment" is not relevant to a call in which the user only asks for store hours.`

const relevanceSpec = `Respond with a JSON object matching this exact structure:

{
  "relevantEvalSets": [
    {"id": "<eval set id>", "relevant": true}
  ]
}

Field constraints:
- id: the id of an evaluation set from the list provided, copied exactly.
- relevant: true if the condition is clearly true for the call transcript, false otherwise.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Include one entry for every evaluation set provided
- Never invent ids that were not provided`

const evaluateInstructions = `You review recorded voice-agent calls against a list of evaluations.

The "bot" role is the voice agent and the "user" role is the caller. Each evaluation describes a behaviour the agent should show. Judge each evaluation only from what the transcript shows, citing the relevant part of the conversation in your explanation. Timing fields are seconds from the start of the call.`

const evaluateSpec = `Respond with a JSON object matching this exact structure:

{
  "evaluations": [
    {"evaluationId": "<evaluation id>", "success": true, "explanation": "<explanation>"}
  ]
}

Field constraints:
- evaluationId: the id of an evaluation from the list provided, copied exactly.
- success: true if the agent satisfied the evaluation, false otherwise.
- explanation: one or two sentences grounded in the transcript.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Include exactly one entry per evaluation provided
- Never invent ids that were not provided`

var stagePrompts = map[Stage][2]string{
	StageRelevance: {relevanceInstructions, relevanceSpec},
	StageEvaluate:  {evaluateInstructions, evaluateSpec},
}

// ComposePrompt joins the stage instructions and response format
// with named JSON sections describing the call.
func ComposePrompt(stage Stage, sections ...Section) (string, error) {
	parts, ok := stagePrompts[stage]
	if !ok {
		return "", fmt.Errorf("unknown stage %q", stage)
	}

	var sb strings.Builder
	sb.WriteString(parts[0])
	sb.WriteString("\n\n")
	sb.WriteString(parts[1])

	for _, s := range sections {
		data, err := json.MarshalIndent(s.Value, "", "  ")
		if err != nil {
			return "", fmt.Errorf("serialize %s: %w", s.Title, err)
		}
		sb.WriteString("\n\n")
		sb.WriteString(s.Title)
		sb.WriteString(":\n\n")
		sb.Write(data)
	}

	return sb.String(), nil
}

// Section is a titled JSON payload appended to a prompt.
type Section struct {
	Title string
	Value any
}
