package google

import (
	"encoding/json"
	"fmt"

	ai "github.com/spetersoncode/cogs"
	"google.golang.org/genai"
)

func convertTools(tools []ai.Tool) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}

	funcs := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		funcs[i] = &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  convertSchema(t.Parameters),
		}
	}

	return []*genai.Tool{{FunctionDeclarations: funcs}}
}

func convertToolChoice(choice ai.ToolChoice) *genai.ToolConfig {
	switch choice {
	case ai.ToolChoiceNone:
		return &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeNone,
			},
		}
	case ai.ToolChoiceRequired:
		return &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAny,
			},
		}
	default:
		return &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAuto,
			},
		}
	}
}

// functionCallDelta converts one complete Gemini function call into a
// tool-call delta. Gemini does not stream argument fragments, so the full
// argument JSON arrives in a single delta. Calls without an id get a
// synthetic one keyed by arrival order.
func functionCallDelta(fc *genai.FunctionCall, index int) ai.ToolCallDelta {
	args, _ := json.Marshal(fc.Args)
	id := fc.ID
	if id == "" {
		id = fmt.Sprintf("call_%d_%s", index, fc.Name)
	}
	return ai.ToolCallDelta{
		Index:          index,
		ID:             id,
		Name:           fc.Name,
		ArgumentsDelta: string(args),
	}
}
