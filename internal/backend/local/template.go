package local

import (
	"strings"

	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
)

// Chat template tokens of the Phi-3 family.
const (
	tokSystem    = "<|system|>"
	tokUser      = "<|user|>"
	tokAssistant = "<|assistant|>"
	tokEnd       = "<|end|>"
)

// RenderPrompt encodes a request into the raw chat template. The result
// ends with an open assistant turn for the model to complete.
func RenderPrompt(req *domain.Request) string {
	var sb strings.Builder
	if req.System != "" {
		sb.WriteString(tokSystem)
		sb.WriteString(req.System)
		sb.WriteString(tokEnd)
	}
	for _, m := range req.Messages {
		switch m.Role {
		case domain.RoleAssistant:
			if m.Content == "" {
				continue
			}
			sb.WriteString(tokAssistant)
			sb.WriteString(m.Content)
		case domain.RoleTool:
			sb.WriteString(tokUser)
			sb.WriteString("Result of ")
			sb.WriteString(m.Name)
			sb.WriteString(":\n")
			sb.WriteString(m.Content)
		default:
			sb.WriteString(tokUser)
			sb.WriteString(m.Content)
		}
		sb.WriteString(tokEnd)
	}
	sb.WriteString(tokAssistant)
	return sb.String()
}
