package cloud

import (
	"encoding/json"
	"strings"

	"github.com/tjfontaine/hybrid-agent/internal/api/gemini"
	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
)

// toContents encodes the conversation for generateContent. Consecutive tool
// results are folded into one turn so they answer the preceding model turn
// together.
func toContents(msgs []domain.Message) []gemini.Content {
	contents := make([]gemini.Content, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case domain.RoleAssistant:
			c := gemini.Content{Role: "model"}
			if m.Content != "" {
				c.Parts = append(c.Parts, gemini.Part{Text: m.Content})
			}
			for _, call := range m.FunctionCalls {
				c.Parts = append(c.Parts, gemini.Part{FunctionCall: &gemini.FunctionCall{
					Name: call.Name,
					Args: json.RawMessage(call.ArgumentsJSON()),
				}})
			}
			if len(c.Parts) == 0 {
				continue
			}
			contents = append(contents, c)

		case domain.RoleTool:
			part := gemini.Part{FunctionResponse: &gemini.FunctionResponse{
				Name:     m.Name,
				Response: map[string]any{"result": m.Content},
			}}
			if n := len(contents); n > 0 && isFunctionResponseTurn(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, gemini.Content{Role: "user", Parts: []gemini.Part{part}})

		default:
			contents = append(contents, gemini.Content{Role: "user", Parts: []gemini.Part{{Text: m.Content}}})
		}
	}
	return contents
}

func isFunctionResponseTurn(c gemini.Content) bool {
	return c.Role == "user" && len(c.Parts) > 0 && c.Parts[0].FunctionResponse != nil
}

func toTools(decls []domain.Declaration) []gemini.Tool {
	if len(decls) == 0 {
		return nil
	}
	fns := make([]gemini.FunctionDeclaration, len(decls))
	for i, d := range decls {
		fns[i] = gemini.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		}
	}
	return []gemini.Tool{{FunctionDeclarations: fns}}
}

// ParseResponse turns a generateContent reply into a fragment. All text parts
// of the first candidate are concatenated and every functionCall part becomes
// one function call.
func ParseResponse(resp *gemini.GenerateContentResponse) domain.Fragment {
	if len(resp.Candidates) == 0 {
		return domain.TextFragment("No response candidates.")
	}

	var text strings.Builder
	var calls []domain.FunctionCall
	for _, part := range resp.Candidates[0].Content.Parts {
		switch {
		case part.FunctionCall != nil:
			name := part.FunctionCall.Name
			if name == "" {
				name = "unknown"
			}
			args := part.FunctionCall.Args
			if len(args) == 0 || string(args) == "null" {
				args = json.RawMessage("{}")
			}
			calls = append(calls, domain.FunctionCall{Name: name, Arguments: args})
		case part.Text != "":
			text.WriteString(part.Text)
		}
	}

	frag := domain.Fragment{Text: text.String(), FunctionCalls: calls}
	if frag.IsEmpty() {
		return domain.TextFragment("Empty response.")
	}
	return frag
}
