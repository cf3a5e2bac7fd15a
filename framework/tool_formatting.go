package framework

import (
	"fmt"
	"strings"
)

// RenderToolsToPrompt lists the tools and how to call them with the
// `Name().run({...})` action syntax.
func RenderToolsToPrompt(tools []Tool) string {
	if len(tools) == 0 {
		return "No tools available."
	}
	var b strings.Builder
	for _, tool := range tools {
		b.WriteString(fmt.Sprintf("## %s\n", ClassName(tool.Name())))
		b.WriteString(fmt.Sprintf("%s\n", tool.Description()))
		b.WriteString("Arguments:\n")
		params := tool.Parameters()
		if len(params) == 0 {
			b.WriteString("  (No arguments)\n")
		} else {
			for _, param := range params {
				req := "optional"
				if param.Required {
					req = "required"
				}
				line := fmt.Sprintf("  - %s (%s, %s): %s", param.Name, param.Type, req, param.Description)
				if param.Default != nil {
					line += fmt.Sprintf(" [default: %v]", param.Default)
				}
				b.WriteString(line + "\n")
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("Call a tool inside <action> as: ToolName().run({\"arg\": \"value\"})\n")
	return b.String()
}

// ToolNames lists tool names for short prompts.
func ToolNames(tools []Tool) []string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name())
	}
	return names
}
