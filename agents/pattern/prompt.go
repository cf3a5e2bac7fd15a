package pattern

import (
	"fmt"
	"strings"
	"time"

	"github.com/lexcodex/reagent/framework"
)

// Environment describes where the agent runs; it is rendered into prompts.
type Environment struct {
	OperatingSystem string
	Workspace       string
	Language        string
	Now             func() time.Time
}

func (e Environment) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

const systemPromptTemplate = `You are a ReAct agent. Solve the task in the <question> by alternating between thinking and acting.

Every reply must contain a <thought> followed by exactly one of <action> or <final_answer>. Never both.
- <thought>: your reasoning about what to do next.
- <action>: a single tool call, written as ToolName().run({...}). Stop writing right after </action>.
- <final_answer>: the answer to the task once you are done.
- <reflection>: after the final answer on complex tasks (file changes, multi-step work), review and summarize what you did. Skip it for greetings and small talk.

After each action the system replies with an <observation> containing the tool result. Never write <observation> yourself.
Use absolute paths or paths relative to the working directory. Tools cannot touch files outside the working directory.
Prefer edit_file for partial changes instead of rewriting whole files.
When context usage passes 80%%, call SummarizeContextTool with what the task is, what is done and what comes next.

Example 1:
<question>Hello</question>
<thought>This is a greeting, no tools needed.</thought>
<final_answer>Hello! How can I help?</final_answer>

Example 2:
<question>Change x to y in a.txt</question>
<thought>I should read the file first.</thought>
<action>ReadFileTool().run({"path": "a.txt"})</action>
<observation>x = 1</observation>
<thought>The file contains x. I will replace it.</thought>
<action>EditFileTool().run({"path": "a.txt", "old_string": "x", "new_string": "y"})</action>
<observation>Replaced 1 occurrence in a.txt</observation>
<thought>Done.</thought>
<final_answer>a.txt now reads y = 1.</final_answer>
<reflection>Read the file before editing and replaced only the target text.</reflection>

# Tools
%s
# Environment
Operating system: %s
Working directory: %s
Current time: %s
%s`

// BuildSystemPrompt renders the loop's system message.
func BuildSystemPrompt(tools []framework.Tool, env Environment) string {
	lang := ""
	if strings.TrimSpace(env.Language) != "" {
		lang = fmt.Sprintf("Reply to the user in %s.\n", env.Language)
	}
	return fmt.Sprintf(systemPromptTemplate,
		framework.RenderToolsToPrompt(tools),
		env.OperatingSystem,
		env.Workspace,
		env.now().Format("2006-01-02 15:04:05"),
		lang,
	)
}

const planningSystemPrompt = `You are a task planner. Break the user's task into a short ordered list of concrete steps that a tool-using agent can execute.

Available tools: %s

Reply with JSON only, in this format:
{"steps": [{"step_number": 1, "description": "what to do", "expected_tools": ["tool_name"]}]}

Keep the plan to at most %d steps. Merge trivial steps.`

func buildPlanningMessages(task string, toolNames []string, maxSteps int, env Environment) []framework.Message {
	tools := strings.Join(toolNames, ", ")
	if tools == "" {
		tools = "none"
	}
	user := fmt.Sprintf("Task: %s\nOperating system: %s\nWorking directory: %s\nCurrent time: %s",
		task, env.OperatingSystem, env.Workspace, env.now().Format("2006-01-02 15:04:05"))
	return []framework.Message{
		{Role: framework.RoleSystem, Content: fmt.Sprintf(planningSystemPrompt, tools, maxSteps)},
		{Role: framework.RoleUser, Content: user},
	}
}
