package agent

import (
	"fmt"
	"strings"

	"docuagent-be/pkg/memory"
)

const maxPromptMemories = 3

// enrichTask appends the most similar past turns to the raw question so the
// planner can classify with context.
func enrichTask(original string, memories []memory.Record) string {
	var b strings.Builder
	b.WriteString(original)
	wroteHeader := false
	for i, rec := range memories {
		if i == maxPromptMemories {
			break
		}
		if rec.Question == "" || rec.Answer == "" {
			continue
		}
		if !wroteHeader {
			b.WriteString("\n\nRelevant context from memories:")
			wroteHeader = true
		}
		fmt.Fprintf(&b, "\n%d. Q: %s\nA: %s", i+1, rec.Question, rec.Answer)
	}
	return b.String()
}

func classifyAgentPrompt(enrichedTask string) string {
	return fmt.Sprintf(`Task: %s

Available agents:
1. Document Agent - For analyzing documents, managing documents, etc.

Determine which agent is most appropriate for this task. If none is clearly appropriate, choose 'generate_answer'.

Return ONLY one of these values: 'document', or 'generate_answer'.`, enrichedTask)
}

func planPrompt(enrichedTask, nextStep string) string {
	return fmt.Sprintf(`Create a detailed plan for handling this task:

Task: %s

Selected agent: %s

Provide a step-by-step plan for how this agent should address the task.`, enrichedTask, nextStep)
}

func answerPrompt(question string, memories []memory.Record, plan string) string {
	var context strings.Builder
	wroteHeader := false
	for i, rec := range memories {
		if i == maxPromptMemories {
			break
		}
		if rec.Question == "" || rec.Answer == "" {
			continue
		}
		if !wroteHeader {
			context.WriteString("Based on previous interactions:\n")
			wroteHeader = true
		}
		fmt.Fprintf(&context, "%d. Question: %s\n   Answer: %s\n\n", i+1, rec.Question, rec.Answer)
	}

	return fmt.Sprintf(`You are an AI assistant. Please respond to the following question:

Question: %s

%s

%s

Provide a helpful, accurate, and concise response.`, question, context.String(), plan)
}

func classifyOperationPrompt(task string) string {
	return fmt.Sprintf("Based on this request: '%s', determine which operation the user wants to perform: create, update, assign, delete, analyze, fetch, search, or comment on a document. Return ONLY the operation name.", task)
}

func documentResponsePrompt(op Operation, task, payload string) string {
	return fmt.Sprintf("Generate a concise, helpful response about the %s operation for the document. The original request was: '%s'. The document data is: %s", op, task, payload)
}
