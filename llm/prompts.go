package llm

import "fmt"

func getCodeSystemPrompt() string {
	return `You are an expert React developer. You write complete, self-contained single-file React applications.

Rules:
1. Respond with a single file that default-exports a component named App.
2. Use functional components and hooks. Style with Tailwind CSS utility classes.
3. Do not import anything except React and its hooks.
4. Do not explain the code. Respond with code only.
5. When previous code is provided, return the full updated file, not a diff.`
}

func getIdeaSystemPrompt() string {
	return `You suggest ideas for small web applications that can be built as a single React component.`
}

func getIdeaPrompt() string {
	return `Suggest one original idea for a small, interactive web app. Describe it in two or three sentences covering what it does and its main features.

Respond with the description only, with no title, preamble or Markdown.`
}

func getRefinePromptSystemPrompt() string {
	return `You improve prompts that describe web applications so a code generator can build them in one pass.`
}

func getRefinePrompt(prompt string) string {
	return fmt.Sprintf(`Rewrite the following app description into a clear, specific prompt for generating a single-file React app:

"%s"

Keep the user's intent. Add the concrete features, layout and interactions the app needs. Keep it under 150 words.

Respond with the improved prompt only, with no preamble or Markdown.`, prompt)
}
