package ai

import "strings"

const summarizePrompt = `You summarize conversations between a home improvement contractor and a customer.
Write a concise summary in plain sentences. Include the work requested, materials mentioned,
budget or timing constraints, and any follow-up actions. Do not invent details.`

// BuildCategoryPrompt asks the model to answer with exactly one category name.
func BuildCategoryPrompt(categories []string) string {
	var b strings.Builder
	b.WriteString("Classify the project discussed in the transcript into exactly one of these categories:\n")
	for _, c := range categories {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	b.WriteString("Answer with the category name only.")
	return b.String()
}
