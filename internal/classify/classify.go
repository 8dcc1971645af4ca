package classify

import (
	"context"
	"fmt"
	"strings"

	"parafile/internal/catalog"
)

// maxDocumentRunes bounds how much extracted text is sent to the model.
// Long documents are identifiable from their opening pages.
const maxDocumentRunes = 12000

const systemPrompt = `You are an expert file organization assistant. Your task is to analyze the text of a document and classify it into one of the user's custom categories based on their descriptions. Then, you must extract the values for the user's variables from the document text. Return your response as a single, minified JSON object with the keys "category" and "variables", where "variables" maps variable names to the values found in the document. Omit variables whose values cannot be determined. If no category is a good fit, use the category "General".`

// Result captures the model's classification of a document. Attempts counts
// the completion requests spent on it, including the successful one.
type Result struct {
	Category  string            `json:"category"`
	Variables map[string]string `json:"variables"`
	Attempts  int               `json:"-"`
}

// Classify sends the extracted document text to the model and returns the
// chosen category and variable values. A response naming a category that is
// not in the catalog is mapped to the fallback category, and variables the
// catalog does not declare are dropped.
func (c *Client) Classify(ctx context.Context, text string, cat *catalog.Catalog) (Result, error) {
	var empty Result
	if cat == nil {
		return empty, fmt.Errorf("classify: nil catalog")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return empty, fmt.Errorf("classify: document text required")
	}

	content, attempts, err := c.completeJSON(ctx, systemPrompt, buildUserPrompt(text, cat))
	if err != nil {
		return Result{Attempts: attempts}, err
	}

	var parsed Result
	if err := DecodeModelJSON(content, &parsed); err != nil {
		return Result{Attempts: attempts}, fmt.Errorf("classify: parse payload: %w", err)
	}

	result := normalizeResult(parsed, cat)
	result.Attempts = attempts
	return result, nil
}

func buildUserPrompt(text string, cat *catalog.Catalog) string {
	var b strings.Builder

	b.WriteString("Here are the user's categories and rules:\n\n---\n")
	for i, category := range cat.Categories() {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "# Category: %s\n# Description: %s\n# Naming Pattern: %s",
			category.Name, category.Description, category.NamingPattern)
	}
	b.WriteString("\n---\n\n")

	b.WriteString("Here are the user's variables and their meanings:\n\n---\n")
	for i, variable := range cat.Variables() {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "# Variable: %s\n# Description: %s", variable.Name, variable.Description)
	}
	b.WriteString("\n---\n\n")

	b.WriteString("Document Text:\n\"\"\"\n")
	b.WriteString(truncateRunes(text, maxDocumentRunes))
	b.WriteString("\n\"\"\"")

	return b.String()
}

func normalizeResult(parsed Result, cat *catalog.Catalog) Result {
	result := Result{Variables: make(map[string]string)}

	category, ok := cat.Lookup(strings.TrimSpace(parsed.Category))
	if !ok {
		category = cat.Fallback()
	}
	result.Category = category.Name

	declared := make(map[string]struct{})
	for _, variable := range cat.Variables() {
		declared[variable.Name] = struct{}{}
	}
	for name, value := range parsed.Variables {
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := declared[name]; ok {
			result.Variables[name] = value
		}
	}

	return result
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
