package catalog

import (
	"fmt"
	"strings"
)

const (
	// GeneralCategory is the reserved fallback destination. It is always
	// available even when the configuration does not declare it.
	GeneralCategory = "General"
	// OriginalNameVariable resolves to the source filename without extension.
	OriginalNameVariable = "original_name"
	// GeneralPattern is the naming pattern used by the implicit General category.
	GeneralPattern = "{original_name}"
)

// Category describes one destination folder with its naming rule. The
// description is not interpreted here; it is passed through to the classifier.
type Category struct {
	Name          string
	Description   string
	NamingPattern string
}

// Variable describes one extractable placeholder available to naming patterns.
type Variable struct {
	Name        string
	Description string
}

// Catalog is an immutable snapshot of the declared categories and variables,
// taken once per monitoring session.
type Catalog struct {
	categories []Category
	variables  []Variable
	byName     map[string]Category
}

// New validates the declared categories and variables and returns a snapshot.
// The reserved General category and the original_name variable are appended
// when missing. Validation failures abort the session before any file is
// processed.
func New(categories []Category, variables []Variable) (*Catalog, error) {
	cats := make([]Category, 0, len(categories)+1)
	for _, cat := range categories {
		cat.Name = strings.TrimSpace(cat.Name)
		cat.NamingPattern = strings.TrimSpace(cat.NamingPattern)
		if cat.Name == "" {
			return nil, fmt.Errorf("category with empty name")
		}
		cats = append(cats, cat)
	}

	vars := make([]Variable, 0, len(variables)+1)
	varNames := make(map[string]struct{}, len(variables)+1)
	for _, v := range variables {
		v.Name = strings.TrimSpace(v.Name)
		if v.Name == "" {
			return nil, fmt.Errorf("variable with empty name")
		}
		if _, dup := varNames[v.Name]; dup {
			return nil, fmt.Errorf("duplicate variable %q", v.Name)
		}
		varNames[v.Name] = struct{}{}
		vars = append(vars, v)
	}
	if _, ok := varNames[OriginalNameVariable]; !ok {
		vars = append(vars, Variable{
			Name:        OriginalNameVariable,
			Description: "The original filename without extension.",
		})
		varNames[OriginalNameVariable] = struct{}{}
	}

	byName := make(map[string]Category, len(cats)+1)
	for _, cat := range cats {
		if _, dup := byName[cat.Name]; dup {
			return nil, fmt.Errorf("duplicate category %q", cat.Name)
		}
		tokens, err := PatternTokens(cat.NamingPattern)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", cat.Name, err)
		}
		if len(tokens) == 0 && cat.NamingPattern == "" {
			return nil, fmt.Errorf("category %q: empty naming pattern", cat.Name)
		}
		for _, token := range tokens {
			if _, ok := varNames[token]; !ok {
				return nil, fmt.Errorf("category %q: pattern references undeclared variable %q", cat.Name, token)
			}
		}
		byName[cat.Name] = cat
	}

	if _, ok := byName[GeneralCategory]; !ok {
		general := Category{
			Name:          GeneralCategory,
			Description:   "Default category when no other rules match.",
			NamingPattern: GeneralPattern,
		}
		cats = append(cats, general)
		byName[GeneralCategory] = general
	}

	return &Catalog{categories: cats, variables: vars, byName: byName}, nil
}

// Categories returns the declared categories in configuration order.
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Variables returns the declared variables in configuration order.
func (c *Catalog) Variables() []Variable {
	out := make([]Variable, len(c.variables))
	copy(out, c.variables)
	return out
}

// Lookup returns the category with the given name.
func (c *Catalog) Lookup(name string) (Category, bool) {
	cat, ok := c.byName[strings.TrimSpace(name)]
	return cat, ok
}

// Fallback returns the reserved General category.
func (c *Catalog) Fallback() Category {
	return c.byName[GeneralCategory]
}

// PatternTokens extracts the `{token}` names referenced by a naming pattern.
// Unbalanced or empty braces are reported as errors.
func PatternTokens(pattern string) ([]string, error) {
	var tokens []string
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '{':
			end := strings.IndexByte(pattern[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated placeholder in pattern %q", pattern)
			}
			token := strings.TrimSpace(pattern[i+1 : i+1+end])
			if token == "" {
				return nil, fmt.Errorf("empty placeholder in pattern %q", pattern)
			}
			tokens = append(tokens, token)
			i += end + 1
		case '}':
			return nil, fmt.Errorf("unmatched '}' in pattern %q", pattern)
		}
	}
	return tokens, nil
}
