package llmtool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// PromptField describes a single output field in a simple schema.
type PromptField struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// PromptExample captures an optional input/output example.
type PromptExample struct {
	InputJSON  string
	OutputJSON string
}

// Section is a caller-defined block rendered between the background and the
// output schema, e.g. BUSINESS_CONTEXT or CANDIDATES.
type Section struct {
	Title string
	Body  string
}

// StructuredPromptSpec defines the sections for a structured prompt.
type StructuredPromptSpec struct {
	Purpose      string
	Background   string
	Sections     []Section
	OutputFields []PromptField
	Constraints  []string
	Rules        []string
	Assumptions  []string
	OutputFormat string
	Examples     []PromptExample
}

// Render produces the prompt text. Sections with an empty body are omitted;
// the order is fixed so the same spec always renders the same bytes.
func Render(spec StructuredPromptSpec) (string, error) {
	if strings.TrimSpace(spec.Purpose) == "" {
		return "", fmt.Errorf("llmtool: purpose is empty")
	}
	if len(spec.OutputFields) == 0 && strings.TrimSpace(spec.OutputFormat) == "" {
		return "", fmt.Errorf("llmtool: output fields are empty")
	}

	var buf bytes.Buffer
	writeSection(&buf, "PURPOSE", spec.Purpose)
	writeSection(&buf, "BACKGROUND", spec.Background)
	for _, s := range spec.Sections {
		title := sectionTitle(s.Title)
		if title == "" {
			continue
		}
		writeSection(&buf, title, s.Body)
	}
	writeSection(&buf, "OUTPUT", FormatFields(spec.OutputFields))
	writeSection(&buf, "CONSTRAINTS", FormatList(spec.Constraints))
	writeSection(&buf, "RULES", FormatList(spec.Rules))
	writeSection(&buf, "ASSUMPTIONS", FormatList(spec.Assumptions))
	writeSection(&buf, "OUTPUT_FORMAT", spec.OutputFormat)
	if len(spec.Examples) > 0 {
		writeSection(&buf, "EXAMPLES", formatExamples(spec.Examples))
	}
	return strings.TrimSpace(buf.String()) + "\n", nil
}

// SectionBody returns the body of the [title] block in a rendered prompt,
// or "" when absent.
func SectionBody(prompt, title string) string {
	marker := "[" + sectionTitle(title) + "]\n"
	i := strings.Index(prompt, marker)
	if i < 0 {
		return ""
	}
	rest := prompt[i+len(marker):]
	if j := strings.Index(rest, "\n\n["); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

// FormatJSON renders v as indented JSON without HTML escaping.
func FormatJSON(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// FormatFields renders "- name (type, required): description" lines.
func FormatFields(fields []PromptField) string {
	if len(fields) == 0 {
		return ""
	}
	var buf strings.Builder
	for _, f := range fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			continue
		}
		req := "optional"
		if f.Required {
			req = "required"
		}
		if f.Description != "" {
			fmt.Fprintf(&buf, "- %s (%s, %s): %s\n", name, f.Type, req, f.Description)
		} else {
			fmt.Fprintf(&buf, "- %s (%s, %s)\n", name, f.Type, req)
		}
	}
	return strings.TrimRight(buf.String(), "\n")
}

// FormatList renders "- item" lines, skipping blanks.
func FormatList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	var buf strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fmt.Fprintf(&buf, "- %s\n", item)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// FormatNumbered renders "1. item" lines, skipping blanks.
func FormatNumbered(items []string) string {
	var buf strings.Builder
	n := 0
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		n++
		fmt.Fprintf(&buf, "%d. %s\n", n, item)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func formatExamples(examples []PromptExample) string {
	var buf strings.Builder
	for i, ex := range examples {
		fmt.Fprintf(&buf, "Example %d:\n", i+1)
		if strings.TrimSpace(ex.InputJSON) != "" {
			buf.WriteString("INPUT:\n")
			buf.WriteString(strings.TrimRight(ex.InputJSON, "\n"))
			buf.WriteString("\n")
		}
		if strings.TrimSpace(ex.OutputJSON) != "" {
			buf.WriteString("OUTPUT:\n")
			buf.WriteString(strings.TrimRight(ex.OutputJSON, "\n"))
			buf.WriteString("\n")
		}
		buf.WriteString("\n")
	}
	return strings.TrimRight(buf.String(), "\n")
}

func sectionTitle(t string) string {
	t = strings.ToUpper(strings.TrimSpace(t))
	return strings.ReplaceAll(t, " ", "_")
}

func writeSection(buf *bytes.Buffer, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	buf.WriteString("[")
	buf.WriteString(title)
	buf.WriteString("]\n")
	buf.WriteString(strings.TrimRight(body, "\n"))
	buf.WriteString("\n\n")
}
