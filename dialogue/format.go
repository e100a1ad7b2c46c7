package dialogue

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"

	"github.com/Twynzen/dymensisCDA-sub002/entity"
	"github.com/Twynzen/dymensisCDA-sub002/types"
)

func formatMissingFieldsSection(fields []types.FieldInfo) string {
	if len(fields) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Missing fields:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Key", "Required", "Ask")
	for _, f := range fields {
		required := "no"
		if f.Required {
			required = "yes"
		}
		_ = table.Append(f.DisplayName, f.Key, required, f.Description)
	}
	_ = table.Render()
	return buf.String()
}

func formatValidationSection(v types.Validation) string {
	if len(v.Errors) == 0 && len(v.Warnings) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Validation:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Severity", "Message")
	for _, e := range v.Errors {
		_ = table.Append("error", e)
	}
	for _, w := range v.Warnings {
		_ = table.Append("warning", w)
	}
	_ = table.Render()
	return buf.String()
}

func formatCollectedSection(collected map[string]any) (string, error) {
	keys := make([]string, 0, len(collected))
	for k := range collected {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	// sonic does not sort map keys by default
	ordered := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		ordered = append(ordered, map[string]any{"field": k, "value": entity.RedactImages(collected[k])})
	}
	data, err := sonic.Marshal(ordered)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("# Collected fields JSON:\n```json\n%s\n```", data), nil
}

// FormatRequest renders the state of the flow as a prompt section.
func FormatRequest(req *Request) (string, error) {
	sections := []string{
		fmt.Sprintf("# Current Date:\n%s", time.Now().Format(time.RFC3339)),
		fmt.Sprintf("# Creating:\n%s", req.Target),
	}
	if req.PhaseID != "" {
		sections = append(sections, fmt.Sprintf("# Current Phase:\n%s (%s)", req.PhaseID, req.Phase))
	}
	sections = append(sections, fmt.Sprintf("# Completeness:\n%d%%", req.Completeness))

	collected, err := formatCollectedSection(req.Collected)
	if err != nil {
		return "", fmt.Errorf("format collected fields: %w", err)
	}
	sections = append(sections, collected)

	if schemaJSON, err := entity.JSONSchema(req.Target); err == nil {
		sections = append(sections, fmt.Sprintf("# Entity schema JSON:\n```json\n%s\n```", schemaJSON))
	}
	if s := formatMissingFieldsSection(req.MissingFields); s != "" {
		sections = append(sections, s)
	}
	if s := formatValidationSection(req.Validation); s != "" {
		sections = append(sections, s)
	}
	if req.FollowUp != "" {
		sections = append(sections, fmt.Sprintf("# Suggested question:\n%s", req.FollowUp))
	}
	if len(req.Suggestions) > 0 {
		sections = append(sections, fmt.Sprintf("# Example answers:\n- %s", strings.Join(req.Suggestions, "\n- ")))
	}
	return strings.Join(sections, "\n\n"), nil
}
