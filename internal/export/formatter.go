package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Formatter renders an export Result into one of the two output-artifact
// shapes spec §4.11/§6.4 describes: the legacy flat shape (formatter.py's
// SkillInputFormatter) or the template-layered envelope (template_filler.py's
// create_skill_input).
type Formatter struct{}

// FormatLegacy renders the original flat {source, pages, entities,
// dedup_report} shape (formatter.py SkillInputFormatter.format).
func (Formatter) FormatLegacy(result Result, source map[string]any) map[string]any {
	pages := make([]map[string]any, 0, len(result.Pages))
	for _, p := range result.Pages {
		entry := map[string]any{
			"title":        p.Title,
			"url":          p.URL,
			"content":      p.Content,
			"content_type": p.ContentType,
		}
		if p.Metadata != nil {
			entry["metadata"] = p.Metadata
		}
		if p.IsDuplicate {
			entry["is_duplicate"] = true
			entry["duplicate_of"] = p.DuplicateOf
		}
		pages = append(pages, entry)
	}

	entities := make([]map[string]any, 0, len(result.Entities))
	for _, e := range result.Entities {
		entry := map[string]any{
			"name":        e.Name,
			"type":        e.Type,
			"description": e.Description,
		}
		if len(e.Relationships) > 0 {
			entry["relationships"] = e.Relationships
		}
		if len(e.MergedFrom) > 0 {
			entry["merged_from"] = e.MergedFrom
		}
		entities = append(entities, entry)
	}

	return map[string]any{
		"source":       source,
		"pages":        pages,
		"entities":     entities,
		"dedup_report": dedupReportMap(result.DedupReport),
	}
}

func dedupReportMap(r DedupReport) map[string]any {
	return map[string]any{
		"original_entity_count":   r.OriginalEntityCount,
		"merged_entity_count":     r.MergedEntityCount,
		"entities_removed":        r.EntitiesRemoved,
		"merge_groups":            r.MergeGroups,
		"duplicate_content_count": r.DuplicateContentCount,
	}
}

// TemplateContent is whatever a template.Filler produced for this export
// (kept as an opaque map here since internal/export does not depend on
// internal/template's concrete types — callers pass in content.ToMap()).
type TemplateContent = map[string]any

// Generator identifies this implementation in a trace block's "generator"
// field (spec §6.4).
const Generator = "graphrag-skills"

// FormatTemplateLayered renders the template-aware envelope
// template_filler.py's create_skill_input builds: {template, content,
// source, trace}. generatedAt is the caller-supplied export timestamp;
// this method does not read the clock itself. trace carries every field spec §6.4
// requires: generated_at, generator, export_mode, and, when a template was
// used, template_id and template_version_used.
func (Formatter) FormatTemplateLayered(templateMeta map[string]any, content TemplateContent, source map[string]any, exportMode, templateVersionUsed, generatedAt string) map[string]any {
	if source == nil {
		source = map[string]any{}
	}
	trace := map[string]any{
		"generated_at": generatedAt,
		"generator":    Generator,
		"export_mode":  exportMode,
		"trace_id":     uuid.NewString(),
	}
	if templateVersionUsed != "" {
		trace["template_version_used"] = templateVersionUsed
	}
	if id, ok := templateMeta["id"]; ok {
		trace["template_id"] = id
	}
	return map[string]any{
		"template": templateMeta,
		"content":  content,
		"source":   source,
		"trace":    trace,
	}
}

// ValidateOutput dispatches on the presence of a "template"/"trace" key to
// decide which shape to validate (spec §4.11: "validate_output dispatches
// on template/trace presence"). The legacy path enforces formatter.py's
// validate_output checks; the template path enforces the minimal envelope
// shape FormatTemplateLayered produces.
func ValidateOutput(data map[string]any) error {
	_, hasTemplate := data["template"]
	_, hasTrace := data["trace"]
	if hasTemplate || hasTrace {
		return validateTemplateShape(data)
	}
	return validateLegacyShape(data)
}

func validateLegacyShape(data map[string]any) error {
	for _, key := range []string{"source", "pages", "entities"} {
		if _, ok := data[key]; !ok {
			return fmt.Errorf("export: missing required key %q", key)
		}
	}
	source, ok := data["source"].(map[string]any)
	if !ok {
		return fmt.Errorf("export: source must be an object")
	}
	if _, ok := source["type"]; !ok {
		return fmt.Errorf("export: source.type is required")
	}
	pages, ok := data["pages"].([]map[string]any)
	if ok {
		for i, p := range pages {
			if _, ok := p["content"]; !ok {
				return fmt.Errorf("export: pages[%d].content is required", i)
			}
		}
	}
	entities, ok := data["entities"].([]map[string]any)
	if ok {
		for i, e := range entities {
			if _, ok := e["name"]; !ok {
				return fmt.Errorf("export: entities[%d].name is required", i)
			}
		}
	}
	return nil
}

func validateTemplateShape(data map[string]any) error {
	for _, key := range []string{"template", "content", "source"} {
		if _, ok := data[key]; !ok {
			return fmt.Errorf("export: missing required key %q", key)
		}
	}
	templateMeta, ok := data["template"].(map[string]any)
	if !ok {
		return fmt.Errorf("export: template must be an object")
	}
	for _, key := range []string{"id", "version"} {
		if _, ok := templateMeta[key]; !ok {
			return fmt.Errorf("export: template.%s is required", key)
		}
	}
	return nil
}

// SaveToFile writes data as indented JSON to path (formatter.py's
// save_to_file).
func (Formatter) SaveToFile(data map[string]any, path string) error {
	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("export: marshal output: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return nil
}
