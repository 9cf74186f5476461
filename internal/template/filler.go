package template

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// bullet patterns tried in order for list-extract (spec §4.8). Only the
// first two are actually applied before falling back to the whole line —
// ported from the original's `patterns[:2]` slice, a narrower set than
// spec.md's looser three-pattern prose (documented as a deliberate
// deviation in DESIGN.md).
var listExtractPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[-•*]\s*(.+)$`),
	regexp.MustCompile(`^\d+[.)]\s*(.+)$`),
}

// Filler maps a raw content dict onto a Template, producing FilledContent
// (spec §4.8).
type Filler struct {
	// Strict elevates any Filler warning to a final status of "failed"
	// (spec §4.8 Strict mode).
	Strict bool
}

// SourceMetadata carries the file-level provenance used to build a
// SegmentValue's SourceRef (spec §4.8 step 5).
type SourceMetadata struct {
	File string
}

// Fill runs the per-segment algorithm in spec §4.8 over raw, in the
// template's declared segment order.
func (f Filler) Fill(t Template, raw map[string]any, source SourceMetadata) FilledContent {
	result := FilledContent{
		Segments: make(map[string]any),
		FilledAt: time.Now().UTC(),
	}

	for _, seg := range t.Segments {
		value, present := raw[seg.Key]
		if !present {
			if seg.Required {
				result.MissingRequired = append(result.MissingRequired, seg.Key)
				result.Warnings = append(result.Warnings, fmt.Sprintf("missing required segment %q", seg.Key))
			}
			continue
		}

		if seg.Repeatable {
			items := toList(value)
			values := make([]SegmentValue, 0, len(items))
			for i, item := range items {
				values = append(values, f.fillOne(seg, item, source, i))
			}
			result.Segments[seg.Key] = values
			continue
		}

		result.Segments[seg.Key] = f.fillOne(seg, value, source, -1)
	}

	result.Status = f.computeStatus(result)
	return result
}

func (f Filler) fillOne(seg Segment, raw any, source SourceMetadata, index int) SegmentValue {
	transformed := applyTransform(seg.Transform, raw)
	rendered := applyFormat(seg.Format, transformed)

	ref := source.File
	if index >= 0 {
		ref = fmt.Sprintf("%s#%d", source.File, index)
	}

	return SegmentValue{Value: rendered, SourceRef: ref}
}

func (f Filler) computeStatus(result FilledContent) FillStatus {
	hasWarnings := len(result.Warnings) > 0
	if f.Strict && hasWarnings {
		return FillFailed
	}
	if len(result.MissingRequired) > 0 {
		return FillPartial
	}
	if hasWarnings {
		return FillPartial
	}
	return FillComplete
}

func toList(value any) []any {
	if list, ok := value.([]any); ok {
		return list
	}
	return []any{value}
}

// applyTransform implements spec §4.8 step 3.
func applyTransform(tr Transform, raw any) any {
	switch tr.Type {
	case TransformListExtract:
		return listExtract(raw)
	case TransformConcatenate:
		return concatenate(raw, tr.Params)
	case TransformMap:
		return mapLookup(raw, tr.Params)
	case TransformFilter:
		return filterList(raw, tr.Params)
	case TransformSummarize:
		return raw // reserved: identity until an LLM step is plugged in.
	default:
		return raw // unknown types: identity (+ debug log at call sites that have a logger)
	}
}

func listExtract(raw any) []string {
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		matched := false
		for _, pattern := range listExtractPatterns {
			if m := pattern.FindStringSubmatch(line); m != nil {
				out = append(out, m[1])
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, line)
		}
	}
	return out
}

func concatenate(raw any, params map[string]any) string {
	sep := "\n"
	if s, ok := params["separator"].(string); ok {
		sep = s
	}
	items := toList(raw)
	strs := make([]string, len(items))
	for i, item := range items {
		strs[i] = fmt.Sprintf("%v", item)
	}
	return strings.Join(strs, sep)
}

func mapLookup(raw any, params map[string]any) any {
	mapping, ok := params["mapping"].(map[string]any)
	if !ok {
		return raw
	}
	key := fmt.Sprintf("%v", raw)
	if v, ok := mapping[key]; ok {
		return v
	}
	return raw // unknown keys pass through
}

func filterList(raw any, params map[string]any) []string {
	pattern, _ := params["pattern"].(string)
	re, err := regexp.Compile(pattern)
	items := toList(raw)
	var out []string
	for _, item := range items {
		s := fmt.Sprintf("%v", item)
		if err != nil || re.MatchString(s) {
			out = append(out, s)
		}
	}
	return out
}

// applyFormat implements spec §4.8 step 4.
func applyFormat(format Format, value any) any {
	switch format {
	case FormatMarkdown:
		if items, ok := value.([]string); ok {
			lines := make([]string, len(items))
			for i, item := range items {
				lines[i] = "- " + item
			}
			return strings.Join(lines, "\n")
		}
		return fmt.Sprintf("%v", value)
	case FormatPlain:
		if items, ok := value.([]string); ok {
			return strings.Join(items, "\n")
		}
		return fmt.Sprintf("%v", value)
	case FormatHTML:
		if items, ok := value.([]string); ok {
			var b strings.Builder
			b.WriteString("<ul>")
			for _, item := range items {
				b.WriteString("<li>" + item + "</li>")
			}
			b.WriteString("</ul>")
			return b.String()
		}
		return "<p>" + fmt.Sprintf("%v", value) + "</p>"
	case FormatJSON:
		return value
	default:
		return value
	}
}
