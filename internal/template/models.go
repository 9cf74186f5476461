// Package template implements the dynamic template engine used to export
// skill documents: a filesystem-backed template registry, a segment filler
// that maps raw content onto a template, a markdown embedder that
// round-trips template identity inside a generated document, and a
// migrator that diffs two template versions (spec §3.3, §4.7-§4.10).
package template

import "time"

// Format is the rendered output format for a segment.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatPlain    Format = "plain"
	FormatHTML     Format = "html"
)

// TransformType selects how a segment's raw input is reshaped before
// rendering (spec §3.3, §4.8).
type TransformType string

const (
	TransformListExtract TransformType = "list-extract"
	TransformSummarize   TransformType = "summarize"
	TransformConcatenate TransformType = "concatenate"
	TransformMap         TransformType = "map"
	TransformFilter      TransformType = "filter"
)

// Transform describes how to reshape a segment's raw input (spec §3.3).
type Transform struct {
	Type   TransformType
	Params map[string]any
}

// Constraints bound a segment's filled value (spec §4.8 Validation).
type Constraints struct {
	MinLength *int
	MaxLength *int
	Pattern   string
	MinItems  *int
	MaxItems  *int
}

// Segment is one slot in a Template (spec §3.3).
type Segment struct {
	Key           string
	Title         string
	Required      bool
	Repeatable    bool
	Inputs        []string
	Transform     Transform
	Format        Format
	Constraints   Constraints
	Relationships []string
	Description   string
}

// Template is a versioned, schema-validated skill export template
// (spec §3.3, §4.7). Identity = "{ID}@{Version}".
type Template struct {
	ID          string
	Version     string
	Segments    []Segment
	Name        string
	Description string
	Metadata    map[string]any
}

// Identifier returns "{id}@{version}" (spec §3.3).
func (t Template) Identifier() string {
	return t.ID + "@" + t.Version
}

// FillStatus is FilledContent's overall outcome (spec §3.3).
type FillStatus string

const (
	FillComplete FillStatus = "complete"
	FillPartial  FillStatus = "partial"
	FillFailed   FillStatus = "failed"
)

// SegmentValue is one rendered segment value (spec §3.3).
type SegmentValue struct {
	Value     any
	SourceRef string
	Metadata  map[string]any
}

// FilledContent is the result of running TemplateFiller over a template and
// raw content (spec §3.3, §4.8).
type FilledContent struct {
	Status          FillStatus
	Segments        map[string]any // SegmentValue or []SegmentValue
	MissingRequired []string
	Warnings        []string
	FilledAt        time.Time
}

// ValidationErrorKind classifies a ValidationError (spec §4.8 Validation).
type ValidationErrorKind string

const (
	ErrMissing             ValidationErrorKind = "missing"
	ErrUnknown             ValidationErrorKind = "unknown"
	ErrConstraintViolation ValidationErrorKind = "constraint_violation"
)

// ValidationError reports one problem found while validating FilledContent
// against a Template. Validation never short-circuits: all problems are
// collected (spec §4.8).
type ValidationError struct {
	Kind    ValidationErrorKind
	Segment string
	Message string
}

// TemplateInfo is the lightweight (id, version) pair list_templates
// returns for every readable template.json on disk (spec §4.7).
type TemplateInfo struct {
	ID      string
	Version string
}
