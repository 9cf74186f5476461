package template

import "encoding/json"

// wireConstraints/wireTransform/wireSegment/wireTemplate mirror the JSON
// wire shape described in spec §6.2; they exist so Template's Go-native
// types (typed Format/TransformType enums, *int pointers for optional
// constraint bounds) can round-trip through plain JSON without a bespoke
// MarshalJSON/UnmarshalJSON pair on every exported type.
type wireConstraints struct {
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	MinItems  *int   `json:"minItems,omitempty"`
	MaxItems  *int   `json:"maxItems,omitempty"`
}

type wireTransform struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

type wireSegment struct {
	Key           string          `json:"key"`
	Title         string          `json:"title,omitempty"`
	Required      bool            `json:"required"`
	Repeatable    bool            `json:"repeatable"`
	Inputs        []string        `json:"inputs,omitempty"`
	Transform     wireTransform   `json:"transform"`
	Format        string          `json:"format"`
	Constraints   wireConstraints `json:"constraints,omitempty"`
	Relationships []string        `json:"relationships,omitempty"`
	Description   string          `json:"description,omitempty"`
}

type wireTemplate struct {
	ID          string         `json:"id"`
	Version     string         `json:"version"`
	Segments    []wireSegment  `json:"segments"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// DecodeTemplateJSON parses a template.json document into a Template,
// exposed so callers outside this package (the CLI's `template register`)
// can load a template file without reimplementing the wire-shape mapping.
func DecodeTemplateJSON(data []byte) (Template, error) {
	return decodeTemplate(data)
}

// EncodeTemplateJSON renders t as the template.json wire shape.
func EncodeTemplateJSON(t Template) ([]byte, error) {
	return encodeTemplate(t)
}

func encodeTemplate(t Template) ([]byte, error) {
	w := wireTemplate{
		ID:          t.ID,
		Version:     t.Version,
		Name:        t.Name,
		Description: t.Description,
		Metadata:    t.Metadata,
	}
	for _, s := range t.Segments {
		w.Segments = append(w.Segments, wireSegment{
			Key:        s.Key,
			Title:      s.Title,
			Required:   s.Required,
			Repeatable: s.Repeatable,
			Inputs:     s.Inputs,
			Transform: wireTransform{
				Type:   string(s.Transform.Type),
				Params: s.Transform.Params,
			},
			Format: string(s.Format),
			Constraints: wireConstraints{
				MinLength: s.Constraints.MinLength,
				MaxLength: s.Constraints.MaxLength,
				Pattern:   s.Constraints.Pattern,
				MinItems:  s.Constraints.MinItems,
				MaxItems:  s.Constraints.MaxItems,
			},
			Relationships: s.Relationships,
			Description:   s.Description,
		})
	}
	return json.MarshalIndent(w, "", "  ")
}

func decodeTemplate(data []byte) (Template, error) {
	var w wireTemplate
	if err := json.Unmarshal(data, &w); err != nil {
		return Template{}, err
	}
	t := Template{
		ID:          w.ID,
		Version:     w.Version,
		Name:        w.Name,
		Description: w.Description,
		Metadata:    w.Metadata,
	}
	for _, s := range w.Segments {
		t.Segments = append(t.Segments, Segment{
			Key:        s.Key,
			Title:      s.Title,
			Required:   s.Required,
			Repeatable: s.Repeatable,
			Inputs:     s.Inputs,
			Transform: Transform{
				Type:   TransformType(s.Transform.Type),
				Params: s.Transform.Params,
			},
			Format: Format(s.Format),
			Constraints: Constraints{
				MinLength: s.Constraints.MinLength,
				MaxLength: s.Constraints.MaxLength,
				Pattern:   s.Constraints.Pattern,
				MinItems:  s.Constraints.MinItems,
				MaxItems:  s.Constraints.MaxItems,
			},
			Relationships: s.Relationships,
			Description:   s.Description,
		})
	}
	return t, nil
}
