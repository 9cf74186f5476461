package template

import (
	"fmt"
	"regexp"
)

// Validate checks content against t, collecting every problem rather than
// short-circuiting on the first (spec §4.8 Validation).
func Validate(content FilledContent, t Template) []ValidationError {
	var errs []ValidationError

	known := make(map[string]Segment, len(t.Segments))
	for _, seg := range t.Segments {
		known[seg.Key] = seg
		if seg.Required {
			if _, ok := content.Segments[seg.Key]; !ok {
				errs = append(errs, ValidationError{Kind: ErrMissing, Segment: seg.Key, Message: "required segment absent"})
				continue
			}
		}
		if value, ok := content.Segments[seg.Key]; ok {
			errs = append(errs, validateConstraints(seg, value)...)
		}
	}

	for key := range content.Segments {
		if _, ok := known[key]; !ok {
			errs = append(errs, ValidationError{Kind: ErrUnknown, Segment: key, Message: "filled segment not defined in template"})
		}
	}

	return errs
}

func validateConstraints(seg Segment, value any) []ValidationError {
	var errs []ValidationError
	switch v := value.(type) {
	case SegmentValue:
		errs = append(errs, validateOneValue(seg, v)...)
	case []SegmentValue:
		if seg.Constraints.MinItems != nil && len(v) < *seg.Constraints.MinItems {
			errs = append(errs, ValidationError{Kind: ErrConstraintViolation, Segment: seg.Key, Message: "fewer items than minItems"})
		}
		if seg.Constraints.MaxItems != nil && len(v) > *seg.Constraints.MaxItems {
			errs = append(errs, ValidationError{Kind: ErrConstraintViolation, Segment: seg.Key, Message: "more items than maxItems"})
		}
		for _, sv := range v {
			errs = append(errs, validateOneValue(seg, sv)...)
		}
	}
	return errs
}

func validateOneValue(seg Segment, sv SegmentValue) []ValidationError {
	s, ok := sv.Value.(string)
	if !ok {
		return nil
	}
	var errs []ValidationError
	c := seg.Constraints
	if c.MinLength != nil && len(s) < *c.MinLength {
		errs = append(errs, ValidationError{Kind: ErrConstraintViolation, Segment: seg.Key, Message: fmt.Sprintf("shorter than minLength %d", *c.MinLength)})
	}
	if c.MaxLength != nil && len(s) > *c.MaxLength {
		errs = append(errs, ValidationError{Kind: ErrConstraintViolation, Segment: seg.Key, Message: fmt.Sprintf("longer than maxLength %d", *c.MaxLength)})
	}
	if c.Pattern != "" {
		if re, err := regexp.Compile(c.Pattern); err == nil && !re.MatchString(s) {
			errs = append(errs, ValidationError{Kind: ErrConstraintViolation, Segment: seg.Key, Message: "does not match pattern"})
		}
	}
	return errs
}
