package temporalkg

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var sanitizedShape = regexp.MustCompile(`^[A-Za-z0-9_\x{4e00}-\x{9fa5}]+$`)

func TestSanitizeLabelShape(t *testing.T) {
	cases := []string{
		"Person", "some weird label!!", "  leading and trailing  ",
		"multi___underscore", "混合 label 中文", "", "___",
	}
	for _, raw := range cases {
		got := SanitizeLabel(raw, "Fallback")
		assert.Regexp(t, sanitizedShape, got, "raw=%q", raw)
		assert.NotContains(t, got, "__", "collapsed underscores must not recur, raw=%q", raw)
	}
}

func TestSanitizeLabelFallsBackWhenEmptyAfterSanitize(t *testing.T) {
	assert.Equal(t, "Entity", SanitizeEntityLabel("!!!"))
	assert.Equal(t, "RELATED", SanitizeRelationshipType("###"))
}

func TestSanitizeLabelPreservesCJK(t *testing.T) {
	assert.Equal(t, "中文", SanitizeLabel("中文", "Entity"))
}

func TestSanitizeLabelCollapsesRuns(t *testing.T) {
	assert.Equal(t, "a_b_c", SanitizeLabel("a   b---c", "Entity"))
}
