package graphstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAlreadyExistsErrMatchesKnownDgraphClashMessages(t *testing.T) {
	cases := []string{
		"rpc error: predicate already exists",
		"Predicate Already Defined with different type",
		"duplicate schema definition",
	}
	for _, msg := range cases {
		assert.True(t, IsAlreadyExistsErr(errors.New(msg)), "msg=%q", msg)
	}
}

func TestIsAlreadyExistsErrFalseForUnrelatedErrors(t *testing.T) {
	assert.False(t, IsAlreadyExistsErr(errors.New("connection refused")))
	assert.False(t, IsAlreadyExistsErr(nil))
}
