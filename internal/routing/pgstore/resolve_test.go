package pgstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToLikePattern(t *testing.T) {
	cases := map[string]string{
		"CH":   "CH",
		"*":    "%",
		"AA?":  "AA_",
		"A*B":  "A%B",
		"A_B":  `A\_B`,
		"A%B":  `A\%B`,
		"":     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, toLikePattern(in), "input %q", in)
	}
}
