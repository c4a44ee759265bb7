//go:build property

package content

import (
	"context"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/toolinger/toolinger/internal/errors"
)

var separators = []string{"/", `\`, "..", "\x00"}

func TestLocatorProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("names with a separator or dot-dot are rejected without fs access", prop.ForAll(
		func(prefix, sep, suffix string) bool {
			cfs := &countingFS{FS: testFS()}
			_, err := NewLocator(cfs).Locate(context.Background(), prefix+sep+suffix)
			return errors.IsValidation(err) && cfs.opens.Load() == 0
		},
		gen.AlphaString(),
		gen.IntRange(0, len(separators)-1).Map(func(i int) string { return separators[i] }),
		gen.AlphaString(),
	))

	properties.Property("plain names are never rejected as invalid", prop.ForAll(
		func(name string) bool {
			if name == "" || strings.Contains(name, "..") {
				return true
			}
			_, err := NewLocator(testFS()).Locate(context.Background(), name+".html")
			return !errors.IsValidation(err)
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
