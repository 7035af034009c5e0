package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGolden_Scenarios(t *testing.T) {
	for _, name := range []string{"hello", "partition"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestMarshalTrace_Stable(t *testing.T) {
	trace := []TraceEvent{{Step: 0, Op: OpSubmit, Name: "a", BlockType: "BLOCKTYPEA", OK: true}}

	first, err := MarshalTrace("s", trace)
	require.NoError(t, err)
	second, err := MarshalTrace("s", trace)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, byte('\n'), first[len(first)-1])
}
