package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baselineOut = `goos: linux
goarch: amd64
pkg: github.com/MrEthical07/tenantauth
BenchmarkVerifySession-8   	  100000	      1000 ns/op	     200 B/op	       4 allocs/op
BenchmarkVerifySession-8   	  100000	      1100 ns/op	     200 B/op	       4 allocs/op
BenchmarkVerifySession-8   	  100000	      1200 ns/op	     200 B/op	       4 allocs/op
PASS
`

func TestParseCollectsSamplesPerUnit(t *testing.T) {
	got, err := parse(strings.NewReader(baselineOut))
	require.NoError(t, err)

	require.Contains(t, got, "BenchmarkVerifySession")
	assert.Equal(t, []float64{1000, 1100, 1200}, got["BenchmarkVerifySession"]["ns/op"])
	assert.Equal(t, []float64{4, 4, 4}, got["BenchmarkVerifySession"]["allocs/op"])
}

func TestTrimProcs(t *testing.T) {
	assert.Equal(t, "BenchmarkLogin", trimProcs("BenchmarkLogin-16"))
	assert.Equal(t, "BenchmarkLogin", trimProcs("BenchmarkLogin"))
	assert.Equal(t, "BenchmarkA-b", trimProcs("BenchmarkA-b"))
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, median(nil))
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))
}

func TestCompareFlagsRegression(t *testing.T) {
	tracked := map[string][]string{"BenchmarkVerifySession": {"ns/op"}}
	base := samples{"BenchmarkVerifySession": {"ns/op": {100, 100, 100}}}

	results, failures := compare(tracked, base, samples{"BenchmarkVerifySession": {"ns/op": {120}}}, 0.30)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.20, results[0].Delta, 1e-9)
	assert.Empty(t, failures)

	_, failures = compare(tracked, base, samples{"BenchmarkVerifySession": {"ns/op": {150}}}, 0.30)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "regressed")
}

func TestCompareReportsMissingSamples(t *testing.T) {
	tracked := map[string][]string{"BenchmarkVerifySession": {"ns/op"}}
	results, failures := compare(tracked, samples{}, samples{}, 0.30)
	assert.Empty(t, results)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "missing samples")
}
