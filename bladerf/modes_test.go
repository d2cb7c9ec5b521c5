package bladerf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLoopbackRoundTrip(t *testing.T) {
	for mode, name := range loopbackNames {
		parsed, err := ParseLoopback(name)
		require.NoError(t, err, name)
		assert.Equal(t, mode, parsed)
		assert.Equal(t, name, parsed.String())
	}
}

func TestParseLoopbackUnknown(t *testing.T) {
	_, err := ParseLoopback("bb_sideways")
	var unknown *UnknownModeError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "loopback", unknown.Kind)
	assert.Equal(t, "bb_sideways", unknown.Value)
}

func TestParseRxMux(t *testing.T) {
	cases := map[string]RxMux{
		"baseband": RxMuxBaseband,
		"12bit":    RxMux12BitCounter,
		"32bit":    RxMux32BitCounter,
		"digital":  RxMuxDigitalLoopback,
	}
	for name, want := range cases {
		got, err := ParseRxMux(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}

	_, err := ParseRxMux("sideband")
	assert.Error(t, err)
}

func TestParseSampling(t *testing.T) {
	got, err := ParseSampling("external")
	require.NoError(t, err)
	assert.Equal(t, SamplingExternal, got)

	got, err = ParseSampling("bogus")
	assert.Error(t, err)
	assert.Equal(t, SamplingInternal, got)
}

func TestParseCorrectionMode(t *testing.T) {
	for mode, name := range correctionModeNames {
		parsed, err := ParseCorrectionMode(name)
		require.NoError(t, err, name)
		assert.Equal(t, mode, parsed)
		assert.Equal(t, name, parsed.String())
	}

	_, err := ParseCorrectionMode("adaptive")
	var unknown *UnknownModeError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "correction", unknown.Kind)
}

func TestParseGainMode(t *testing.T) {
	got, err := ParseGainMode("slow_attack")
	require.NoError(t, err)
	assert.Equal(t, GainModeSlowAttack, got)

	_, err = ParseGainMode("instant_attack")
	var unknown *UnknownModeError
	require.True(t, errors.As(err, &unknown))
}

func TestParseBiasTee(t *testing.T) {
	for _, on := range []string{"on", "1", "rx", "true"} {
		assert.True(t, ParseBiasTee(on), on)
	}
	for _, off := range []string{"off", "0", "", "maybe"} {
		assert.False(t, ParseBiasTee(off), off)
	}
}
