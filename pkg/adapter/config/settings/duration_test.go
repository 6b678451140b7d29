package settings_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/momeni/sqlmig/pkg/adapter/config/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ExampleDuration_MarshalText() {
	for _, d := range []time.Duration{
		0, 90 * time.Second, time.Hour, 2*time.Hour + 3*time.Minute,
	} {
		b, _ := settings.Duration(d).MarshalText()
		fmt.Println(string(b))
	}
	// Output:
	// 0s
	// 1m30s
	// 1h
	// 2h3m
}

func TestDurationUnmarshalText(t *testing.T) {
	var d settings.Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Std(0))
	assert.Error(t, d.UnmarshalText([]byte("-1s")), "negative duration")
	assert.Error(t, d.UnmarshalText([]byte("soon")))
	assert.Equal(t, 90*time.Second, d.Std(0), "d must be left intact")

	var nd *settings.Duration
	assert.Equal(t, time.Minute, nd.Std(time.Minute))
	assert.Equal(t, "nil-duration", nd.LogValue().String())
}

func TestDefault(t *testing.T) {
	var p *int
	settings.Default(&p, 3)
	require.NotNil(t, p)
	assert.Equal(t, 3, *p)
	settings.Default(&p, 4)
	assert.Equal(t, 3, *p, "existing value must not be replaced")
	assert.Equal(t, 3, settings.Deref(p))
	assert.False(t, settings.Deref[bool](nil))
}
