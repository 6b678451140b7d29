package model_test

import (
	"fmt"
	"slices"
	"testing"

	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ExampleVersion_Compare() {
	vs := []*model.Version{
		model.MustParseVersion("1.10"),
		nil,
		model.MustParseVersion("1.2"),
		model.LatestVersion,
		model.MustParseVersion("1_1"),
		model.EmptyVersion,
	}
	slices.SortFunc(vs, (*model.Version).Compare)
	for _, v := range vs {
		fmt.Printf("%q\n", v)
	}
	// Output:
	// "<< Empty Schema >>"
	// "1.1"
	// "1.2"
	// "1.10"
	// "<< Latest Version >>"
	// ""
}

func TestParseVersion(t *testing.T) {
	for s, exp := range map[string]*model.Version{
		"":        model.LatestVersion,
		"latest":  model.LatestVersion,
		"Current": model.CurrentVersion,
		" next ":  model.NextVersion,
	} {
		v, err := model.ParseVersion(s)
		require.NoError(t, err, "parsing %q", s)
		assert.Same(t, exp, v, "parsing %q", s)
		assert.True(t, v.IsSentinel())
	}
	for _, s := range []string{"1.", ".1", "1..2", "1.a", "-1", "1__2"} {
		_, err := model.ParseVersion(s)
		assert.Error(t, err, "parsing %q", s)
	}
	v := model.MustParseVersion("2_0_10")
	assert.Equal(t, "2.0.10", v.String())
	assert.False(t, v.IsSentinel())
	assert.Panics(t, func() { model.MustParseVersion("x") })
}

func TestVersionCompare(t *testing.T) {
	one := model.MustParseVersion("1")
	assert.True(t, one.Equal(model.MustParseVersion("1.0.0")))
	assert.True(t, model.MustParseVersion("1.0.1").IsNewerThan(one))
	assert.False(t, one.IsNewerThan(one))
	assert.Equal(t, 1, model.CurrentVersion.Compare(one))
	assert.Equal(t, 0, model.NextVersion.Compare(model.LatestVersion))
	assert.Equal(t, -1, model.EmptyVersion.Compare(model.MustParseVersion("0")))
	var repeatable *model.Version
	assert.Equal(t, 1, repeatable.Compare(model.LatestVersion))
	assert.True(t, repeatable.Equal(nil))
}

func TestVersionText(t *testing.T) {
	v := &model.Version{}
	require.NoError(t, v.UnmarshalText([]byte("3.1")))
	b, err := v.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "3.1", string(b))
	assert.Error(t, v.UnmarshalText([]byte("3.x")))
	assert.Equal(t, "3.1", v.String(), "failed parsing must keep v")
}

func TestSemVer(t *testing.T) {
	var sv model.SemVer
	require.NoError(t, sv.UnmarshalText([]byte("1.2")))
	assert.Equal(t, model.SemVer{1, 2, 0}, sv)
	assert.Equal(t, "1.2.0", sv.String())
	assert.Error(t, sv.UnmarshalText([]byte("1.2.3.4")))
	assert.Error(t, sv.UnmarshalText([]byte("1.b")))
	assert.Equal(t, model.SemVer{1, 2, 0}, sv)
}
