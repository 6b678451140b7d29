package model_test

import (
	"strings"
	"testing"
	"time"

	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/stretchr/testify/assert"
)

func TestMigrationPattern(t *testing.T) {
	v := model.MustParseVersion("1.2")
	cases := []struct {
		pattern     model.MigrationPattern
		version     *model.Version
		description string
		matches     bool
	}{
		{"1.2", v, "", true},
		{"1_2", v, "", true},
		{"1.2.0", v, "", true},
		{"1.3", v, "", false},
		{"latest", v, "", false},
		{"add_users", nil, "add users", true},
		{"add users", nil, "add users", true},
		{"add_users", nil, "add posts", false},
		{"1.2", nil, "1.2", true},
	}
	for _, tc := range cases {
		assert.Equal(
			t, tc.matches, tc.pattern.Matches(tc.version, tc.description),
			"pattern %q", tc.pattern,
		)
	}
	ps := []model.MigrationPattern{"2", "views"}
	assert.True(t, model.MatchesAny(ps, nil, "views"))
	assert.False(t, model.MatchesAny(ps, v, "views"))
	assert.False(t, model.MatchesAny(nil, v, ""))
}

func TestChecksumMatches(t *testing.T) {
	c1, c2 := int32(1), int32(1)
	rm := &model.ResolvedMigration{Checksum: &c1}
	assert.True(t, rm.ChecksumMatches(&c2))
	assert.False(t, rm.ChecksumMatches(nil))
	c2 = 2
	assert.False(t, rm.ChecksumMatches(&c2))
	rm.Checksum = nil
	assert.True(t, rm.ChecksumMatches(nil))
	assert.True(t, rm.IsRepeatable())
}

func TestAbbreviations(t *testing.T) {
	long := strings.Repeat("d", 250)
	d := model.AbbreviateDescription(long)
	assert.Len(t, d, 200)
	assert.True(t, strings.HasSuffix(d, "..."))
	assert.True(t, model.DescriptionMatches(d, long))
	assert.True(t, model.DescriptionMatches(model.NoDescription, ""))
	assert.False(t, model.DescriptionMatches("a", "b"))

	s := model.AbbreviateScript(strings.Repeat("x", 1000) + "V1__a.sql")
	assert.Len(t, s, 1000)
	assert.True(t, strings.HasSuffix(s, "V1__a.sql"))
	assert.Equal(t, "V1__a.sql", model.AbbreviateScript("V1__a.sql"))
}

func TestMigrationTypes(t *testing.T) {
	assert.False(t, model.TypeSQL.IsSynthetic())
	for _, mt := range []model.MigrationType{
		model.TypeBaseline, model.TypeSchema, model.TypeDelete,
	} {
		assert.True(t, mt.IsSynthetic(), "%s", mt)
	}
	assert.True(t, model.TypeBaseline.IsBaseline())
}

func TestMigrationStates(t *testing.T) {
	assert.Equal(t, "Above Target", model.StateAboveTarget.String())
	assert.True(t, model.StateMissingFailed.IsFailed())
	assert.False(t, model.StateMissingFailed.IsResolved())
	assert.True(t, model.StateOutOfOrder.IsApplied())
	assert.False(t, model.StatePending.IsApplied())
	b, err := model.StateFutureSuccess.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "Future", string(b))
	assert.Equal(t, "MigrationState(99)", model.MigrationState(99).String())
}

func TestSummarize(t *testing.T) {
	c := int32(7)
	on := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	mi := &model.MigrationInfo{
		Resolved: &model.ResolvedMigration{
			Version:     model.MustParseVersion("2"),
			Description: "add users",
			Checksum:    &c,
			Type:        model.TypeSQL,
			Script:      "V2__add_users.sql",
		},
		Applied: &model.AppliedMigration{
			InstalledRank: 3,
			Version:       model.MustParseVersion("2"),
			Description:   "add users",
			Type:          model.TypeSQL,
			Script:        "V2__add_users.sql",
			Checksum:      &c,
			InstalledOn:   on,
			InstalledBy:   "ci",
			ExecutionTime: 1500 * time.Millisecond,
			Success:       true,
		},
		State: model.StateSuccess,
	}
	s := mi.Summarize()
	assert.Equal(t, "Versioned", s.Category)
	assert.Equal(t, "2", s.Version.String())
	assert.Equal(t, 3, s.InstalledRank)
	assert.Equal(t, "ci", s.InstalledBy)
	assert.Equal(t, on, *s.InstalledOn)
	assert.Equal(t, int64(1500), s.ExecutionTime)

	mi.Resolved.Version, mi.Applied = nil, nil
	mi.State = model.StatePending
	s = mi.Summarize()
	assert.Equal(t, "Repeatable", s.Category)
	assert.Nil(t, s.InstalledOn)

	mi = &model.MigrationInfo{
		Applied: &model.AppliedMigration{
			Version: model.MustParseVersion("1"),
			Type:    model.TypeBaseline,
		},
		State: model.StateBaseline,
	}
	assert.Equal(t, "", mi.Summarize().Category)
}
