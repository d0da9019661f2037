//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"unimatch/internal/catalog"
	"unimatch/internal/subject"
	"unimatch/pkg/platform/sentinel"
	"unimatch/pkg/testutil/containers"
)

type SourceSuite struct {
	suite.Suite
	pg *containers.PostgresContainer
}

func TestSourceSuite(t *testing.T) {
	suite.Run(t, new(SourceSuite))
}

func (s *SourceSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(New(s.pg.Pool).EnsureSchema(context.Background()))
}

func (s *SourceSuite) SetupTest() {
	s.pg.Exec(s.T(), "TRUNCATE catalog_versions CASCADE")
}

func snapshot(version string) catalog.Snapshot {
	return catalog.Snapshot{
		Version: version,
		Institutions: []catalog.Institution{
			{ID: "1", DisplayName: "University of Cape Town", ShortCode: "UCT"},
			{ID: "2", DisplayName: "University of the Western Cape", ShortCode: "UWC"},
		},
		Rules: []catalog.Rule{
			{
				ProgramName:           "BSc",
				Category:              "Science",
				DurationLabel:         "3 years",
				MinimumAggregateScore: 32,
				RequiredSubjects: []catalog.RequiredSubject{
					{Name: "Mathematics", MinimumLevel: 5, Mandatory: true},
					{Name: "Physical Sciences", MinimumLevel: 4, Mandatory: false},
				},
				Availability: catalog.ExcludeList("UWC"),
			},
			{ProgramName: "BA", Category: "Humanities", MinimumAggregateScore: 26, Availability: catalog.Universal()},
		},
		Subjects: []subject.Definition{
			{Name: "Mathematics", Aliases: []string{"Maths"}},
			{Name: "Life Orientation", NonContributing: true, Mandatory: true},
		},
	}
}

func (s *SourceSuite) TestEnsureSchemaIsIdempotent() {
	s.NoError(New(s.pg.Pool).EnsureSchema(context.Background()))
}

func (s *SourceSuite) TestFetchWithoutVersions() {
	_, err := New(s.pg.Pool).Fetch(context.Background())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *SourceSuite) TestPublishAndFetch() {
	ctx := context.Background()
	src := New(s.pg.Pool)
	s.Require().NoError(src.Publish(ctx, snapshot("v1")))

	got, err := src.Fetch(ctx)
	s.Require().NoError(err)

	want := snapshot("v1")
	s.Equal(want.Version, got.Version)
	s.Equal(want.Institutions, got.Institutions)
	s.Require().Len(got.Rules, 2)
	s.Equal(want.Rules[0], got.Rules[0])
	s.Equal(catalog.Universal(), got.Rules[1].Availability)
	s.Empty(got.Rules[1].RequiredSubjects)

	s.Require().Len(got.Subjects, 2)
	s.Equal([]string{"Maths"}, got.Subjects[0].Aliases)
	s.True(got.Subjects[1].NonContributing)
	s.True(got.Subjects[1].Mandatory)
}

func (s *SourceSuite) TestPublishedVersionsAreImmutable() {
	ctx := context.Background()
	src := New(s.pg.Pool)
	s.Require().NoError(src.Publish(ctx, snapshot("v1")))

	err := src.Publish(ctx, snapshot("v1"))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *SourceSuite) TestLatestAndPinnedVersions() {
	ctx := context.Background()
	src := New(s.pg.Pool)
	s.Require().NoError(src.Publish(ctx, snapshot("v1")))

	v2 := snapshot("v2")
	v2.Rules = v2.Rules[1:]
	s.Require().NoError(src.Publish(ctx, v2))

	latest, err := src.Fetch(ctx)
	s.Require().NoError(err)
	s.Equal("v2", latest.Version)
	s.Len(latest.Rules, 1)

	pinned, err := New(s.pg.Pool, WithVersion("v1")).Fetch(ctx)
	s.Require().NoError(err)
	s.Equal("v1", pinned.Version)
	s.Len(pinned.Rules, 2)

	_, err = New(s.pg.Pool, WithVersion("v9")).Fetch(ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)

	older, err := src.FetchVersion(ctx, "v1")
	s.Require().NoError(err)
	s.Equal("v1", older.Version)
	s.Len(older.Rules, 2)

	_, err = src.FetchVersion(ctx, "v9")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func TestRegistryReloadsFromPostgres(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()
	src := New(pg.Pool)
	require.NoError(t, src.EnsureSchema(ctx))
	require.NoError(t, src.Publish(ctx, snapshot("v1")))

	resolved, err := catalog.NewRegistry().Reload(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, "v1", resolved.Version)
	// BSc excluded at UWC, BA everywhere.
	assert.Len(t, resolved.Offerings(), 3)
	assert.False(t, resolved.Taxonomy.Contributes("Life Orientation"))
}
