package fallback

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"unimatch/internal/catalog"
	"unimatch/internal/catalog/mocks"
	"unimatch/pkg/platform/circuit"
	"unimatch/pkg/platform/sentinel"
)

type FallbackSuite struct {
	suite.Suite
	primary   *mocks.MockSource
	secondary *mocks.MockSource
	source    *Source
	ctx       context.Context
}

func TestFallbackSuite(t *testing.T) {
	suite.Run(t, new(FallbackSuite))
}

var (
	fromDB   = catalog.Snapshot{Version: "db"}
	fromFile = catalog.Snapshot{Version: "file"}
	dbDown   = errors.New("db down")
)

func (s *FallbackSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.primary = mocks.NewMockSource(ctrl)
	s.secondary = mocks.NewMockSource(ctrl)
	s.source = New(s.primary, s.secondary,
		WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(2))))
	s.ctx = context.Background()
}

func (s *FallbackSuite) fetch() (catalog.Snapshot, error) {
	return s.source.Fetch(s.ctx)
}

func (s *FallbackSuite) TestHealthyPrimaryIsUsed() {
	s.primary.EXPECT().Fetch(gomock.Any()).Return(fromDB, nil)

	snap, err := s.fetch()
	s.Require().NoError(err)
	s.Equal("db", snap.Version)
	s.False(s.source.Degraded())
}

func (s *FallbackSuite) TestFailureBelowThresholdIsReturned() {
	s.primary.EXPECT().Fetch(gomock.Any()).Return(catalog.Snapshot{}, dbDown)

	_, err := s.fetch()
	s.ErrorIs(err, dbDown)
}

func (s *FallbackSuite) TestOpensThenRecovers() {
	gomock.InOrder(
		s.primary.EXPECT().Fetch(gomock.Any()).Return(catalog.Snapshot{}, dbDown),
		s.primary.EXPECT().Fetch(gomock.Any()).Return(catalog.Snapshot{}, dbDown),
		s.primary.EXPECT().Fetch(gomock.Any()).Return(fromDB, nil),
		s.primary.EXPECT().Fetch(gomock.Any()).Return(fromDB, nil),
	)
	s.secondary.EXPECT().Fetch(gomock.Any()).Return(fromFile, nil).Times(2)

	_, err := s.fetch()
	s.Error(err)

	snap, err := s.fetch()
	s.Require().NoError(err)
	s.Equal("file", snap.Version, "breaker opened")
	s.True(s.source.Degraded())

	snap, err = s.fetch()
	s.Require().NoError(err)
	s.Equal("file", snap.Version, "one success does not close")

	snap, err = s.fetch()
	s.Require().NoError(err)
	s.Equal("db", snap.Version)
	s.False(s.source.Degraded())
}

func (s *FallbackSuite) TestFallbackVersionIsLogged() {
	var logs bytes.Buffer
	s.source.logger = slog.New(slog.NewTextHandler(&logs, nil))
	s.primary.EXPECT().Fetch(gomock.Any()).Return(catalog.Snapshot{}, dbDown).Times(2)
	s.secondary.EXPECT().Fetch(gomock.Any()).Return(fromFile, nil)

	_, _ = s.fetch()
	snap, err := s.fetch()
	s.Require().NoError(err)
	s.Equal("file", snap.Version)
	s.Contains(logs.String(), "serving fallback catalog")
	s.Contains(logs.String(), "fallback_version=file")
}

func (s *FallbackSuite) TestFetchVersionNeedsVersionedPrimary() {
	_, err := s.source.FetchVersion(s.ctx, "db")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func TestFetchVersion(t *testing.T) {
	ctx := context.Background()
	setup := func(t *testing.T) (*mocks.MockVersionedSource, *mocks.MockSource, *Source) {
		ctrl := gomock.NewController(t)
		primary := mocks.NewMockVersionedSource(ctrl)
		secondary := mocks.NewMockSource(ctrl)
		src := New(primary, secondary, WithBreaker(circuit.New("test", circuit.WithFailureThreshold(1))))
		return primary, secondary, src
	}

	t.Run("asks the primary for the exact version", func(t *testing.T) {
		primary, _, src := setup(t)
		primary.EXPECT().FetchVersion(gomock.Any(), "2025.2").Return(catalog.Snapshot{Version: "2025.2"}, nil)

		snap, err := src.FetchVersion(ctx, "2025.2")
		require.NoError(t, err)
		assert.Equal(t, "2025.2", snap.Version)
	})

	t.Run("secondary with another version is refused", func(t *testing.T) {
		primary, secondary, src := setup(t)
		primary.EXPECT().FetchVersion(gomock.Any(), "2025.2").Return(catalog.Snapshot{}, dbDown)
		secondary.EXPECT().Fetch(gomock.Any()).Return(fromFile, nil)

		_, err := src.FetchVersion(ctx, "2025.2")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("secondary holding the version is served", func(t *testing.T) {
		primary, secondary, src := setup(t)
		primary.EXPECT().FetchVersion(gomock.Any(), "file").Return(catalog.Snapshot{}, dbDown)
		secondary.EXPECT().Fetch(gomock.Any()).Return(fromFile, nil)

		snap, err := src.FetchVersion(ctx, "file")
		require.NoError(t, err)
		assert.Equal(t, "file", snap.Version)
	})
}
