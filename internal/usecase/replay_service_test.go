package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/cricket-analytics/internal/domain/rawdata"
	"github.com/riskibarqy/cricket-analytics/internal/domain/record"
	matchmock "github.com/riskibarqy/cricket-analytics/internal/mocks/domain/match"
	rawdatamock "github.com/riskibarqy/cricket-analytics/internal/mocks/domain/rawdata"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func archived(endpoint string, matchID int64, body string) rawdata.Payload {
	return rawdata.NewPayload(endpoint, matchID, []byte(body), time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
}

func TestReplayService_Replay_RebuildsFromArchive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	archive := rawdatamock.NewRepository(t)
	archive.On("ListArchivedScorecards", mock.Anything).Return([]rawdata.Payload{
		archived(scorecardPath(1), 1, `{"scoreCard":[{"inningsId":1,"runs":250,"batsmen":[{"id":8}]}]}`),
		archived(scorecardPath(2), 2, `{"scoreCard":[`),
		archived(scorecardPath(3), 3, `{"scoreCard":[{"inningsId":1},{"inningsId":2}]}`),
	}, nil).Once()
	archive.On("ListArchivedForMatch", mock.Anything, int64(1)).Return([]rawdata.Payload{
		archived(rosterPath(1, 2), 1, `{"players":[{"id":576},{"id":577}]}`),
	}, nil).Once()
	archive.On("ListArchivedForMatch", mock.Anything, int64(3)).Return([]rawdata.Payload{}, nil).Once()

	matches := matchmock.NewRepository(t)
	matches.On("TeamsForMatch", mock.Anything, int64(1)).Return([]int64{2, 13}, nil).Once()
	matches.On("TeamsForMatch", mock.Anything, int64(3)).Return([]int64{2, 13}, nil).Once()

	writer := &fakeChildWriter{}
	svc, err := NewReplayService(testCatalog(), archive, matches, writer, 2, nil)
	require.NoError(t, err)

	result, err := svc.Replay(ctx, "replay-1")
	require.NoError(t, err)
	require.Equal(t, 3, result.Total)
	require.Equal(t, 2, result.Ingested)
	require.Equal(t, 1, result.Failed)
	require.Equal(t, int64(2), result.Failures[0].MatchID)
	require.ElementsMatch(t, []int64{1, 3}, writer.matchIDs())

	for _, write := range writer.writes {
		hasRoster := false
		for _, batch := range write.batches {
			if batch.Table == record.TableRosters {
				hasRoster = true
				require.Equal(t, 2, batch.Len())
			}
		}
		require.Equal(t, write.matchID == 1, hasRoster, "match %d roster batch", write.matchID)
	}
}

func TestReplayService_Replay_EmptyArchive(t *testing.T) {
	t.Parallel()

	archive := rawdatamock.NewRepository(t)
	archive.On("ListArchivedScorecards", mock.Anything).Return([]rawdata.Payload{}, nil).Once()

	svc, err := NewReplayService(testCatalog(), archive, matchmock.NewRepository(t), &fakeChildWriter{}, 0, nil)
	require.NoError(t, err)

	result, err := svc.Replay(context.Background(), "")
	require.NoError(t, err)
	require.NotEmpty(t, result.RunID)
	require.Zero(t, result.Total)
	require.Empty(t, result.Failures)
}

func TestReplayService_Replay_ReturnsFatalStoreError(t *testing.T) {
	t.Parallel()

	archive := rawdatamock.NewRepository(t)
	archive.On("ListArchivedScorecards", mock.Anything).Return([]rawdata.Payload{
		archived(scorecardPath(1), 1, `{"scoreCard":[{"inningsId":1}]}`),
	}, nil).Once()

	catalog := testCatalog()
	catalog.RosterPath = nil

	writer := &fakeChildWriter{err: crerr.Mark(errors.New("database is closed"), ErrStoreUnavailable)}
	svc, err := NewReplayService(catalog, archive, matchmock.NewRepository(t), writer, 1, nil)
	require.NoError(t, err)

	_, err = svc.Replay(context.Background(), "replay-2")
	require.True(t, IsFatal(err), "got %v", err)
}

func TestNewReplayService_RequiresArchive(t *testing.T) {
	t.Parallel()

	_, err := NewReplayService(testCatalog(), nil, matchmock.NewRepository(t), &fakeChildWriter{}, 1, nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
