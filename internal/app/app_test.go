package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/cricket-analytics/internal/config"
	"github.com/riskibarqy/cricket-analytics/internal/domain/record"
	"github.com/riskibarqy/cricket-analytics/internal/platform/cache"
	"github.com/riskibarqy/cricket-analytics/internal/platform/logging"
	"github.com/riskibarqy/cricket-analytics/internal/usecase"
	"github.com/stretchr/testify/require"
)

const recentFeed = `{"typeMatches":[{"matchType":"International","seriesMatches":[{"seriesAdWrapper":{
  "seriesId": 7572, "seriesName": "Test Series",
  "matches": [
    {"matchInfo":{"matchId":101,"matchDesc":"1st ODI","matchFormat":"ODI","status":"India won","team1":{"teamId":13,"teamName":"New Zealand"},"team2":{"teamId":2,"teamName":"India"}}},
    {"matchInfo":{"matchId":102,"matchDesc":"2nd ODI","matchFormat":"ODI","status":"Abandoned","team1":{"teamId":13},"team2":{"teamId":2}}},
    {"matchInfo":{"matchId":103,"matchDesc":"3rd ODI","matchFormat":"ODI","status":"New Zealand won","team1":{"teamId":13},"team2":{"teamId":2}}}
  ]}}]}]}`

const teamsFeed = `{"list":[
  {"teamName":"Test Teams"},
  {"teamId":2,"teamName":"India","teamSName":"IND","imageId":719},
  {"teamId":13,"teamName":"New Zealand","teamSName":"NZ","imageId":725}
]}`

func scorecardFeed(matchID int64) string {
	return fmt.Sprintf(`{
  "matchHeader": {"matchId": %d, "matchDescription": "ODI", "matchFormat": "ODI", "complete": true, "state": "Complete"},
  "scoreCard": [
    {
      "inningsId": 1,
      "batTeamDetails": {"batTeamId": 13, "batTeamName": "New Zealand", "batsmenData": {
        "bat_1": {"batId": 1, "batName": "Opener", "runs": 40},
        "bat_2": {"batId": 2, "batName": "Anchor", "runs": 70, "battingStyle": "Left-hand bat"}
      }},
      "bowlTeamDetails": {"bowlTeamId": 2, "bowlTeamName": "India", "bowlersData": {
        "bowl_1": {"bowlerId": 9311, "bowlName": "Spinner", "overs": 10, "runs": 41, "wickets": 2}
      }},
      "scoreDetails": {"overs": 50, "runs": 250, "wickets": 7},
      "partnershipsData": {"pat_1": {"bat1Id": 1, "bat2Id": 2, "totalRuns": 80, "totalBalls": 90}}
    },
    {
      "inningsId": 2,
      "batTeamDetails": {"batTeamId": 2, "batTeamName": "India", "batsmenData": [
        {"batId": 576, "batName": "Captain", "runs": 101, "isCaptain": true}
      ]},
      "scoreDetails": {"overs": 48.2, "runs": 254, "wickets": 6}
    }
  ]
}`, matchID)
}

const rosterFeed = `{"players":{
  "playing XI":[{"id":576,"fullName":"Captain","captain":true},{"id":1,"fullName":"Opener"}],
  "bench":[{"id":77,"fullName":"Reserve"}]
}}`

type providerStub struct {
	server *httptest.Server
	calls  atomic.Int64
}

func newProviderStub(t *testing.T) *providerStub {
	t.Helper()

	stub := &providerStub{}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.calls.Add(1)
		if r.Header.Get("X-RapidAPI-Key") != "test-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/matches/v1/recent":
			_, _ = w.Write([]byte(recentFeed))
		case "/teams/v1/international":
			_, _ = w.Write([]byte(teamsFeed))
		case "/mcenter/v1/101/scard":
			_, _ = w.Write([]byte(scorecardFeed(101)))
		case "/mcenter/v1/103/scard":
			_, _ = w.Write([]byte(scorecardFeed(103)))
		case "/mcenter/v1/101/team/2", "/mcenter/v1/101/team/13",
			"/mcenter/v1/103/team/2", "/mcenter/v1/103/team/13":
			_, _ = w.Write([]byte(rosterFeed))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"not found"}`))
		}
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

func testConfig(t *testing.T, baseURL string) config.Config {
	t.Helper()

	return config.Config{
		AppEnv:                     config.EnvDev,
		ServiceName:                "cricket-ingest-test",
		LogLevel:                   logging.LevelInfo,
		DBDriver:                   config.DriverSQLite,
		DBPath:                     filepath.Join(t.TempDir(), "cricket_matches.db"),
		CricbuzzBaseURL:            baseURL,
		CricbuzzAPIHost:            "cricbuzz-cricket.p.rapidapi.com",
		CricbuzzAPIKey:             "test-key",
		CricbuzzTimeout:            5 * time.Second,
		CricbuzzCircuitEnabled:     false,
		CricbuzzCircuitOpenTimeout: time.Second,
		IngestMaxAttempts:          1,
		IngestDiscover:             true,
		IngestSyncTeams:            true,
		IngestFetchRosters:         true,
		IngestArchiveRaw:           true,
		ReplayWorkers:              2,
		QueryMaxRows:               100,
	}
}

// snapshot reads every match-owned table in key order.
func snapshot(t *testing.T, ctx context.Context, reader usecase.RowReader) map[string][]usecase.Row {
	t.Helper()

	queries := map[string]string{
		record.TableMatches:      "SELECT * FROM matches ORDER BY match_id",
		record.TableMatchDetails: "SELECT * FROM match_details ORDER BY match_id",
		record.TableInnings:      "SELECT * FROM innings_details ORDER BY match_id, innings_id",
		record.TableBatsmen:      "SELECT * FROM batsmen_details ORDER BY match_id, innings_id, batsman_id",
		record.TableBowlers:      "SELECT * FROM bowlers_details ORDER BY match_id, innings_id, bowler_id",
		record.TablePartnerships: "SELECT * FROM partnerships ORDER BY match_id, innings_id, partnership_id",
		record.TableRosters:      "SELECT * FROM match_players ORDER BY match_id, team_id, player_id",
		record.TableTeams:        "SELECT * FROM teams ORDER BY team_id",
	}
	out := make(map[string][]usecase.Row, len(queries))
	for table, query := range queries {
		rows, err := reader.Query(ctx, query)
		require.NoError(t, err, "snapshot %s", table)
		out[table] = rows
	}
	return out
}

func TestIngestor_EndToEnd(t *testing.T) {
	ctx := context.Background()
	provider := newProviderStub(t)
	cfg := testConfig(t, provider.server.URL)

	ingestor, err := NewIngestor(ctx, cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ingestor.Close() })

	first, err := ingestor.Run(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, 3, first.Total)
	require.Equal(t, 2, first.Ingested)
	require.Equal(t, 1, first.Failed)
	require.Len(t, first.Failures, 1)
	require.Equal(t, int64(102), first.Failures[0].MatchID)

	before := snapshot(t, ctx, ingestor.store)
	require.Len(t, before[record.TableMatches], 3)
	require.Len(t, before[record.TableMatchDetails], 2)
	require.Len(t, before[record.TableInnings], 4)
	require.Len(t, before[record.TableBatsmen], 6)
	require.Len(t, before[record.TableRosters], 12)
	require.Len(t, before[record.TableTeams], 2)

	for _, row := range before[record.TableBatsmen] {
		if row["batsman_id"] == int64(1) {
			require.Equal(t, "", row["batting_style"])
		}
	}

	// a second run only retries the failed match and leaves stored rows untouched
	second, err := ingestor.Run(ctx, "run-2")
	require.NoError(t, err)
	require.Equal(t, 0, second.Ingested)
	require.Equal(t, 1, second.Failed)
	require.Equal(t, 2, second.Skipped)
	require.Equal(t, before, snapshot(t, ctx, ingestor.store))

	require.NoError(t, ingestor.Reingest(ctx, 101))
	require.Equal(t, before, snapshot(t, ctx, ingestor.store))

	callsBeforeReplay := provider.calls.Load()
	replayed, err := ingestor.Replay(ctx, "replay-1")
	require.NoError(t, err)
	require.Equal(t, 2, replayed.Total)
	require.Equal(t, 2, replayed.Ingested)
	require.Equal(t, before, snapshot(t, ctx, ingestor.store))
	require.Equal(t, callsBeforeReplay, provider.calls.Load(), "replay must not call the provider")
}

func TestIngestor_ReingestUnknownMatch(t *testing.T) {
	ctx := context.Background()
	provider := newProviderStub(t)
	cfg := testConfig(t, provider.server.URL)

	ingestor, err := NewIngestor(ctx, cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ingestor.Close() })

	err = ingestor.Reingest(ctx, 999)
	require.ErrorIs(t, err, usecase.ErrNotFound)
	require.Zero(t, provider.calls.Load())
}

func TestNewQueryServer_ServesIngestedRows(t *testing.T) {
	ctx := context.Background()
	provider := newProviderStub(t)
	cfg := testConfig(t, provider.server.URL)
	cfg.QueryHTTPAddr = "127.0.0.1:0"

	ingestor, err := NewIngestor(ctx, cfg, logging.NewNop())
	require.NoError(t, err)
	_, err = ingestor.Run(ctx, "run-q")
	require.NoError(t, err)
	require.NoError(t, ingestor.Close())

	server, err := NewQueryServer(ctx, cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Shutdown(context.Background()) })

	queries := usecase.NewQueryService(server.store, cache.Config{}, cfg.QueryMaxRows, nil)
	rows, err := queries.TableRows(ctx, usecase.TableQuery{Table: record.TableInnings, MatchID: 103})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	empty, err := queries.TableRows(ctx, usecase.TableQuery{Table: record.TableInnings, MatchID: 102})
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}
