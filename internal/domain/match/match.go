package match

// Match is one row of the recent-match feed. It is the root every other
// per-match table hangs off and is never rewritten once stored.
type Match struct {
	MatchID      int64  `db:"match_id" validate:"gt=0"`
	SeriesID     int64  `db:"series_id"`
	SeriesName   string `db:"series_name"`
	MatchDesc    string `db:"match_desc"`
	MatchFormat  string `db:"match_format"`
	Status       string `db:"status"`
	Venue        string `db:"venue"`
	Team1ID      int64  `db:"team1_id"`
	Team1Name    string `db:"team1_name"`
	Team1Score   int    `db:"team1_score"`
	Team1Wickets int    `db:"team1_wickets"`
	Team2ID      int64  `db:"team2_id"`
	Team2Name    string `db:"team2_name"`
	Team2Score   int    `db:"team2_score"`
	Team2Wickets int    `db:"team2_wickets"`
}

// Detail is the scorecard header for a match.
type Detail struct {
	MatchID                int64  `db:"match_id" validate:"gt=0"`
	MatchDescription       string `db:"match_description"`
	MatchFormat            string `db:"match_format"`
	MatchType              string `db:"match_type"`
	IsComplete             bool   `db:"is_complete"`
	IsDomestic             bool   `db:"is_domestic"`
	MatchStartTimestamp    int64  `db:"match_start_timestamp"`
	MatchCompleteTimestamp int64  `db:"match_complete_timestamp"`
	IsDayNight             bool   `db:"is_day_night"`
	MatchYear              int    `db:"match_year"`
	MatchState             string `db:"match_state"`
	MatchStatus            string `db:"match_status"`
	TossWinnerID           int64  `db:"toss_winner_id"`
	TossWinnerName         string `db:"toss_winner_name"`
	TossDecision           string `db:"toss_decision"`
	WinningTeamID          int64  `db:"winning_team_id"`
	WinningTeamName        string `db:"winning_team_name"`
	WinningMargin          int    `db:"winning_margin"`
	IsWonByRuns            bool   `db:"is_won_by_runs"`
	IsWonByInnings         bool   `db:"is_won_by_innings"`
	SeriesID               int64  `db:"series_id"`
	SeriesName             string `db:"series_name"`
}

// State is the ingestion state of a match.
type State string

const (
	StateDiscovered State = "discovered"
	StateFetching   State = "fetching"
	StateIngested   State = "ingested"
	StateFailed     State = "failed"
)
