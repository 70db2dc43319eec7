package scorecard

import (
	"fmt"

	"github.com/riskibarqy/cricket-analytics/internal/domain/record"
)

// Innings is one team's batting turn within a match.
type Innings struct {
	MatchID       int64   `db:"match_id" validate:"gt=0"`
	InningsID     int     `db:"innings_id" validate:"gte=0"`
	BatTeamID     int64   `db:"bat_team_id"`
	BatTeamName   string  `db:"bat_team_name"`
	TimeScore     int64   `db:"time_score"`
	BallNumber    int     `db:"ball_number"`
	IsDeclared    bool    `db:"is_declared"`
	IsFollowOn    bool    `db:"is_follow_on"`
	Overs         float64 `db:"overs"`
	RevisedOvers  float64 `db:"revised_overs"`
	RunRate       float64 `db:"run_rate"`
	TotalRuns     int     `db:"total_runs"`
	TotalWickets  int     `db:"total_wickets"`
	ExtrasNoBalls int     `db:"extras_no_balls"`
	ExtrasTotal   int     `db:"extras_total"`
	ExtrasByes    int     `db:"extras_byes"`
	ExtrasPenalty int     `db:"extras_penalty"`
	ExtrasWides   int     `db:"extras_wides"`
	ExtrasLegByes int     `db:"extras_leg_byes"`
}

type Batsman struct {
	MatchID          int64   `db:"match_id" validate:"gt=0"`
	InningsID        int     `db:"innings_id" validate:"gte=0"`
	BatsmanID        int64   `db:"batsman_id"`
	BatTeamID        int64   `db:"bat_team_id"`
	BatTeamName      string  `db:"bat_team_name"`
	BatTeamShortName string  `db:"bat_team_short_name"`
	BatsmanName      string  `db:"batsman_name"`
	BattingStyle     string  `db:"batting_style"`
	IsCaptain        bool    `db:"is_captain"`
	IsKeeper         bool    `db:"is_keeper"`
	Runs             int     `db:"runs"`
	BallsFaced       int     `db:"balls_faced"`
	Dots             int     `db:"dots"`
	Fours            int     `db:"fours"`
	Sixes            int     `db:"sixes"`
	Minutes          int     `db:"minutes"`
	StrikeRate       float64 `db:"strike_rate"`
	OutDescription   string  `db:"out_description"`
	BowlerID         int64   `db:"bowler_id"`
	Fielder1ID       int64   `db:"fielder1_id"`
	Fielder2ID       int64   `db:"fielder2_id"`
	Fielder3ID       int64   `db:"fielder3_id"`
	WicketCode       string  `db:"wicket_code"`
}

type Bowler struct {
	MatchID           int64   `db:"match_id" validate:"gt=0"`
	InningsID         int     `db:"innings_id" validate:"gte=0"`
	BowlerID          int64   `db:"bowler_id"`
	BowlTeamID        int64   `db:"bowl_team_id"`
	BowlTeamName      string  `db:"bowl_team_name"`
	BowlTeamShortName string  `db:"bowl_team_short_name"`
	BowlerName        string  `db:"bowler_name"`
	IsCaptain         bool    `db:"is_captain"`
	IsKeeper          bool    `db:"is_keeper"`
	Overs             float64 `db:"overs"`
	Maidens           int     `db:"maidens"`
	RunsConceded      int     `db:"runs_conceded"`
	Wickets           int     `db:"wickets"`
	Economy           float64 `db:"economy"`
	NoBalls           int     `db:"no_balls"`
	Wides             int     `db:"wides"`
	DotBalls          int     `db:"dot_balls"`
}

// Partnership is a batting stand between two batsmen within an innings.
type Partnership struct {
	MatchID       int64  `db:"match_id" validate:"gt=0"`
	InningsID     int    `db:"innings_id" validate:"gte=0"`
	PartnershipID int64  `db:"partnership_id"`
	Bat1ID        int64  `db:"bat1_id"`
	Bat1Name      string `db:"bat1_name"`
	Bat1Runs      int    `db:"bat1_runs"`
	Bat1Fours     int    `db:"bat1_fours"`
	Bat1Sixes     int    `db:"bat1_sixes"`
	Bat2ID        int64  `db:"bat2_id"`
	Bat2Name      string `db:"bat2_name"`
	Bat2Runs      int    `db:"bat2_runs"`
	Bat2Fours     int    `db:"bat2_fours"`
	Bat2Sixes     int    `db:"bat2_sixes"`
	TotalRuns     int    `db:"total_runs"`
	TotalBalls    int    `db:"total_balls"`
}

// InningsRef is implemented by rows that belong to one innings of one match.
type InningsRef interface {
	InningsKey() (matchID int64, inningsID int)
}

func (r Innings) InningsKey() (int64, int)     { return r.MatchID, r.InningsID }
func (r Batsman) InningsKey() (int64, int)     { return r.MatchID, r.InningsID }
func (r Bowler) InningsKey() (int64, int)      { return r.MatchID, r.InningsID }
func (r Partnership) InningsKey() (int64, int) { return r.MatchID, r.InningsID }

// CheckConsistency verifies that every innings-scoped row in batches belongs to
// matchID and refers to an innings listed in the innings batch.
func CheckConsistency(matchID int64, batches []record.Batch) error {
	known := make(map[int]struct{})
	for _, batch := range batches {
		if batch.Table != record.TableInnings {
			continue
		}
		for _, row := range batch.Rows {
			ref, ok := row.(InningsRef)
			if !ok {
				return fmt.Errorf("innings batch holds %T", row)
			}
			rowMatch, inningsID := ref.InningsKey()
			if rowMatch != matchID {
				return fmt.Errorf("innings %d belongs to match %d, expected %d", inningsID, rowMatch, matchID)
			}
			known[inningsID] = struct{}{}
		}
	}

	for _, batch := range batches {
		if batch.Table == record.TableInnings {
			continue
		}
		for _, row := range batch.Rows {
			ref, ok := row.(InningsRef)
			if !ok {
				continue
			}
			rowMatch, inningsID := ref.InningsKey()
			if rowMatch != matchID {
				return fmt.Errorf("%s row belongs to match %d, expected %d", batch.Table, rowMatch, matchID)
			}
			if _, ok := known[inningsID]; !ok {
				return fmt.Errorf("%s row references unknown innings %d", batch.Table, inningsID)
			}
		}
	}
	return nil
}
