package player

// RosterPlayer is one squad member listed for a team in a match.
type RosterPlayer struct {
	MatchID      int64  `db:"match_id" validate:"gt=0"`
	TeamID       int64  `db:"team_id" validate:"gt=0"`
	PlayerID     int64  `db:"player_id"`
	PlayerName   string `db:"player_name"`
	Role         string `db:"role"`
	BattingStyle string `db:"batting_style"`
	BowlingStyle string `db:"bowling_style"`
	IsSubstitute bool   `db:"is_substitute"`
	IsCaptain    bool   `db:"is_captain"`
	IsKeeper     bool   `db:"is_keeper"`
}
