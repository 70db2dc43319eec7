package cricbuzz

import "fmt"

func RecentMatchesPath() string {
	return "/matches/v1/recent"
}

func ScorecardPath(matchID int64) string {
	return fmt.Sprintf("/mcenter/v1/%d/scard", matchID)
}

func TeamRosterPath(matchID, teamID int64) string {
	return fmt.Sprintf("/mcenter/v1/%d/team/%d", matchID, teamID)
}

func InternationalTeamsPath() string {
	return "/teams/v1/international"
}
