package cricbuzz

import (
	"strings"

	"github.com/riskibarqy/cricket-analytics/internal/domain/match"
	"github.com/riskibarqy/cricket-analytics/internal/domain/player"
	"github.com/riskibarqy/cricket-analytics/internal/domain/scorecard"
	"github.com/riskibarqy/cricket-analytics/internal/domain/team"
	"github.com/riskibarqy/cricket-analytics/internal/platform/jsondoc"
)

// ExtractMatches flattens the recent-match feed:
// typeMatches -> seriesMatches -> seriesAdWrapper -> matches -> {matchInfo, matchScore}.
// Ad slots without a match id are skipped; the first occurrence of a match wins.
func ExtractMatches(doc jsondoc.Document) []match.Match {
	out := make([]match.Match, 0, 32)
	seen := make(map[int64]struct{}, 32)

	for _, typeMatch := range doc.Objects("typeMatches") {
		for _, seriesMatch := range typeMatch.Objects("seriesMatches") {
			if !seriesMatch.Has("seriesAdWrapper") {
				continue
			}
			wrapper := seriesMatch.Object("seriesAdWrapper")
			for _, item := range wrapper.Objects("matches") {
				info := item.Object("matchInfo")
				matchID := info.Int64("matchId")
				if matchID <= 0 {
					continue
				}
				if _, ok := seen[matchID]; ok {
					continue
				}
				seen[matchID] = struct{}{}

				team1 := info.Object("team1")
				team2 := info.Object("team2")
				score := item.Object("matchScore")
				team1Innings := score.Object("team1Score").Object("inngs1")
				team2Innings := score.Object("team2Score").Object("inngs1")

				out = append(out, match.Match{
					MatchID:      matchID,
					SeriesID:     pickID(info.Int64("seriesId"), wrapper.Int64("seriesId")),
					SeriesName:   firstNonEmpty(info.String("seriesName"), wrapper.String("seriesName")),
					MatchDesc:    info.String("matchDesc"),
					MatchFormat:  info.String("matchFormat"),
					Status:       info.String("status"),
					Venue:        info.Object("venueInfo").String("ground"),
					Team1ID:      team1.Int64("teamId"),
					Team1Name:    team1.String("teamName"),
					Team1Score:   team1Innings.Int("runs"),
					Team1Wickets: team1Innings.Int("wickets"),
					Team2ID:      team2.Int64("teamId"),
					Team2Name:    team2.String("teamName"),
					Team2Score:   team2Innings.Int("runs"),
					Team2Wickets: team2Innings.Int("wickets"),
				})
			}
		}
	}
	return out
}

// ExtractMatchDetail reads the scorecard's matchHeader. A payload without a
// header yields no row.
func ExtractMatchDetail(matchID int64, doc jsondoc.Document) []match.Detail {
	if !doc.Has("matchHeader") {
		return nil
	}
	header := doc.Object("matchHeader")
	toss := header.Object("tossResults")
	result := header.Object("result")

	return []match.Detail{{
		MatchID:                matchID,
		MatchDescription:       header.String("matchDescription"),
		MatchFormat:            header.String("matchFormat"),
		MatchType:              header.String("matchType"),
		IsComplete:             header.Bool("complete"),
		IsDomestic:             header.Bool("domestic"),
		MatchStartTimestamp:    header.Int64("matchStartTimestamp"),
		MatchCompleteTimestamp: header.Int64("matchCompleteTimestamp"),
		IsDayNight:             header.Bool("dayNight"),
		MatchYear:              header.Int("year"),
		MatchState:             header.String("state"),
		MatchStatus:            header.String("status"),
		TossWinnerID:           toss.Int64("tossWinnerId"),
		TossWinnerName:         toss.String("tossWinnerName"),
		TossDecision:           toss.String("decision"),
		WinningTeamID:          result.Int64("winningteamId"),
		WinningTeamName:        result.String("winningTeam"),
		WinningMargin:          result.Int("winningMargin"),
		IsWonByRuns:            result.Bool("winByRuns"),
		IsWonByInnings:         result.Bool("winByInnings"),
		SeriesID:               header.Int64("seriesId"),
		SeriesName:             header.String("seriesName"),
	}}
}

func ExtractInnings(matchID int64, doc jsondoc.Document) []scorecard.Innings {
	cards := doc.Objects("scoreCard")
	out := make([]scorecard.Innings, 0, len(cards))
	seen := make(map[int]struct{}, len(cards))

	for _, card := range cards {
		inningsID := card.Int("inningsId")
		if _, ok := seen[inningsID]; ok {
			continue
		}
		seen[inningsID] = struct{}{}

		score := card.Object("scoreDetails")
		extras := card.Object("extrasData")
		batTeam := card.Object("batTeamDetails")
		out = append(out, scorecard.Innings{
			MatchID:       matchID,
			InningsID:     inningsID,
			BatTeamID:     batTeam.Int64("batTeamId"),
			BatTeamName:   batTeam.String("batTeamName"),
			TimeScore:     card.Int64("timeScore"),
			BallNumber:    score.Int("ballNbr"),
			IsDeclared:    score.Bool("isDeclared"),
			IsFollowOn:    score.Bool("isFollowOn"),
			Overs:         score.Float("overs"),
			RevisedOvers:  score.Float("revisedOvers"),
			RunRate:       score.Float("runRate"),
			TotalRuns:     score.Int("runs"),
			TotalWickets:  score.Int("wickets"),
			ExtrasNoBalls: extras.Int("noBalls"),
			ExtrasTotal:   extras.Int("total"),
			ExtrasByes:    extras.Int("byes"),
			ExtrasPenalty: extras.Int("penalty"),
			ExtrasWides:   extras.Int("wides"),
			ExtrasLegByes: extras.Int("legByes"),
		})
	}
	return out
}

func ExtractBatsmen(matchID int64, doc jsondoc.Document) []scorecard.Batsman {
	out := make([]scorecard.Batsman, 0, 44)
	seen := make(map[[2]int64]struct{}, 44)

	for _, card := range doc.Objects("scoreCard") {
		inningsID := card.Int("inningsId")
		batTeam := card.Object("batTeamDetails")
		teamID := batTeam.Int64("batTeamId")
		teamName := batTeam.String("batTeamName")
		teamShort := batTeam.String("batTeamShortName")

		for _, bat := range batTeam.Objects("batsmenData") {
			batsmanID := bat.Int64("batId")
			key := [2]int64{int64(inningsID), batsmanID}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			out = append(out, scorecard.Batsman{
				MatchID:          matchID,
				InningsID:        inningsID,
				BatsmanID:        batsmanID,
				BatTeamID:        teamID,
				BatTeamName:      teamName,
				BatTeamShortName: teamShort,
				BatsmanName:      bat.String("batName"),
				BattingStyle:     bat.String("battingStyle"),
				IsCaptain:        bat.Bool("isCaptain"),
				IsKeeper:         bat.Bool("isKeeper"),
				Runs:             bat.Int("runs"),
				BallsFaced:       bat.Int("balls"),
				Dots:             bat.Int("dots"),
				Fours:            bat.Int("fours"),
				Sixes:            bat.Int("sixes"),
				Minutes:          bat.Int("mins"),
				StrikeRate:       bat.Float("strikeRate"),
				OutDescription:   bat.String("outDesc"),
				BowlerID:         bat.Int64("bowlerId"),
				Fielder1ID:       bat.Int64("fielderId1"),
				Fielder2ID:       bat.Int64("fielderId2"),
				Fielder3ID:       bat.Int64("fielderId3"),
				WicketCode:       bat.String("wicketCode"),
			})
		}
	}
	return out
}

func ExtractBowlers(matchID int64, doc jsondoc.Document) []scorecard.Bowler {
	out := make([]scorecard.Bowler, 0, 24)
	seen := make(map[[2]int64]struct{}, 24)

	for _, card := range doc.Objects("scoreCard") {
		inningsID := card.Int("inningsId")
		bowlTeam := card.Object("bowlTeamDetails")
		teamID := bowlTeam.Int64("bowlTeamId")
		teamName := bowlTeam.String("bowlTeamName")
		teamShort := bowlTeam.String("bowlTeamShortName")

		for _, bowl := range bowlTeam.Objects("bowlersData") {
			bowlerID := bowl.Int64("bowlerId")
			key := [2]int64{int64(inningsID), bowlerID}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			out = append(out, scorecard.Bowler{
				MatchID:           matchID,
				InningsID:         inningsID,
				BowlerID:          bowlerID,
				BowlTeamID:        teamID,
				BowlTeamName:      teamName,
				BowlTeamShortName: teamShort,
				BowlerName:        bowl.String("bowlName"),
				IsCaptain:         bowl.Bool("isCaptain"),
				IsKeeper:          bowl.Bool("isKeeper"),
				Overs:             bowl.Float("overs"),
				Maidens:           bowl.Int("maidens"),
				RunsConceded:      bowl.Int("runs"),
				Wickets:           bowl.Int("wickets"),
				Economy:           bowl.Float("economy"),
				NoBalls:           bowl.Int("no_balls"),
				Wides:             bowl.Int("wides"),
				DotBalls:          bowl.Int("dots"),
			})
		}
	}
	return out
}

// ExtractPartnerships takes the partnership id from the collection key
// ("pat_3" is partnership 3); keys whose second segment is not an integer
// yield 0.
func ExtractPartnerships(matchID int64, doc jsondoc.Document) []scorecard.Partnership {
	out := make([]scorecard.Partnership, 0, 20)
	seen := make(map[[2]int64]struct{}, 20)

	for _, card := range doc.Objects("scoreCard") {
		inningsID := card.Int("inningsId")
		for _, entry := range card.Entries("partnershipsData") {
			partnershipID := jsondoc.KeySuffix(entry.Key)
			key := [2]int64{int64(inningsID), partnershipID}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			p := entry.Doc
			out = append(out, scorecard.Partnership{
				MatchID:       matchID,
				InningsID:     inningsID,
				PartnershipID: partnershipID,
				Bat1ID:        p.Int64("bat1Id"),
				Bat1Name:      p.String("bat1Name"),
				Bat1Runs:      p.Int("bat1Runs"),
				Bat1Fours:     p.Int("bat1fours"),
				Bat1Sixes:     p.Int("bat1sixes"),
				Bat2ID:        p.Int64("bat2Id"),
				Bat2Name:      p.String("bat2Name"),
				Bat2Runs:      p.Int("bat2Runs"),
				Bat2Fours:     p.Int("bat2fours"),
				Bat2Sixes:     p.Int("bat2sixes"),
				TotalRuns:     p.Int("totalRuns"),
				TotalBalls:    p.Int("totalBalls"),
			})
		}
	}
	return out
}

// ExtractTeams reads the team directory. Section header rows carry no teamId
// and are skipped.
func ExtractTeams(doc jsondoc.Document) []team.Team {
	items := doc.Objects("list")
	out := make([]team.Team, 0, len(items))
	seen := make(map[int64]struct{}, len(items))

	for _, item := range items {
		teamID := item.Int64("teamId")
		if teamID <= 0 {
			continue
		}
		if _, ok := seen[teamID]; ok {
			continue
		}
		seen[teamID] = struct{}{}

		out = append(out, team.Team{
			TeamID:        teamID,
			TeamName:      item.String("teamName"),
			TeamShortName: item.String("teamSName"),
			ImageID:       item.Int64("imageId"),
		})
	}
	return out
}

// ExtractRoster reads a per-match team squad. Players are grouped under
// "players" by role in the XI; everyone on the bench is a substitute.
func ExtractRoster(matchID, teamID int64, doc jsondoc.Document) []player.RosterPlayer {
	groups := doc.Object("players")
	out := make([]player.RosterPlayer, 0, 24)
	seen := make(map[int64]struct{}, 24)

	for _, group := range rosterGroups(groups) {
		bench := isBench(group)
		for _, item := range groups.Objects(group) {
			playerID := item.Int64("id")
			if _, ok := seen[playerID]; ok {
				continue
			}
			seen[playerID] = struct{}{}

			out = append(out, player.RosterPlayer{
				MatchID:      matchID,
				TeamID:       teamID,
				PlayerID:     playerID,
				PlayerName:   firstNonEmpty(item.String("fullName"), item.String("name")),
				Role:         item.String("role"),
				BattingStyle: item.String("battingStyle"),
				BowlingStyle: item.String("bowlingStyle"),
				IsSubstitute: bench || item.Bool("substitute"),
				IsCaptain:    item.Bool("captain"),
				IsKeeper:     item.Bool("keeper"),
			})
		}
	}
	return out
}

// rosterGroups lists the squad groups with the bench last, so a player named
// in both the XI and the bench is kept as a starter.
func rosterGroups(groups jsondoc.Document) []string {
	keys := groups.Keys()
	out := make([]string, 0, len(keys))
	var bench []string
	for _, key := range keys {
		if isBench(key) {
			bench = append(bench, key)
			continue
		}
		out = append(out, key)
	}
	return append(out, bench...)
}

func isBench(group string) bool {
	return strings.EqualFold(strings.TrimSpace(group), "bench")
}

func firstNonEmpty(values ...string) string {
	for _, item := range values {
		if strings.TrimSpace(item) != "" {
			return strings.TrimSpace(item)
		}
	}
	return ""
}

func pickID(current, candidate int64) int64 {
	if current > 0 {
		return current
	}
	if candidate > 0 {
		return candidate
	}
	return 0
}
