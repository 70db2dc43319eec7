package cricbuzz

import (
	"github.com/riskibarqy/cricket-analytics/internal/domain/record"
	"github.com/riskibarqy/cricket-analytics/internal/usecase"
)

// Catalog wires the Cricbuzz endpoints to their extractors.
func Catalog() usecase.Catalog {
	return usecase.Catalog{
		RecentMatchesPath: RecentMatchesPath(),
		TeamsPath:         InternationalTeamsPath(),
		ScorecardPath:     ScorecardPath,
		RosterPath:        TeamRosterPath,
		ExtractMatches:    ExtractMatches,
		ExtractTeams:      ExtractTeams,
		ExtractRoster:     ExtractRoster,
		Scorecard: []usecase.TableExtractor{
			usecase.BindExtractor(record.TableMatchDetails, ExtractMatchDetail),
			usecase.BindExtractor(record.TableInnings, ExtractInnings),
			usecase.BindExtractor(record.TableBatsmen, ExtractBatsmen),
			usecase.BindExtractor(record.TableBowlers, ExtractBowlers),
			usecase.BindExtractor(record.TablePartnerships, ExtractPartnerships),
		},
	}
}
