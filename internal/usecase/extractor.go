package usecase

import (
	"context"
	"fmt"

	"github.com/riskibarqy/cricket-analytics/internal/domain/match"
	"github.com/riskibarqy/cricket-analytics/internal/domain/player"
	"github.com/riskibarqy/cricket-analytics/internal/domain/record"
	"github.com/riskibarqy/cricket-analytics/internal/domain/team"
	"github.com/riskibarqy/cricket-analytics/internal/platform/jsondoc"
	"github.com/sourcegraph/conc/panics"
)

// Provider fetches one provider document per call.
type Provider interface {
	FetchRaw(ctx context.Context, path string) (jsondoc.Document, []byte, error)
}

// TableExtractor maps one scorecard document to the rows of one table.
type TableExtractor struct {
	Table   string
	Extract func(matchID int64, doc jsondoc.Document) []any
}

// BindExtractor adapts a typed extractor to a table-bound one.
func BindExtractor[T any](table string, fn func(matchID int64, doc jsondoc.Document) []T) TableExtractor {
	return TableExtractor{
		Table: table,
		Extract: func(matchID int64, doc jsondoc.Document) []any {
			return record.Rows(table, fn(matchID, doc)).Rows
		},
	}
}

// Run executes the extractor, converting a panic into an error.
func (e TableExtractor) Run(matchID int64, doc jsondoc.Document) (batch record.Batch, err error) {
	var catcher panics.Catcher
	catcher.Try(func() {
		batch = record.Batch{Table: e.Table, Rows: e.Extract(matchID, doc)}
	})
	if recovered := catcher.Recovered(); recovered != nil {
		return record.Batch{}, fmt.Errorf("extract %s match_id=%d: %w", e.Table, matchID, recovered.AsError())
	}
	return batch, nil
}

// rosterRows runs the roster extractor for one team with the same panic
// isolation as a scorecard extractor.
func (c Catalog) rosterRows(matchID, teamID int64, doc jsondoc.Document) (rows []player.RosterPlayer, err error) {
	var catcher panics.Catcher
	catcher.Try(func() {
		rows = c.ExtractRoster(matchID, teamID, doc)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		return nil, fmt.Errorf("extract roster match_id=%d team_id=%d: %w", matchID, teamID, recovered.AsError())
	}
	return rows, nil
}

// Catalog binds the provider's endpoints to the extractors that read them.
type Catalog struct {
	RecentMatchesPath string
	TeamsPath         string
	ScorecardPath     func(matchID int64) string
	RosterPath        func(matchID, teamID int64) string

	ExtractMatches func(doc jsondoc.Document) []match.Match
	ExtractTeams   func(doc jsondoc.Document) []team.Team
	ExtractRoster  func(matchID, teamID int64, doc jsondoc.Document) []player.RosterPlayer

	Scorecard []TableExtractor
}

func (c Catalog) validate() error {
	if c.ScorecardPath == nil {
		return fmt.Errorf("%w: catalog scorecard path is required", ErrInvalidInput)
	}
	if len(c.Scorecard) == 0 {
		return fmt.Errorf("%w: catalog needs at least one scorecard extractor", ErrInvalidInput)
	}
	for _, ex := range c.Scorecard {
		if !record.IsChildTable(ex.Table) || ex.Extract == nil {
			return fmt.Errorf("%w: invalid scorecard extractor for table %q", ErrInvalidInput, ex.Table)
		}
	}
	return nil
}
