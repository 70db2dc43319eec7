// Package record names the persisted tables and carries rows between
// extraction and the store.
package record

const (
	TableMatches      = "matches"
	TableMatchDetails = "match_details"
	TableInnings      = "innings_details"
	TableBatsmen      = "batsmen_details"
	TableBowlers      = "bowlers_details"
	TablePartnerships = "partnerships"
	TableTeams        = "teams"
	TableRosters      = "match_players"
	TableRawPayloads  = "raw_payloads"
)

// ChildTables hold rows owned by a single match and are replaced together.
var ChildTables = []string{
	TableMatchDetails,
	TableInnings,
	TableBatsmen,
	TableBowlers,
	TablePartnerships,
	TableRosters,
}

// Batch is the rows extracted for one table. Rows are structs with db tags.
type Batch struct {
	Table string
	Rows  []any
}

func (b Batch) Len() int { return len(b.Rows) }

// Rows converts a typed slice into a batch.
func Rows[T any](table string, items []T) Batch {
	rows := make([]any, 0, len(items))
	for _, item := range items {
		rows = append(rows, item)
	}
	return Batch{Table: table, Rows: rows}
}

func IsChildTable(table string) bool {
	for _, t := range ChildTables {
		if t == table {
			return true
		}
	}
	return false
}
