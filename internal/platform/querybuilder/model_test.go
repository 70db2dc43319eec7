package querybuilder

import "testing"

type teamRow struct {
	TeamID   int64  `db:"team_id"`
	TeamName string `db:"team_name"`
	Ignored  string `db:"-"`
	internal string
}

func TestInsertModels(t *testing.T) {
	rows := []any{
		teamRow{TeamID: 2, TeamName: "India", internal: "x"},
		&teamRow{TeamID: 3, TeamName: "Pakistan"},
	}

	query, args, err := New(Question).InsertModels("teams", rows, "")
	if err != nil {
		t.Fatalf("build insert models: %v", err)
	}
	if query != "INSERT INTO teams (team_id, team_name) VALUES (?, ?), (?, ?)" {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 4 || args[2] != int64(3) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestColumns(t *testing.T) {
	cols, err := Columns(teamRow{})
	if err != nil {
		t.Fatalf("columns: %v", err)
	}
	if len(cols) != 2 || cols[0] != "team_id" || cols[1] != "team_name" {
		t.Fatalf("unexpected columns: %v", cols)
	}

	if _, err := Columns(42); err == nil {
		t.Fatalf("expected non-struct model to fail")
	}
	var nilRow *teamRow
	if _, err := Columns(nilRow); err == nil {
		t.Fatalf("expected nil model to fail")
	}
}
