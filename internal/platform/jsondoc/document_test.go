package jsondoc

import (
	"reflect"
	"testing"
)

func TestParse_DefaultsAndGaps(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(`{"matchHeader":{"matchId":35612,"complete":true,"status":"India won","year":"2024"},"runRate":"5.25"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	header := doc.Object("matchHeader")
	if got := header.Int64("matchId"); got != 35612 {
		t.Fatalf("matchId=%d", got)
	}
	if !header.Bool("complete") {
		t.Fatalf("expected complete=true")
	}
	if got := header.Int("year"); got != 2024 {
		t.Fatalf("year=%d", got)
	}
	if got := doc.Float("runRate"); got != 5.25 {
		t.Fatalf("runRate=%v", got)
	}
	if got := header.String("seriesName"); got != "" {
		t.Fatalf("expected empty default, got %q", got)
	}
	if got := header.Object("tossResults").Int64("tossWinnerId"); got != 0 {
		t.Fatalf("expected zero default, got %d", got)
	}

	want := []string{"matchHeader.seriesName", "matchHeader.tossResults", "matchHeader.tossResults.tossWinnerId"}
	if got := doc.Gaps(); !reflect.DeepEqual(got, want) {
		t.Fatalf("gaps=%v, want %v", got, want)
	}
}

func TestParse_RejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte(`{"scoreCard": [`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestParse_NullIsEmpty(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(`null`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !doc.IsEmpty() || len(doc.Objects("scoreCard")) != 0 {
		t.Fatalf("expected empty document")
	}
}

func TestEntries_ListAndKeyedMapNormalizeAlike(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(`{
		"asMap": {"bat_10": {"n": 10}, "bat_2": {"n": 2}, "bat_1": {"n": 1}, "junk": 5},
		"asList": [{"n": 1}, {"n": 2}, "skip", {"n": 10}]
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	collect := func(key string) []int {
		var out []int
		for _, item := range doc.Objects(key) {
			out = append(out, item.Int("n"))
		}
		return out
	}

	want := []int{1, 2, 10}
	if got := collect("asMap"); !reflect.DeepEqual(got, want) {
		t.Fatalf("map order=%v, want %v", got, want)
	}
	if got := collect("asList"); !reflect.DeepEqual(got, want) {
		t.Fatalf("list order=%v, want %v", got, want)
	}

	entries := doc.Entries("asMap")
	if entries[2].Key != "bat_10" {
		t.Fatalf("expected last key bat_10, got %s", entries[2].Key)
	}
}

func TestKeySuffix(t *testing.T) {
	t.Parallel()

	cases := map[string]int64{
		"pat_3":         3,
		"partnership_1": 1,
		"pat_12":        12,
		"pat_4_x":       4,
		"bogus":         0,
		"pat_":          0,
		"pat_x":         0,
		"":              0,
		"3":             0,
		"a_b_7":         0,
	}
	for key, want := range cases {
		if got := KeySuffix(key); got != want {
			t.Fatalf("KeySuffix(%q)=%d, want %d", key, got, want)
		}
	}
}
