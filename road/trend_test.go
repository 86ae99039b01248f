package road

import (
	"testing"

	"baccarat-road/symbol"
)

func trackValues(cells []Column) []int {
	var out []int
	for _, col := range cells {
		for _, c := range col {
			if c.Set {
				out = append(out, c.Value)
			}
		}
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLookupPair(t *testing.T) {
	cases := []struct {
		a, b bool
		want int
	}{
		{true, true, 1},
		{false, false, 2},
		{true, false, 3},
		{false, true, 4},
	}
	for _, c := range cases {
		if got := lookupPair(c.a, c.b); got != c.want {
			t.Fatalf("lookupPair(%v,%v) = %d want %d", c.a, c.b, got, c.want)
		}
	}
	if a, b := pairValues([]bool{true}); a != NoComparison || b != NoComparison {
		t.Fatalf("expected sentinel for short history, got %d %d", a, b)
	}
	if a, b := pairValues([]bool{false, true, true}); a != 1 || b != 2 {
		t.Fatalf("expected 1/2 for (T,T), got %d/%d", a, b)
	}
}

func TestTrends_RecordRoutesByCount(t *testing.T) {
	outcomes, _ := symbol.ParseList("BPBPPBBBP")
	tr := NewTrends(4)
	for i := range outcomes {
		tr.Record(outcomes, i)
	}
	wantAdj := map[ColumnType][]bool{
		ColumnA: {false, true, true},
		ColumnB: {false, false, false},
		ColumnC: {false, true},
	}
	wantWin := map[ColumnType][]bool{
		ColumnA: {true, false, false},
		ColumnB: {true, false},
		ColumnC: {false, true},
	}
	for _, col := range Columns {
		if got := tr.AdjacentHistory(col); !equalBools(got, wantAdj[col]) {
			t.Fatalf("adjacent %v = %v want %v", col, got, wantAdj[col])
		}
		if got := tr.WindowedHistory(col); !equalBools(got, wantWin[col]) {
			t.Fatalf("windowed %v = %v want %v", col, got, wantWin[col])
		}
	}
}

func equalBools(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestEngine_TrendTracksForScenario(t *testing.T) {
	e := newTestEngine(t)
	openAll(t, e, "BPBPPBBBP")

	tr := e.Trends()
	cases := []struct {
		kind TrackKind
		want []int
	}{
		{Track12, []int{-1, 4, 4, 1, 1}},
		{Track56, []int{-1, 3, 3, 2, 2}},
		{Track34, []int{-1, -1, 3, 3, 2}},
		{Track78, []int{-1, -1, 4, 4, 1}},
	}
	for _, c := range cases {
		got := trackValues(tr.Track(ColumnA, c.kind).Cells())
		if !equalInts(got, c.want) {
			t.Fatalf("track A.%v = %v want %v", c.kind, got, c.want)
		}
	}
}

func TestTrends_SentinelOnlyWithShortHistory(t *testing.T) {
	e := newTestEngine(t)
	openAll(t, e, "BPBPPBBBPPBPBBBPPPBPB")

	for _, col := range Columns {
		adjLen := len(e.Trends().AdjacentHistory(col))
		winLen := len(e.Trends().WindowedHistory(col))
		for _, kind := range TrackKinds {
			vals := trackValues(e.Trends().Track(col, kind).Cells())
			for _, v := range vals {
				if v < NoComparison || v == 0 || v > 4 {
					t.Fatalf("track %v.%v holds out-of-range value %d", col, kind, v)
				}
			}
			if (kind == Track12 || kind == Track56) && adjLen >= 2 && vals[len(vals)-1] == NoComparison {
				t.Fatalf("track %v.%v ends with sentinel despite %d adjacent entries", col, kind, adjLen)
			}
			if (kind == Track34 || kind == Track78) && winLen >= 2 && vals[len(vals)-1] == NoComparison {
				t.Fatalf("track %v.%v ends with sentinel despite %d windowed entries", col, kind, winLen)
			}
		}
	}
}
