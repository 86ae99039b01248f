package road

import "baccarat-road/symbol"

// NoComparison marks a track slot created before two history entries existed.
const NoComparison = -1

type TrackKind byte

const (
	Track12 TrackKind = 0
	Track34 TrackKind = 1
	Track56 TrackKind = 2
	Track78 TrackKind = 3
)

var TrackKinds = [4]TrackKind{Track12, Track34, Track56, Track78}

var TrackKindDictionary = map[TrackKind]string{
	Track12: "12",
	Track34: "34",
	Track56: "56",
	Track78: "78",
}

func (k TrackKind) String() string {
	if s, ok := TrackKindDictionary[k]; ok {
		return s
	}
	return "?"
}

// Track is a 2-slot trend sequence.
type Track struct {
	board
}

func NewTrack(minColumns int) *Track {
	return &Track{board: newBoard(2, minColumns)}
}

func (t *Track) Push(v int) {
	t.place(Cell{Value: v})
}

func (t *Track) Cells() []Column { return t.snapshot() }

// lookupPair 布尔对映射: TT->1 FF->2 TF->3 FT->4
func lookupPair(a, b bool) int {
	switch {
	case a && b:
		return 1
	case !a && !b:
		return 2
	case a && !b:
		return 3
	default:
		return 4
	}
}

// pairValues returns the lookup of the two most recent entries and of their
// negation, or NoComparison for both when history is too short.
func pairValues(history []bool) (int, int) {
	n := len(history)
	if n < 2 {
		return NoComparison, NoComparison
	}
	a, b := history[n-2], history[n-1]
	return lookupPair(a, b), lookupPair(!a, !b)
}

// Trends keeps the per-column compare histories and the 12 trend tracks.
type Trends struct {
	minColumns int

	adjacent [columnCount][]bool
	windowed [columnCount][]bool
	tracks   [columnCount][len(TrackKinds)]*Track
}

func NewTrends(minColumns int) *Trends {
	t := &Trends{minColumns: minColumns}
	t.Reset()
	return t
}

func (t *Trends) Reset() {
	for c := range t.tracks {
		t.adjacent[c] = nil
		t.windowed[c] = nil
		for k := range t.tracks[c] {
			t.tracks[c][k] = NewTrack(t.minColumns)
		}
	}
}

// Record appends the compare results produced by outcomes[i].
// Adjacent pairs go to column (n-2) mod 3 from count 2 on; skip-one pairs go
// to column (n-3) mod 3, the column of the triad that ends at i.
func (t *Trends) Record(outcomes []symbol.Symbol, i int) {
	n := i + 1
	if i >= 1 {
		c := (n - 2) % columnCount
		t.adjacent[c] = append(t.adjacent[c], outcomes[i] == outcomes[i-1])
	}
	if i >= 2 {
		c := (n - 3) % columnCount
		t.windowed[c] = append(t.windowed[c], outcomes[i] == outcomes[i-2])
	}
}

// OnFilled updates the tracks of the filled column and of the next one.
func (t *Trends) OnFilled(col ColumnType) {
	t.updateColumn(col)
	t.updateColumn(col.Next())
}

func (t *Trends) updateColumn(col ColumnType) {
	c := col.Index()
	v12, v56 := pairValues(t.adjacent[c])
	v34, v78 := pairValues(t.windowed[c])
	t.tracks[c][Track12].Push(v12)
	t.tracks[c][Track34].Push(v34)
	t.tracks[c][Track56].Push(v56)
	t.tracks[c][Track78].Push(v78)
}

func (t *Trends) Track(col ColumnType, kind TrackKind) *Track {
	return t.tracks[col.Index()][kind]
}

func (t *Trends) AdjacentHistory(col ColumnType) []bool {
	return append([]bool(nil), t.adjacent[col.Index()]...)
}

func (t *Trends) WindowedHistory(col ColumnType) []bool {
	return append([]bool(nil), t.windowed[col.Index()]...)
}
