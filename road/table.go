package road

import "slices"

// Cell is one slot of a road column or trend cell.
type Cell struct {
	Set        bool `json:"set"`
	Historical bool `json:"historical,omitempty"`
	Value      int  `json:"value"`
}

// Column holds the slots of one display column (3 for roads, 2 for tracks).
type Column []Cell

func (c Column) empty() bool {
	for _, cell := range c {
		if cell.Set {
			return false
		}
	}
	return true
}

func (c Column) Filled() int {
	n := 0
	for _, cell := range c {
		if cell.Set {
			n++
		}
	}
	return n
}

// board is the column layout shared by road tables and trend tracks:
// fill the last real column slot by slot, then open a new column, keeping
// at least minColumns columns by padding with empty ones.
type board struct {
	slots      int
	minColumns int
	columns    []Column
}

func newBoard(slots, minColumns int) board {
	b := board{slots: slots, minColumns: minColumns}
	b.reset()
	return b
}

func (b *board) reset() {
	b.columns = make([]Column, b.minColumns)
	for i := range b.columns {
		b.columns[i] = make(Column, b.slots)
	}
}

// lastReal returns the index of the last column holding a value, or -1.
func (b *board) lastReal() int {
	for i := len(b.columns) - 1; i >= 0; i-- {
		if !b.columns[i].empty() {
			return i
		}
	}
	return -1
}

// place stores cell and returns the slot index it landed in.
func (b *board) place(cell Cell) int {
	cell.Set = true
	last := b.lastReal()
	if last < 0 {
		b.columns[0][0] = cell
		return 0
	}
	col := b.columns[last]
	for slot := range col {
		if !col[slot].Set {
			col[slot] = cell
			return slot
		}
	}

	next := make(Column, b.slots)
	next[0] = cell
	b.columns = slices.Insert(b.columns, last+1, next)
	if n := len(b.columns); n > b.minColumns && b.columns[n-1].empty() {
		b.columns = b.columns[:n-1]
	}
	return 0
}

func (b *board) realColumns() int {
	return b.lastReal() + 1
}

func (b *board) snapshot() []Column {
	out := make([]Column, len(b.columns))
	for i, col := range b.columns {
		out[i] = append(Column(nil), col...)
	}
	return out
}

// Table is a 3-row road table (BPPC or WL).
type Table struct {
	board
}

func NewTable(minColumns int) *Table {
	return &Table{board: newBoard(columnCount, minColumns)}
}

// Advance places a classified triad and returns the row it filled, which is
// the column type the triad belongs to.
func (t *Table) Advance(id PatternID, historical bool) ColumnType {
	slot := t.place(Cell{Historical: historical, Value: int(id)})
	return Columns[slot]
}

func (t *Table) Reset() { t.reset() }

func (t *Table) Len() int { return len(t.columns) }

func (t *Table) RealColumns() int { return t.realColumns() }

func (t *Table) Columns() []Column { return t.snapshot() }
