package road

import "strconv"

const (
	AmbiguousLetter = "-"

	gridDistinctTrigger = 5
	gridWindow          = 3
)

// GridRow is one candidate pattern: the antonym of a triad never seen in the column.
type GridRow struct {
	Title    string    `json:"title"`
	Items    [3]string `json:"items"`
	Obsolete bool      `json:"obsolete"`
}

type GridState struct {
	Active    bool      `json:"active"`
	Seen      int       `json:"seen"`
	Rows      []GridRow `json:"rows"`
	Opened    []string  `json:"opened"`
	Predicted []string  `json:"predicted"`
}

type gridColumn struct {
	seen   map[string]struct{}
	active bool

	rows      []GridRow
	pointer   int
	opened    []string
	predicted []string
}

// Grid is the 9-box predictor, one state per column.
type Grid struct {
	classifier *Classifier
	cols       [columnCount]gridColumn
}

func NewGrid(classifier *Classifier) *Grid {
	g := &Grid{classifier: classifier}
	g.Reset()
	return g
}

func (g *Grid) Reset() {
	for i := range g.cols {
		g.cols[i] = gridColumn{seen: make(map[string]struct{}, len(baseTriads))}
	}
}

// OnFilled feeds the triad that just filled col and the newest letter.
func (g *Grid) OnFilled(col ColumnType, triad string, letter string) {
	gc := &g.cols[col.Index()]
	gc.seen[triad] = struct{}{}
	if gc.active {
		gc.update(letter, true)
		return
	}
	if len(gc.seen) == gridDistinctTrigger {
		gc.activate(g.classifier)
		gc.update("", false)
	}
}

func (gc *gridColumn) activate(cl *Classifier) {
	gc.rows = gc.rows[:0]
	for i, p := range cl.Patterns() {
		if _, ok := gc.seen[p]; ok {
			continue
		}
		anto := cl.Antonym(p)
		row := GridRow{Title: strconv.Itoa(i + 1)}
		for j := 0; j < gridWindow; j++ {
			row.Items[j] = anto[j : j+1]
		}
		gc.rows = append(gc.rows, row)
	}
	gc.active = true
	gc.pointer = 0
	gc.opened = nil
	gc.predicted = nil
}

func (gc *gridColumn) update(letter string, hasLetter bool) {
	if hasLetter {
		gc.opened = append(gc.opened, letter)
		gc.pointer++
	}
	if gc.pointer >= gridWindow {
		gc.prune()
		gc.pointer = 0
		gc.opened = nil
	}

	alive := false
	for _, row := range gc.rows {
		if !row.Obsolete {
			alive = true
			break
		}
	}
	if !alive {
		return
	}

	pred := AmbiguousLetter
	first := ""
	agreed := true
	for _, row := range gc.rows {
		if row.Obsolete || !gc.matchesOpened(row) {
			continue
		}
		l := row.Items[gc.pointer]
		if first == "" {
			first = l
		} else if l != first {
			agreed = false
		}
	}
	if first != "" && agreed {
		pred = first
	}
	if len(gc.predicted) >= gridWindow {
		gc.predicted = nil
	}
	gc.predicted = append(gc.predicted, pred)
}

// prune marks rows where no opened letter matches its position.
func (gc *gridColumn) prune() {
	for i := range gc.rows {
		if gc.rows[i].Obsolete {
			continue
		}
		matched := false
		for j, l := range gc.opened {
			if j < gridWindow && gc.rows[i].Items[j] == l {
				matched = true
				break
			}
		}
		if !matched {
			gc.rows[i].Obsolete = true
		}
	}
}

func (gc *gridColumn) matchesOpened(row GridRow) bool {
	for j, l := range gc.opened {
		if j >= gridWindow || row.Items[j] != l {
			return false
		}
	}
	return true
}

func (g *Grid) State(col ColumnType) GridState {
	gc := g.cols[col.Index()]
	return GridState{
		Active:    gc.active,
		Seen:      len(gc.seen),
		Rows:      append([]GridRow(nil), gc.rows...),
		Opened:    append([]string(nil), gc.opened...),
		Predicted: append([]string(nil), gc.predicted...),
	}
}

// Candidates counts the rows not yet marked obsolete.
func (g *Grid) Candidates(col ColumnType) int {
	n := 0
	for _, row := range g.cols[col.Index()].rows {
		if !row.Obsolete {
			n++
		}
	}
	return n
}
