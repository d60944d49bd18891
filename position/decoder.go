package position

import "fmt"

// Line identifies one of the four lines on the network. The values match
// the line names the reference station feed uses as keys.
type Line string

const (
	LineMain        Line = "京阪本線・鴨東線"
	LineNakanoshima Line = "中之島線"
	LineUji         Line = "宇治線"
	LineKatano      Line = "交野線"
)

// Direction of travel. Up runs toward Demachiyanagi on the main line and
// toward the junction station on the branch lines; down runs toward Osaka
// and the branch termini.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// OutOfRangeError reports a grid coordinate outside the mapped diagram.
type OutOfRangeError struct {
	Col int
	Row int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("grid position (col=%d, row=%d) is outside the diagram", e.Col, e.Row)
}

// Position is the decoded location of a train. Toward is zero when the
// train is stopped at Station; otherwise the train is moving from Station
// toward Toward.
type Position struct {
	Line    Line
	Station int
	Toward  int
}

// Stopped reports whether the position is a single station rather than a
// segment between two.
func (p Position) Stopped() bool { return p.Toward == 0 }

const (
	mainTerminal   = 42 // 出町柳
	ujiJunction    = 28 // 中書島
	ujiFirst       = 71 // 観月橋
	ujiTerminal    = 77 // 宇治
	katanoJunction = 21 // 枚方市
	katanoFirst    = 61 // 宮之阪
	katanoTerminal = 67 // 私市
)

// Stations whose block renders its middle row as still stopped. These are
// the extended platform areas on the diagram: 出町柳, 枚方市, 京橋.
var dwellStations = map[int]bool{42: true, 21: true, 4: true}

// Decode maps a grid coordinate to a line and station(s). It is a pure
// function of its inputs. Rows 1-131 belong to the main line, with the
// Nakanoshima branch carved out of columns 1-2 from row 118; rows 132-153
// are the Uji line and rows 154-175 the Katano line.
func Decode(col, row int) (Position, error) {
	var line Line
	switch {
	case row >= 1 && row <= 131:
		if row >= 118 && (col == 1 || col == 2) {
			line = LineNakanoshima
		} else {
			line = LineMain
		}
	case row >= 132 && row <= 153:
		line = LineUji
	case row >= 154 && row <= 175:
		line = LineKatano
	default:
		return Position{}, &OutOfRangeError{Col: col, Row: row}
	}
	if col < 1 || col > 5 {
		return Position{}, &OutOfRangeError{Col: col, Row: row}
	}

	switch {
	case row <= 117:
		// Blocks of three rows counting down from 出町柳. Row offset 0 is
		// stopped, offsets 1-2 are moving toward the next lower station,
		// except at the extended platform stations where offset 1 still
		// counts as stopped.
		block := (row - 1) / 3
		station := mainTerminal - block
		offset := (row - 1) % 3
		if offset == 0 || (offset == 1 && dwellStations[station]) {
			return Position{Line: line, Station: station}, nil
		}
		return Position{Line: line, Station: station, Toward: station - 1}, nil

	case row <= 131:
		// Underground section: consecutive rows map to fixed stations
		// with no moving state.
		if row <= 120 {
			return Position{Line: line, Station: 3}, nil // 天満橋
		}
		if line == LineNakanoshima {
			switch {
			case row <= 123:
				return Position{Line: line, Station: 51}, nil // なにわ橋
			case row <= 126:
				return Position{Line: line, Station: 52}, nil // 大江橋
			case row <= 129:
				return Position{Line: line, Station: 53}, nil // 渡辺橋
			default:
				return Position{Line: line, Station: 54}, nil // 中之島
			}
		}
		switch {
		case row <= 123:
			return Position{Line: line, Station: 2}, nil // 北浜
		case row <= 126:
			return Position{Line: line, Station: 1}, nil // 淀屋橋
		default:
			// The main line ends at 淀屋橋; rows past 126 exist only on
			// the Nakanoshima side.
			return Position{}, &OutOfRangeError{Col: col, Row: row}
		}

	case row <= 153:
		return decodeBranch(line, row, 132, ujiJunction, ujiFirst, ujiTerminal), nil
	default:
		return decodeBranch(line, row, 154, katanoJunction, katanoFirst, katanoTerminal), nil
	}
}

// decodeBranch handles the two branch lines, which share a layout: three
// rows for the junction station (the third meaning departing toward the
// branch's first station), blocks of three per intermediate station, and a
// trailing single row for the terminal.
func decodeBranch(line Line, row, base, junction, first, terminal int) Position {
	switch {
	case row <= base+1:
		return Position{Line: line, Station: junction}
	case row == base+2:
		return Position{Line: line, Station: junction, Toward: first}
	case row == base+21:
		return Position{Line: line, Station: terminal}
	}
	block := (row - base - 3) / 3
	station := first + block
	if (row-base-3)%3 == 0 {
		return Position{Line: line, Station: station}
	}
	return Position{Line: line, Station: station, Toward: station + 1}
}
