package position

// Station orders per line, listed in the up direction. The main line runs
// up toward higher station numbers; the branches and the Nakanoshima line
// run up toward lower ones, ending at their junction with the main line.
var (
	mainUp = []int{
		1, 2, 3, 4, 5, 6, 7, 8, 9, 10,
		11, 12, 13, 14, 15, 16, 17, 18, 19, 20,
		21, 22, 23, 24, 25, 26, 27, 28, 29, 30,
		31, 32, 33, 34, 35, 36, 37, 38, 39, 40,
		41, 42,
	}
	nakanoshimaUp = []int{
		54, 53, 52, 51, 3, 4, 5, 6, 7, 8, 9, 10,
		11, 12, 13, 14, 15, 16, 17, 18, 19, 20,
		21, 22, 23, 24, 25, 26, 27, 28, 29, 30,
		31, 32, 33, 34, 35, 36, 37, 38, 39, 40,
		41, 42,
	}
	ujiUp    = []int{77, 76, 75, 74, 73, 72, 71, 28}
	katanoUp = []int{67, 66, 65, 64, 63, 62, 61, 21}
)

// Order returns the station sequence for line, running in the direction
// of travel for dir. The result is a fresh slice on every call.
func Order(line Line, dir Direction) []int {
	var src []int
	switch line {
	case LineNakanoshima:
		src = nakanoshimaUp
	case LineUji:
		src = ujiUp
	case LineKatano:
		src = katanoUp
	default:
		src = mainUp
	}
	out := make([]int, len(src))
	if dir == DirectionDown {
		for i, s := range src {
			out[len(src)-1-i] = s
		}
		return out
	}
	copy(out, src)
	return out
}

// Ahead picks which station of a position lies ahead in the direction of
// travel. For a stopped position it is the station itself. For a moving
// pair the main line orients opposite to the branches: up means the
// higher-numbered station on the main line and the lower-numbered one
// everywhere else.
func Ahead(p Position, dir Direction) int {
	if p.Stopped() {
		return p.Station
	}
	lo, hi := p.Station, p.Toward
	if lo > hi {
		lo, hi = hi, lo
	}
	if p.Line == LineMain {
		if dir == DirectionUp {
			return hi
		}
		return lo
	}
	if dir == DirectionUp {
		return lo
	}
	return hi
}
