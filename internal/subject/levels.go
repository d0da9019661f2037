package subject

// Level is an achievement level on the 1..7 scale.
type Level int

const (
	MinLevel Level = 1
	MaxLevel Level = 7

	MinMark = 0
	MaxMark = 100
)

// Band maps an inclusive percentage range to a level.
type Band struct {
	Low   int   `json:"low"`
	High  int   `json:"high"`
	Level Level `json:"level"`
}

// bands must stay non-overlapping and cover MinMark..MaxMark with no gaps.
var bands = [...]Band{
	{Low: 80, High: 100, Level: 7},
	{Low: 70, High: 79, Level: 6},
	{Low: 60, High: 69, Level: 5},
	{Low: 50, High: 59, Level: 4},
	{Low: 40, High: 49, Level: 3},
	{Low: 30, High: 39, Level: 2},
	{Low: 0, High: 29, Level: 1},
}

// LevelOf converts a percentage mark to its achievement level.
// Marks outside 0..100 are clamped; callers validate input with ValidMark.
func LevelOf(mark int) Level {
	if mark < MinMark {
		mark = MinMark
	}
	if mark > MaxMark {
		mark = MaxMark
	}
	for _, b := range bands {
		if mark >= b.Low {
			return b.Level
		}
	}
	return MinLevel
}

// ValidMark reports whether mark is a percentage in 0..100.
func ValidMark(mark int) bool {
	return mark >= MinMark && mark <= MaxMark
}

// Valid reports whether l is on the 1..7 scale.
func (l Level) Valid() bool {
	return l >= MinLevel && l <= MaxLevel
}

// Bands returns a copy of the conversion table, highest level first.
func Bands() []Band {
	out := make([]Band, len(bands))
	copy(out, bands[:])
	return out
}
