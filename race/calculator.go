// Package race converts a pair of frozen skill ratings into race-to targets
// for the short and long contest lengths. The mapping is a pure lookup:
// each rating is clamped onto a discrete tier, and a fixed (tierA, tierB)
// table yields the target pair.
package race

// Tier breakpoints. A rating below the first breakpoint clamps to tier 1,
// a rating at or above the last clamps to the top tier.
var tierBreakpoints = []int{200, 300, 400, 500, 600, 700}

const tierCount = 7

// Pair holds race targets for the two participants in argument order.
type Pair struct {
	P1 int `json:"p1"`
	P2 int `json:"p2"`
}

// Targets holds the race-to pairs for both supported race lengths.
type Targets struct {
	Short Pair `json:"short"`
	Long  Pair `json:"long"`
}

// Tier maps a rating onto its 1-based skill tier.
func Tier(rating int) int {
	tier := 1
	for _, bp := range tierBreakpoints {
		if rating >= bp {
			tier++
		}
	}
	return tier
}

// Таблицы заполнены напрямую; симметричность проверяется тестами.
// shortTable[a-1][b-1] — цели (игрок уровня a, игрок уровня b) в короткой гонке.
var shortTable = [tierCount][tierCount]Pair{
	{{4, 4}, {3, 5}, {3, 6}, {2, 6}, {2, 7}, {2, 7}, {2, 7}},
	{{5, 3}, {4, 4}, {3, 5}, {3, 6}, {2, 6}, {2, 7}, {2, 7}},
	{{6, 3}, {5, 3}, {4, 4}, {3, 5}, {3, 6}, {2, 6}, {2, 7}},
	{{6, 2}, {6, 3}, {5, 3}, {4, 4}, {3, 5}, {3, 6}, {2, 6}},
	{{7, 2}, {6, 2}, {6, 3}, {5, 3}, {4, 4}, {3, 5}, {3, 6}},
	{{7, 2}, {7, 2}, {6, 2}, {6, 3}, {5, 3}, {4, 4}, {3, 5}},
	{{7, 2}, {7, 2}, {7, 2}, {6, 2}, {6, 3}, {5, 3}, {4, 4}},
}

var longTable = [tierCount][tierCount]Pair{
	{{6, 6}, {5, 7}, {5, 8}, {4, 8}, {4, 9}, {3, 9}, {3, 9}},
	{{7, 5}, {6, 6}, {5, 7}, {5, 8}, {4, 8}, {4, 9}, {3, 9}},
	{{8, 5}, {7, 5}, {6, 6}, {5, 7}, {5, 8}, {4, 8}, {4, 9}},
	{{8, 4}, {8, 5}, {7, 5}, {6, 6}, {5, 7}, {5, 8}, {4, 8}},
	{{9, 4}, {8, 4}, {8, 5}, {7, 5}, {6, 6}, {5, 7}, {5, 8}},
	{{9, 3}, {9, 4}, {8, 4}, {8, 5}, {7, 5}, {6, 6}, {5, 7}},
	{{9, 3}, {9, 3}, {9, 4}, {8, 4}, {8, 5}, {7, 5}, {6, 6}},
}

// ForRatings returns the short and long race targets for a rating pair.
func ForRatings(ratingP1, ratingP2 int) Targets {
	a := Tier(ratingP1) - 1
	b := Tier(ratingP2) - 1
	return Targets{
		Short: shortTable[a][b],
		Long:  longTable[a][b],
	}
}

// ForLength returns the target pair for a single race length. Unknown
// lengths fall back to the short race.
func ForLength(ratingP1, ratingP2 int, long bool) Pair {
	t := ForRatings(ratingP1, ratingP2)
	if long {
		return t.Long
	}
	return t.Short
}
