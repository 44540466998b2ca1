package user_test

import (
	"testing"

	"github.com/skillswap/skillswap-api/internal/domain/user"
)

func TestLevelForTaught(t *testing.T) {
	cases := []struct {
		taught int
		want   int
	}{
		{0, 1},
		{4, 1},
		{5, 2},
		{14, 2},
		{15, 3},
		{29, 3},
		{30, 4},
		{49, 4},
		{50, 5},
		{120, 5},
	}
	for _, c := range cases {
		if got := user.LevelForTaught(c.taught); got != c.want {
			t.Errorf("LevelForTaught(%d) = %d, want %d", c.taught, got, c.want)
		}
	}
}
