package tokencost

import "testing"

func TestNodeCost(t *testing.T) {
	cases := []struct {
		name  string
		gist  string
		notes []string
		want  int
	}{
		{"empty", "", nil, BaseNodeTokens},
		{"gist only", "a gist of length 8", nil, BaseNodeTokens + len("a gist of length 8")/CharsPerToken},
		{
			name:  "gist and notes",
			gist:  "1234",
			notes: []string{"12345678", "12"},
			want:  BaseNodeTokens + 1 + 2 + 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NodeCost(tc.gist, tc.notes)
			if got != tc.want {
				t.Errorf("NodeCost(%q, %v) = %d, want %d", tc.gist, tc.notes, got, tc.want)
			}
		})
	}
}

func TestGraphCost(t *testing.T) {
	got := GraphCost([]int{20, 30, 40}, 2)
	want := 20 + 30 + 40 + 2*TokensPerEdge
	if got != want {
		t.Errorf("GraphCost = %d, want %d", got, want)
	}

	if GraphCost(nil, 0) != 0 {
		t.Errorf("expected zero cost for empty graph")
	}
}
