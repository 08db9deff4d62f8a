package audio_test

import (
	"testing"

	"github.com/alnah/go-tracksplit/internal/audio"
)

// ---------------------------------------------------------------------------
// TestSilenceLocator_Locate - Nearest silent window around a target
// ---------------------------------------------------------------------------

func TestSilenceLocator_Locate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		length    int
		silences  [][2]int
		window    int
		target    int
		wantFound bool
		wantPos   int
	}{
		{
			name:      "silence just before target found backward nearest first",
			length:    400_000,
			silences:  [][2]int{{199_800, 199_950}},
			window:    20,
			target:    200_000,
			wantFound: true,
			wantPos:   199_850,
		},
		{
			name:      "silence straddling target found forward at target",
			length:    10_000,
			silences:  [][2]int{{4_900, 5_300}},
			window:    20,
			target:    5_000,
			wantFound: true,
			wantPos:   5_000,
		},
		{
			name:      "forward preferred over equally near backward",
			length:    20_000,
			silences:  [][2]int{{8_000, 8_200}, {11_000, 11_200}},
			window:    20,
			target:    10_000,
			wantFound: true,
			wantPos:   11_000,
		},
		{
			name:      "forward step 1 beats backward step 2",
			length:    20_000,
			silences:  [][2]int{{7_500, 7_700}, {11_500, 11_700}},
			window:    20,
			target:    10_000,
			wantFound: true,
			wantPos:   11_500,
		},
		{
			name:      "silence beyond window not found",
			length:    100_000,
			silences:  [][2]int{{70_000, 71_000}},
			window:    20,
			target:    40_000,
			wantFound: false,
			wantPos:   40_000,
		},
		{
			name:      "window zero only probes adjacent seconds",
			length:    20_000,
			silences:  [][2]int{{11_500, 11_700}},
			window:    0,
			target:    10_000,
			wantFound: false,
			wantPos:   10_000,
		},
		{
			name:      "silence shorter than analysis window ignored",
			length:    20_000,
			silences:  [][2]int{{10_200, 10_299}},
			window:    20,
			target:    10_000,
			wantFound: false,
			wantPos:   10_000,
		},
		{
			name:      "target beyond end probes backward into buffer",
			length:    10_000,
			silences:  [][2]int{{9_000, 9_200}},
			window:    20,
			target:    10_500,
			wantFound: true,
			wantPos:   9_100,
		},
		{
			name:      "window touching the end is valid",
			length:    10_000,
			silences:  [][2]int{{9_900, 10_000}},
			window:    1,
			target:    9_500,
			wantFound: true,
			wantPos:   9_900,
		},
		{
			name:      "negative offsets never probed",
			length:    5_000,
			silences:  [][2]int{{0, 100}},
			window:    5,
			target:    500,
			wantFound: true,
			wantPos:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := tone(tt.length, tt.silences...)
			l := audio.NewSilenceLocator(audio.WithSearchWindow(tt.window))

			found, pos := l.Locate(buf, tt.target)
			if found != tt.wantFound || pos != tt.wantPos {
				t.Errorf("Locate(%d) = (%v, %d), want (%v, %d)", tt.target, found, pos, tt.wantFound, tt.wantPos)
			}
			if found && buf.RMS(pos, pos+100) != 0 {
				t.Errorf("RMS(%d, %d) = %v, want 0", pos, pos+100, buf.RMS(pos, pos+100))
			}
		})
	}
}

func TestSilenceLocator_Deterministic(t *testing.T) {
	t.Parallel()

	buf := tone(60_000, [2]int{12_345, 12_900}, [2]int{30_000, 30_500})
	l := audio.NewSilenceLocator()

	first := l.Search(buf, 20_000)
	for range 5 {
		if got := l.Search(buf, 20_000); got != first {
			t.Fatalf("Search() = %+v, want %+v", got, first)
		}
	}
}

func TestSilenceLocator_SearchReportsStep(t *testing.T) {
	t.Parallel()

	buf := tone(30_000, [2]int{14_200, 14_400})
	l := audio.NewSilenceLocator()

	got := l.Search(buf, 10_000)
	want := audio.Match{Found: true, Position: 14_200, Step: 4, Forward: true}
	if got != want {
		t.Errorf("Search() = %+v, want %+v", got, want)
	}
}

func TestNewSilenceLocator_Defaults(t *testing.T) {
	t.Parallel()

	if got := audio.NewSilenceLocator().Window(); got != audio.DefaultSearchWindow {
		t.Errorf("Window() = %d, want %d", got, audio.DefaultSearchWindow)
	}
	if got := audio.NewSilenceLocator(audio.WithSearchWindow(-3)).Window(); got != audio.DefaultSearchWindow {
		t.Errorf("Window() with negative option = %d, want %d", got, audio.DefaultSearchWindow)
	}
}
