package model

import (
	"testing"
	"time"
)

var base = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func span(from, to int) TimeInterval {
	return TimeInterval{StartTime: base.Add(time.Duration(from) * time.Second), EndTime: base.Add(time.Duration(to) * time.Second)}
}

func TestTimeIntervalContainsIsClosed(t *testing.T) {
	w := span(0, 10)
	for _, s := range []int{0, 5, 10} {
		if !w.Contains(base.Add(time.Duration(s) * time.Second)) {
			t.Fatalf("Contains(+%ds) = false, want true", s)
		}
	}
	if w.Contains(base.Add(-time.Nanosecond)) || w.Contains(base.Add(10*time.Second+time.Nanosecond)) {
		t.Fatalf("Contains accepted an instant outside the interval")
	}
}

func TestTimeIntervalIntersect(t *testing.T) {
	tests := []struct {
		name   string
		a, b   TimeInterval
		want   TimeInterval
		wantOK bool
	}{
		{"nested", span(0, 10), span(2, 4), span(2, 4), true},
		{"partial", span(0, 10), span(5, 20), span(5, 10), true},
		{"touching", span(0, 10), span(10, 20), span(10, 10), true},
		{"disjoint", span(0, 10), span(11, 20), TimeInterval{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, pair := range [][2]TimeInterval{{tt.a, tt.b}, {tt.b, tt.a}} {
				got, ok := pair[0].Intersect(pair[1])
				if ok != tt.wantOK {
					t.Fatalf("Intersect ok = %v, want %v", ok, tt.wantOK)
				}
				if ok && (!got.StartTime.Equal(tt.want.StartTime) || !got.EndTime.Equal(tt.want.EndTime)) {
					t.Fatalf("Intersect = %v, want %v", got, tt.want)
				}
				if pair[0].Overlaps(pair[1]) != tt.wantOK {
					t.Fatalf("Overlaps disagrees with Intersect")
				}
			}
		})
	}
}
