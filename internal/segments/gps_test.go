package segments

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want Time
	}{
		{"0", 0},
		{"1", Second},
		{"1.5", Second + Second/2},
		{"-0.5", -Second / 2},
		{"1000000000", FromInt(1000000000)},
		{"0.000000001", Nanosecond},
		{"+2.25", 2*Second + Second/4},
		{"inf", Infinity},
		{"-inf", NegInfinity},
	}

	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		if err != nil {
			t.Errorf("ParseTime(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTime(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseTimeInvalid(t *testing.T) {
	for _, in := range []string{"", ".", "abc", "1.2.3"} {
		if _, err := ParseTime(in); err == nil {
			t.Errorf("ParseTime(%q) should fail", in)
		}
	}
}

func TestTimeString(t *testing.T) {
	tests := []struct {
		in   Time
		want string
	}{
		{0, "0"},
		{Second, "1"},
		{Second + Second/2, "1.5"},
		{-Second / 2, "-0.5"},
		{Nanosecond, "0.000000001"},
		{Infinity, "inf"},
		{NegInfinity, "-inf"},
	}

	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("Time(%d).String() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTimeStringRoundTrip(t *testing.T) {
	values := []Time{0, 1, -1, Second, -Second, Second / 4, 3*Second + 7,
		FromInt(1126259462) + Second/2}
	for _, v := range values {
		got, err := ParseTime(v.String())
		if err != nil {
			t.Fatalf("round trip of %d failed: %v", v, err)
		}
		if got != v {
			t.Errorf("round trip of %d gave %d", v, got)
		}
	}
}

func TestCeilFloorSecond(t *testing.T) {
	tests := []struct {
		in        Time
		ceil, flr Time
	}{
		{FromSeconds(1.1), FromInt(2), FromInt(1)},
		{FromSeconds(3.9), FromInt(4), FromInt(3)},
		{FromInt(2), FromInt(2), FromInt(2)},
		{FromSeconds(-0.5), FromInt(0), FromInt(-1)},
		{FromSeconds(-2), FromInt(-2), FromInt(-2)},
	}

	for _, tt := range tests {
		if got := tt.in.CeilSecond(); got != tt.ceil {
			t.Errorf("CeilSecond(%s) = %s, want %s", tt.in, got, tt.ceil)
		}
		if got := tt.in.FloorSecond(); got != tt.flr {
			t.Errorf("FloorSecond(%s) = %s, want %s", tt.in, got, tt.flr)
		}
	}
}

func TestFromSecondsInf(t *testing.T) {
	if FromSeconds(math.Inf(1)) != Infinity {
		t.Error("expected Infinity")
	}
	if FromSeconds(math.Inf(-1)) != NegInfinity {
		t.Error("expected NegInfinity")
	}
}

func TestTimeJSON(t *testing.T) {
	type doc struct {
		T Time `json:"t"`
	}

	data, err := json.Marshal(doc{T: Second + Second/2})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"t":1.5}` {
		t.Errorf("unexpected JSON: %s", data)
	}

	var decoded doc
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.T != Second+Second/2 {
		t.Errorf("round trip gave %d", decoded.T)
	}

	// infinities are quoted
	data, err = json.Marshal(doc{T: Infinity})
	if err != nil {
		t.Fatalf("marshal inf failed: %v", err)
	}
	if string(data) != `{"t":"inf"}` {
		t.Errorf("unexpected JSON for inf: %s", data)
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal inf failed: %v", err)
	}
	if decoded.T != Infinity {
		t.Errorf("inf round trip gave %d", decoded.T)
	}
}
