package veto

import (
	"strings"
	"testing"

	"github.com/dqtools/segments/internal/segments"
)

const sampleDefiner = `<?xml version="1.0"?>
<LIGO_LW>
  <Table Name="veto_definer:table">
    <Column Name="veto_definer:ifo" Type="lstring"/>
    <Column Name="veto_definer:name" Type="lstring"/>
    <Column Name="veto_definer:version" Type="int_4s"/>
    <Column Name="veto_definer:category" Type="int_4s"/>
    <Column Name="veto_definer:start_time" Type="int_4s"/>
    <Column Name="veto_definer:end_time" Type="int_4s"/>
    <Column Name="veto_definer:start_pad" Type="int_4s"/>
    <Column Name="veto_definer:end_pad" Type="int_4s"/>
    <Column Name="veto_definer:comment" Type="lstring"/>
    <Stream Name="veto_definer:table" Type="Local" Delimiter=",">
      "H1","ODC-INJECTION_CBC",1,3,1073779216,0,-8,8,"CBC injections",
      "L1","DMT-BAD_KAPPA",2,1,1000000000,1000100000,0,0,"calibration glitch",
      "L1","DMT-BAD_KAPPA",2,1,1000200000,1000300000,0,0,"calibration glitch"
    </Stream>
  </Table>
</LIGO_LW>`

func TestParse(t *testing.T) {
	rows, err := Parse(strings.NewReader(sampleDefiner))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	r := rows[0]
	if r.FlagName() != "H1:ODC-INJECTION_CBC:1" {
		t.Errorf("unexpected flag name %q", r.FlagName())
	}
	if r.Category != 3 {
		t.Errorf("Category = %d, want 3", r.Category)
	}
	if r.StartPad != segments.FromInt(-8) || r.EndPad != segments.FromInt(8) {
		t.Errorf("padding = (%s, %s), want (-8, 8)", r.StartPad, r.EndPad)
	}
	// zero end time means open-ended
	if r.End != segments.Infinity {
		t.Errorf("End = %s, want inf", r.End)
	}
}

func TestLoad(t *testing.T) {
	dict, err := Load(strings.NewReader(sampleDefiner))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(dict) != 2 {
		t.Fatalf("expected 2 flags, got %d", len(dict))
	}

	cbc, ok := dict["H1:ODC-INJECTION_CBC:1"]
	if !ok {
		t.Fatal("missing H1:ODC-INJECTION_CBC:1")
	}
	want := segments.List{segments.NewSegment(segments.FromInt(1073779216), segments.Infinity)}
	if !cbc.Known.Equal(want) {
		t.Errorf("known = %v, want %v", cbc.Known, want)
	}
	if cbc.Category != 3 {
		t.Errorf("category = %d, want 3", cbc.Category)
	}
	if cbc.Padding.Pre != segments.FromInt(-8) || cbc.Padding.Post != segments.FromInt(8) {
		t.Errorf("padding = %+v", cbc.Padding)
	}

	// two rows for the same flag merge their known spans
	kappa := dict["L1:DMT-BAD_KAPPA:2"]
	if kappa == nil {
		t.Fatal("missing L1:DMT-BAD_KAPPA:2")
	}
	if len(kappa.Known) != 2 {
		t.Errorf("expected 2 known spans, got %d", len(kappa.Known))
	}
}

func TestParseNoTable(t *testing.T) {
	_, err := Parse(strings.NewReader(`<?xml version="1.0"?><LIGO_LW></LIGO_LW>`))
	if err == nil {
		t.Error("expected error for document without veto_definer table")
	}
}

func TestParseEmptyCellStaysPositional(t *testing.T) {
	// a blank unquoted comment must parse as an empty field, not shift
	// the remaining columns
	doc := strings.Replace(sampleDefiner, `"CBC injections"`, "", 1)

	rows, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Comment != "" {
		t.Errorf("Comment = %q, want empty", rows[0].Comment)
	}
	if rows[1].FlagName() != "L1:DMT-BAD_KAPPA:2" {
		t.Errorf("row 2 misaligned: flag name %q", rows[1].FlagName())
	}
}

func TestParseRaggedStream(t *testing.T) {
	doc := strings.Replace(sampleDefiner, `"CBC injections",`, "", 1)
	if _, err := Parse(strings.NewReader(doc)); err == nil {
		t.Error("expected error for misaligned stream")
	}
}
