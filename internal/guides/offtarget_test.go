package guides

import (
	"errors"
	"reflect"
	"testing"
)

func mismatches(n int) *int {
	return &n
}

func quality(q float64) *float64 {
	return &q
}

func TestOffTargetScorer_Hit(t *testing.T) {
	tests := []struct {
		name         string
		nuclease     string
		rec          OffTargetRecord
		wantRisk     float64
		wantSeverity Severity
	}{
		{
			"two seed mismatches",
			"SpCas9",
			OffTargetRecord{Sequence: "ACGTACGTACGTACGTACCA", MismatchPositions: []int{18, 19}, Mismatches: mismatches(2)},
			0.01,
			Low,
		},
		{
			"perfect match next to a canonical motif",
			"SpCas9",
			OffTargetRecord{Sequence: "ACGTACGTACGTACGTACGT", PAM: "TGG", MismatchPositions: []int{}, Mismatches: mismatches(0)},
			1.0,
			Critical,
		},
		{
			"perfect match next to a weak motif",
			"SpCas9",
			OffTargetRecord{Sequence: "ACGTACGTACGTACGTACGT", PAM: "TAG", Mismatches: mismatches(0)},
			0.3,
			Medium,
		},
		{
			"explicit motif quality and a distal mismatch",
			"SpCas9",
			OffTargetRecord{Sequence: "TCGTACGTACGTACGTACGT", PAMQuality: quality(0.5), MismatchPositions: []int{1}, Mismatches: mismatches(1)},
			0.4,
			High,
		},
		{
			"three distal mismatches",
			"SpCas9",
			OffTargetRecord{Sequence: "TGATACGTACGTACGTACGT", MismatchPositions: []int{3, 1, 2}, Mismatches: mismatches(3)},
			0.512,
			Medium,
		},
		{
			"seed band flips for a 5' motif",
			"Cas12a",
			OffTargetRecord{Sequence: "GATCGATCGATCGATCGATCGAT", MismatchPositions: []int{1}, Mismatches: mismatches(1)},
			0.1,
			Low,
		},
		{
			"mid-spacer bands",
			"SpCas9",
			OffTargetRecord{Sequence: "ACGTACGTACGTACGTACGT", MismatchPositions: []int{10, 14}, Mismatches: mismatches(2)},
			0.6 * 0.4,
			Medium,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DefaultOffTargetScorer().Hit(tt.rec, mustProfile(t, tt.nuclease))
			if err != nil {
				t.Fatal(err)
			}
			if !near(got.Risk, tt.wantRisk) {
				t.Errorf("Hit() Risk = %v, want %v", got.Risk, tt.wantRisk)
			}
			if got.Severity != tt.wantSeverity {
				t.Errorf("Hit() Severity = %v, want %v", got.Severity, tt.wantSeverity)
			}
			if got.Risk < 0 || got.Risk > 1 {
				t.Errorf("Hit() Risk = %v outside [0, 1]", got.Risk)
			}
		})
	}
}

func TestOffTargetScorer_Hit_zeroMismatchIsMotifQuality(t *testing.T) {
	p := mustProfile(t, "SpCas9")
	for _, pam := range []string{"AGG", "CAG", "TGA", "CCC", ""} {
		got, err := DefaultOffTargetScorer().Hit(OffTargetRecord{PAM: pam, Mismatches: mismatches(0)}, p)
		if err != nil {
			t.Fatal(err)
		}
		if got.Risk != p.MotifQuality(pam) {
			t.Errorf("PAM %q: Risk = %v, want %v", pam, got.Risk, p.MotifQuality(pam))
		}
	}
}

func TestOffTargetScorer_Hit_malformed(t *testing.T) {
	tests := []struct {
		name string
		rec  OffTargetRecord
	}{
		{"missing count", OffTargetRecord{MismatchPositions: []int{3}}},
		{"negative count", OffTargetRecord{Mismatches: mismatches(-1)}},
		{"count disagrees with positions", OffTargetRecord{MismatchPositions: []int{3, 4}, Mismatches: mismatches(1)}},
		{"position past the spacer", OffTargetRecord{MismatchPositions: []int{21}, Mismatches: mismatches(1)}},
		{"zero position", OffTargetRecord{MismatchPositions: []int{0}, Mismatches: mismatches(1)}},
		{"duplicate position", OffTargetRecord{MismatchPositions: []int{5, 5}, Mismatches: mismatches(2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DefaultOffTargetScorer().Hit(tt.rec, mustProfile(t, "SpCas9"))
			if !errors.Is(err, ErrMalformedOffTarget) {
				t.Errorf("Hit() error = %v, want ErrMalformedOffTarget", err)
			}
		})
	}
}

func TestOffTargetScorer_Score(t *testing.T) {
	p := mustProfile(t, "SpCas9")
	site := Site{Guide: "ACGTACGTACGTACGTACGT", PAM: "CGG"}

	records := []OffTargetRecord{
		{Sequence: "ACGTACGTACGTACGTACCA", GeneID: "B", MismatchPositions: []int{18, 19}, Mismatches: mismatches(2)},
		{Sequence: "ACGTACGTACGTACGTACGT", GeneID: "A", PAM: "AGG", Mismatches: mismatches(0)},
		{Sequence: "TTTTACGTACGTACGTACGT", MismatchPositions: []int{1, 2, 3, 4, 5}, Mismatches: mismatches(5)},
		{Sequence: "ACGTACGTACGTACGTACGA"},
	}

	got := DefaultOffTargetScorer().Score(site, records, p)

	if got.Discarded != 1 {
		t.Errorf("Score() Discarded = %d, want 1", got.Discarded)
	}
	if got.Malformed != 1 {
		t.Errorf("Score() Malformed = %d, want 1", got.Malformed)
	}
	if len(got.Hits) != 2 {
		t.Fatalf("Score() kept %d hits, want 2", len(got.Hits))
	}
	if got.Hits[0].GeneID != "A" || got.Hits[1].GeneID != "B" {
		t.Errorf("Score() hits not ordered by risk: %+v", got.Hits)
	}

	// 1 - 0.03*2 - 0.25*(1.0+0.01) + (1.0-0.5)*0.1
	if want := 0.7375; !near(got.Specificity, want) {
		t.Errorf("Score() Specificity = %v, want %v", got.Specificity, want)
	}
	if sev := GuideSeverity(got.Hits); sev != Critical {
		t.Errorf("GuideSeverity() = %v, want CRITICAL", sev)
	}

	again := DefaultOffTargetScorer().Score(site, records, p)
	if !reflect.DeepEqual(got, again) {
		t.Errorf("re-scoring gave %+v, want %+v", again, got)
	}
}

func TestSpecificity(t *testing.T) {
	hit := func(risk float64) OffTargetHit { return OffTargetHit{Risk: risk} }
	many := make([]OffTargetHit, 20)

	tests := []struct {
		name    string
		hits    []OffTargetHit
		quality float64
		want    float64
	}{
		{"no off-targets, canonical motif clamps to 1", nil, 1.0, 1.0},
		{"no off-targets, weak motif", nil, 0.3, 0.98},
		{"no off-targets, custom motif graded 0.2", nil, 0.2, 0.97},
		{"one low-risk off-target", []OffTargetHit{hit(0.01)}, 0.5, 1 - 0.03 - 0.0025},
		{"count penalty caps at 0.4", many, 0.5, 0.6},
		{"severity penalty caps at 0.5", []OffTargetHit{hit(1), hit(1), hit(1)}, 0.5, 1 - 0.09 - 0.5},
		{"both penalties capped, poorest motif", append(many, hit(1), hit(1)), 0, 0.05},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Specificity(tt.hits, tt.quality); !near(got, tt.want) {
				t.Errorf("Specificity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGuideSeverity(t *testing.T) {
	tests := []struct {
		name string
		hits []OffTargetHit
		want Severity
	}{
		{"no off-targets", nil, Low},
		{"risk at 0.5 with 2 mismatches is high", []OffTargetHit{{Risk: 0.5, Mismatches: 2}}, High},
		{"risk above 0.5 with 2 mismatches", []OffTargetHit{{Risk: 0.51, Mismatches: 2}}, Critical},
		{"risk above 0.5 with 3 mismatches", []OffTargetHit{{Risk: 0.9, Mismatches: 3}}, Medium},
		{"risk above 0.5 with 4 mismatches", []OffTargetHit{{Risk: 0.9, Mismatches: 4}}, Low},
		{"worst hit wins", []OffTargetHit{{Risk: 0.01, Mismatches: 2}, {Risk: 0.2, Mismatches: 3}, {Risk: 0.35, Mismatches: 1}}, High},
		{"risk at 0.1 is low", []OffTargetHit{{Risk: 0.1, Mismatches: 1}}, Low},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GuideSeverity(tt.hits); got != tt.want {
				t.Errorf("GuideSeverity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_seedPenalty(t *testing.T) {
	sp := mustProfile(t, "SpCas9")
	cas12a := mustProfile(t, "Cas12a")

	tests := []struct {
		name string
		pos  int
		p    Profile
		want float64
	}{
		{"3' position 1", 1, sp, 0.20},
		{"3' position 7", 7, sp, 0.20},
		{"3' position 8", 8, sp, 0.40},
		{"3' position 12", 12, sp, 0.40},
		{"3' position 13", 13, sp, 0.60},
		{"3' position 16", 16, sp, 0.60},
		{"3' position 17", 17, sp, 0.90},
		{"3' position 20", 20, sp, 0.90},
		{"5' position 1", 1, cas12a, 0.90},
		{"5' position 5", 5, cas12a, 0.60},
		{"5' position 23", 23, cas12a, 0.20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := seedPenalty(tt.pos, tt.p); got != tt.want {
				t.Errorf("seedPenalty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeverity_MarshalText(t *testing.T) {
	for sev, want := range map[Severity]string{Low: "LOW", Medium: "MEDIUM", High: "HIGH", Critical: "CRITICAL"} {
		got, err := sev.MarshalText()
		if err != nil || string(got) != want {
			t.Errorf("MarshalText() = %s, %v, want %s", got, err, want)
		}
		if sev.Recommendation() == "" {
			t.Errorf("%s has no recommendation", sev)
		}
	}
}
