package guides

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// testGene has six SpCas9 guides that pass filtering and two AT-rich ones that don't
const testGene = "GATTACAGGCCTAGCTAGGATCCGATCGGACTGACCTAGCATCGGGAACTGCCGTACGTTATTATATTAAATATTATATATGG"

func newTestDesigner() *Designer {
	return NewDesigner(NewRegistry(), DefaultSettings(), zerolog.Nop())
}

func TestDesigner_Design(t *testing.T) {
	d := newTestDesigner()

	res, err := d.Design(Target{ID: "TP53", Seq: testGene}, "SpCas9", Input{})
	if err != nil {
		t.Fatal(err)
	}

	if res.Candidates != 8 {
		t.Errorf("Candidates = %d, want 8", res.Candidates)
	}
	if len(res.Rejected) != 2 {
		t.Errorf("Rejected = %d, want 2", len(res.Rejected))
	}
	for _, r := range res.Rejected {
		if !r.Verdict.Has(GCOutOfRange) {
			t.Errorf("rejected %s for %v, want %s", r.Site.Guide, r.Verdict.Violations, GCOutOfRange)
		}
	}

	want := []string{
		"CGATGCTAGGTCAGTCCGAT",
		"GATCGGACTGACCTAGCATC",
		"GTACGGCAGTTCCCGATGCT",
		"CGATCGGACTGACCTAGCAT",
		"AGGCCTAGCTAGGATCCGAT",
		"AGTCCGATCGGATCCTAGCT",
	}
	if got := guideNames(res.Guides); !reflect.DeepEqual(got, want) {
		t.Errorf("Guides = %v, want %v", got, want)
	}

	// rejected guides never reach scoring
	for _, g := range res.Guides {
		for _, r := range res.Rejected {
			if g.Guide == r.Site.Guide {
				t.Errorf("rejected guide %s was scored", g.Guide)
			}
		}
		if g.PathwayStatus != PathwayUnavailable || g.PathwayConflict {
			t.Errorf("%s PathwayStatus = %v, PathwayConflict = %v without pathway data", g.Guide, g.PathwayStatus, g.PathwayConflict)
		}
		if g.Severity() != Low || g.Specificity != 1.0 {
			t.Errorf("%s without off-targets: severity %v, specificity %v", g.Guide, g.Severity(), g.Specificity)
		}
	}
	if res.PathwayStatus != PathwayUnavailable {
		t.Errorf("PathwayStatus = %v, want %v", res.PathwayStatus, PathwayUnavailable)
	}
}

func TestDesigner_Design_offTargetsAndPathways(t *testing.T) {
	d := newTestDesigner()

	in := Input{
		OffTargets: map[string][]OffTargetRecord{
			"cgatgctaggtcagtccgat": {
				{Sequence: "CGATGCTAGGTCAGTCCGAT", GeneID: "MDM2", PAM: "AGG", Mismatches: mismatches(0)},
				{Sequence: "CGATGCTAGGTCAGTCCGTT", GeneID: "ACTB", MismatchPositions: []int{19}, Mismatches: mismatches(1)},
				{Sequence: "CGATGCTAGGTCAGTCCGTA", GeneID: "ACTB"},
			},
		},
		Pathways: PathwayMap{
			"tp53": {"apoptosis"},
			"mdm2": {"apoptosis"},
			"actb": {"cytoskeleton"},
		},
	}

	res, err := d.Design(Target{ID: "TP53", Seq: testGene}, "SpCas9", in)
	if err != nil {
		t.Fatal(err)
	}

	if res.PathwayStatus != PathwayChecked {
		t.Errorf("PathwayStatus = %v, want %v", res.PathwayStatus, PathwayChecked)
	}
	if res.MalformedOffTargets != 1 {
		t.Errorf("MalformedOffTargets = %d, want 1", res.MalformedOffTargets)
	}
	if !strings.Contains(strings.Join(res.Notes, "\n"), "malformed") {
		t.Errorf("Notes = %v, missing the malformed record note", res.Notes)
	}

	var guide ScoredGuide
	for _, g := range res.Guides {
		if g.Guide == "CGATGCTAGGTCAGTCCGAT" {
			guide = g
		} else if g.PathwayStatus != PathwayChecked || g.PathwayConflict {
			t.Errorf("%s PathwayStatus = %v, PathwayConflict = %v, want checked and conflict-free", g.Guide, g.PathwayStatus, g.PathwayConflict)
		}
	}

	if len(guide.OffTargets) != 2 {
		t.Fatalf("OffTargets = %+v, want 2", guide.OffTargets)
	}
	if !guide.PathwayConflict || !reflect.DeepEqual(guide.ConflictGenes, []string{"MDM2"}) {
		t.Errorf("PathwayConflict = %v, ConflictGenes = %v, want MDM2", guide.PathwayConflict, guide.ConflictGenes)
	}
	if !guide.OffTargets[0].PathwayConflict || guide.OffTargets[1].PathwayConflict {
		t.Errorf("off-target conflicts = %+v", guide.OffTargets)
	}
	if guide.Severity() != Critical {
		t.Errorf("Severity() = %v, want CRITICAL", guide.Severity())
	}
	if guide.Recommendation() != Critical.Recommendation() {
		t.Errorf("Recommendation() = %v", guide.Recommendation())
	}
	if guide.Specificity >= 1.0 {
		t.Errorf("Specificity = %v, want it lowered by off-targets", guide.Specificity)
	}
}

func TestDesigner_Design_errors(t *testing.T) {
	d := newTestDesigner()

	tests := []struct {
		name     string
		seq      string
		nuclease string
		wantErr  error
	}{
		{"unknown nuclease", testGene, "Cas99", ErrUnknownProfile},
		{"empty sequence", "", "SpCas9", ErrEmptySequence},
		{"RNA base", "ACGUACGU", "SpCas9", ErrInvalidSequence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := d.Design(Target{ID: "g", Seq: tt.seq}, tt.nuclease, Input{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Design() error = %v, want %v", err, tt.wantErr)
			}
			if res != nil {
				t.Errorf("Design() = %+v, want nil", res)
			}
		})
	}
}

func TestDesigner_Design_tooShort(t *testing.T) {
	res, err := newTestDesigner().Design(Target{ID: "g", Seq: "ACGTACGTNN"}, "SpCas9", Input{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.TooShort || len(res.Guides) != 0 || len(res.Notes) == 0 {
		t.Errorf("Design() = %+v, want an empty result flagged too short", res)
	}
}

func TestDesigner_Design_targetExons(t *testing.T) {
	target := Target{
		ID:          "TP53",
		Seq:         testGene,
		Exons:       []Exon{{Index: 1, Start: 0, End: 30}, {Index: 2, Start: 30, End: len(testGene)}},
		TargetExons: []int{1},
	}

	res, err := newTestDesigner().Design(target, "SpCas9", Input{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Candidates != 8 || res.OutsideTargetExons != 3 {
		t.Errorf("Candidates = %d, OutsideTargetExons = %d, want 8 and 3", res.Candidates, res.OutsideTargetExons)
	}
	if len(res.Guides) != 5 || len(res.Rejected) != 0 {
		t.Errorf("Guides = %d, Rejected = %d, want 5 and 0", len(res.Guides), len(res.Rejected))
	}
	for _, g := range res.Guides {
		if g.Exon == nil || g.Exon.Index != 1 {
			t.Errorf("%s in exon %+v, want exon 1", g.Guide, g.Exon)
		}
	}
}

func TestDesigner_Design_deterministic(t *testing.T) {
	d := newTestDesigner()
	in := Input{
		OffTargets: map[string][]OffTargetRecord{
			"GATCGGACTGACCTAGCATC": {
				{Sequence: "GATCGGACTGACCTAGCATT", MismatchPositions: []int{20}, Mismatches: mismatches(1)},
				{Sequence: "GTTCGGACTGACCTAGCATC", MismatchPositions: []int{2}, Mismatches: mismatches(1)},
			},
		},
		Pathways: PathwayMap{},
	}

	first, err := d.Design(Target{ID: "TP53", Seq: testGene}, "SpCas9", in)
	if err != nil {
		t.Fatal(err)
	}
	second, err := d.Design(Target{ID: "TP53", Seq: testGene}, "SpCas9", in)
	if err != nil {
		t.Fatal(err)
	}

	if first.ID == second.ID {
		t.Error("design runs share an ID")
	}
	if !reflect.DeepEqual(first.Guides, second.Guides) {
		t.Error("re-designing gave different guides")
	}
	for i := range first.Guides {
		if first.Guides[i].Severity() != second.Guides[i].Severity() {
			t.Errorf("%s severity changed between runs", first.Guides[i].Guide)
		}
	}
}

func TestDesigner_DesignAll(t *testing.T) {
	d := newTestDesigner()
	targets := []Target{
		{ID: "TP53", Seq: testGene},
		{ID: "SHORT", Seq: "ACGT"},
	}

	jobs := Jobs(targets, []string{"SpCas9", "Cas99"})
	if len(jobs) != 4 {
		t.Fatalf("Jobs() = %d jobs, want 4", len(jobs))
	}

	results := d.DesignAll(jobs, Input{})

	want := []struct {
		target, nuclease string
		fails            bool
	}{
		{"TP53", "SpCas9", false},
		{"TP53", "Cas99", true},
		{"SHORT", "SpCas9", false},
		{"SHORT", "Cas99", true},
	}
	for i, w := range want {
		r := results[i]
		if r.Target != w.target || r.Nuclease != w.nuclease {
			t.Errorf("results[%d] = %s/%s, want %s/%s", i, r.Target, r.Nuclease, w.target, w.nuclease)
		}
		if (r.Err != nil) != w.fails || (r.Result == nil) != w.fails {
			t.Errorf("results[%d] Err = %v, Result = %v", i, r.Err, r.Result)
		}
		if w.fails && !errors.Is(r.Err, ErrUnknownProfile) {
			t.Errorf("results[%d] Err = %v, want ErrUnknownProfile", i, r.Err)
		}
	}
	if len(results[0].Result.Guides) != 6 {
		t.Errorf("TP53 has %d guides, want 6", len(results[0].Result.Guides))
	}
	if !results[2].Result.TooShort {
		t.Error("SHORT should be too short")
	}
}

func Test_forEach(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		workers int
		wantMax int32
	}{
		{"one worker", 12, 1, 1},
		{"three workers", 12, 3, 3},
		{"more workers than calls", 2, 8, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var running, most, calls int32
			forEach(tt.n, tt.workers, func(i int) {
				now := atomic.AddInt32(&running, 1)
				for {
					prev := atomic.LoadInt32(&most)
					if now <= prev || atomic.CompareAndSwapInt32(&most, prev, now) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				atomic.AddInt32(&calls, 1)
			})

			if calls != int32(tt.n) {
				t.Errorf("forEach() made %d calls, want %d", calls, tt.n)
			}
			if most > tt.wantMax {
				t.Errorf("forEach() ran %d at once, want at most %d", most, tt.wantMax)
			}
		})
	}
}

func TestDesigner_DesignAll_workers(t *testing.T) {
	settings := DefaultSettings()
	settings.Workers = 1
	d := NewDesigner(NewRegistry(), settings, zerolog.Nop())

	targets := []Target{{ID: "A", Seq: testGene}, {ID: "B", Seq: testGene}, {ID: "C", Seq: testGene}}
	results := d.DesignAll(Jobs(targets, []string{"SpCas9"}), Input{})
	for i, r := range results {
		if r.Err != nil || r.Target != targets[i].ID || len(r.Result.Guides) != 6 {
			t.Errorf("results[%d] = %+v", i, r)
		}
	}
}

func TestScoredGuide_MarshalJSON(t *testing.T) {
	g := ScoredGuide{
		Site:          Site{Guide: "ACGTACGTACGTACGTACGT", PAM: "CGG", Strand: Forward},
		Nuclease:      "SpCas9",
		OffTargets:    []OffTargetHit{{Sequence: "ACGTACGTACGTACGTACGT", Risk: 0.6, Mismatches: 1, Severity: Critical}},
		PathwayStatus: PathwayUnavailable,
	}

	b, err := json.Marshal(g)
	if err != nil {
		t.Fatal(err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}

	checks := map[string]interface{}{
		"guide":            "ACGTACGTACGTACGTACGT",
		"strand":           "+",
		"nuclease":         "SpCas9",
		"severity":         "CRITICAL",
		"recommendation":   Critical.Recommendation(),
		"pathway_status":   "unavailable",
		"pathway_conflict": false,
	}
	for k, want := range checks {
		if got[k] != want {
			t.Errorf("%s = %v, want %v", k, got[k], want)
		}
	}
	if _, ok := got["efficiency"].(map[string]interface{}); !ok {
		t.Errorf("efficiency = %v, want an object", got["efficiency"])
	}
}
