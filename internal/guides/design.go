package guides

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Target is a gene to design guides against
type Target struct {
	// ID is the gene identifier, matched against off-target and pathway gene ids
	ID string `json:"id"`

	// Seq is the gene's nucleotide sequence
	Seq string `json:"seq"`

	// Exons are [start, end) spans of Seq, optional
	Exons []Exon `json:"exons,omitempty"`

	// CDSStart is the start of the coding sequence in Seq, optional
	CDSStart *int `json:"cds_start,omitempty"`

	// TargetExons restricts design to sites starting in these exons, optional
	TargetExons []int `json:"target_exons,omitempty"`
}

// Input is the externally resolved data a design consumes
type Input struct {
	// OffTargets are the near-match sites of each guide, keyed by guide sequence
	OffTargets map[string][]OffTargetRecord

	// Pathways is the gene to pathway membership, nil if unavailable
	Pathways PathwayMap
}

// Result is the outcome of designing guides for one target with one nuclease
type Result struct {
	// ID identifies the design run
	ID uuid.UUID `json:"id"`

	Target   string `json:"target"`
	Nuclease string `json:"nuclease"`

	// Candidates is the number of sites the scanner found
	Candidates int `json:"candidates"`

	// Guides are the ranked guides that passed quality filtering
	Guides []ScoredGuide `json:"guides"`

	// Rejected are the candidates that failed quality filtering
	Rejected []Rejection `json:"rejected"`

	// PathwayStatus is whether pathway conflicts were checked
	PathwayStatus PathwayStatus `json:"pathway_status"`

	// TooShort is set when the sequence can't hold a single site
	TooShort bool `json:"too_short"`

	// OutsideTargetExons counts sites dropped by exon targeting
	OutsideTargetExons int `json:"outside_target_exons"`

	// MalformedOffTargets and DiscardedOffTargets count off-target records skipped
	// for bad mismatch data and for too many mismatches
	MalformedOffTargets int `json:"malformed_off_targets"`
	DiscardedOffTargets int `json:"discarded_off_targets"`

	// Notes are diagnostics about the run
	Notes []string `json:"notes,omitempty"`
}

// Settings are the tunable thresholds of a design
type Settings struct {
	Quality       QualityRules
	Efficiency    EfficiencyScorer
	MaxMismatches int

	// Workers is the most designs DesignAll runs at once, < 1 is GOMAXPROCS
	Workers int
}

// DefaultSettings are the thresholds used when nothing is configured
func DefaultSettings() Settings {
	return Settings{
		Quality:       DefaultQualityRules(),
		Efficiency:    DefaultEfficiencyScorer(),
		MaxMismatches: defaultMaxMismatches,
		Workers:       runtime.GOMAXPROCS(0),
	}
}

// Designer runs the guide design pipeline: scan, filter, score efficiency,
// score off-targets, annotate pathway conflicts and rank.
// A Designer holds no mutable state and can be used from multiple goroutines
type Designer struct {
	registry *Registry
	settings Settings
	log      zerolog.Logger
}

// NewDesigner returns a designer resolving nucleases from reg
func NewDesigner(reg *Registry, settings Settings, log zerolog.Logger) *Designer {
	return &Designer{registry: reg, settings: settings, log: log}
}

// Registry is the nuclease registry the designer resolves names against
func (d *Designer) Registry() *Registry {
	return d.registry
}

// Design finds, filters, scores and ranks the guides of a target for one nuclease.
// An unknown nuclease or an unusable sequence fails before any site is scanned;
// everything after that is reported on the Result
func (d *Designer) Design(t Target, nuclease string, in Input) (*Result, error) {
	profile, err := d.registry.Get(nuclease)
	if err != nil {
		return nil, err
	}
	if err := checkSequence(t.Seq); err != nil {
		return nil, fmt.Errorf("%s: %w", t.ID, err)
	}

	log := d.log.With().Str("gene", t.ID).Str("nuclease", profile.Name).Logger()
	pathways := in.Pathways.Normalize()
	start := time.Now()

	res := &Result{
		ID:            uuid.New(),
		Target:        t.ID,
		Nuclease:      profile.Name,
		Guides:        []ScoredGuide{},
		Rejected:      []Rejection{},
		PathwayStatus: pathways.Status(),
	}

	if minLen := profile.SpacerLength + len(profile.PAM); len(t.Seq) < minLen {
		res.TooShort = true
		note := fmt.Sprintf("sequence of %d bp is shorter than a %s site (%d bp)", len(t.Seq), profile.Name, minLen)
		res.Notes = append(res.Notes, note)
		log.Info().Int("length", len(t.Seq)).Msg("sequence too short for any site")
		return res, nil
	}

	targetExons := make(map[int]bool, len(t.TargetExons))
	for _, e := range t.TargetExons {
		targetExons[e] = true
	}

	offTargets := normalizeOffTargets(in.OffTargets)
	scorer := OffTargetScorer{MaxMismatches: d.settings.MaxMismatches, Log: log}

	for site := range NewTargetScanner(t, profile).Sites() {
		res.Candidates++

		if len(targetExons) > 0 && (site.Exon == nil || !targetExons[site.Exon.Index]) {
			res.OutsideTargetExons++
			continue
		}

		verdict := d.settings.Quality.Evaluate(site)
		if !verdict.Accept {
			res.Rejected = append(res.Rejected, Rejection{Site: site, Verdict: verdict})
			continue
		}

		ot := scorer.Score(site, offTargets[site.Guide], profile)
		res.MalformedOffTargets += ot.Malformed
		res.DiscardedOffTargets += ot.Discarded

		annotated := annotatePathways(t.ID, ot.Hits, pathways)
		res.Guides = append(res.Guides, ScoredGuide{
			Site:            site,
			Nuclease:        profile.Name,
			Efficiency:      d.settings.Efficiency.Score(site, profile),
			OffTargets:      annotated.hits,
			Specificity:     ot.Specificity,
			PathwayStatus:   annotated.status,
			PathwayConflict: annotated.conflict,
			ConflictGenes:   annotated.genes,
		})
	}
	Rank(res.Guides)

	if res.Candidates == 0 {
		res.Notes = append(res.Notes, fmt.Sprintf("no %s motif found", profile.Name))
	}
	if res.OutsideTargetExons > 0 {
		res.Notes = append(res.Notes, fmt.Sprintf("%d sites outside target exons %v", res.OutsideTargetExons, t.TargetExons))
	}
	if res.MalformedOffTargets > 0 {
		res.Notes = append(res.Notes, fmt.Sprintf("%d malformed off-target records skipped", res.MalformedOffTargets))
	}

	event := log.Info().
		Int("candidates", res.Candidates).
		Int("guides", len(res.Guides)).
		Int("rejected", len(res.Rejected)).
		Str("pathway_status", string(res.PathwayStatus))
	if res.PathwayStatus == PathwayChecked {
		event = event.Int("conflicts", conflicts(res.Guides))
	}
	event.Dur("elapsed", time.Since(start)).Msg("designed guides")

	return res, nil
}

// Job is one target and nuclease pair in a batch
type Job struct {
	Target   Target
	Nuclease string
}

// BatchResult is the outcome of one Job. Exactly one of Result and Err is set
type BatchResult struct {
	Target   string
	Nuclease string
	Result   *Result
	Err      error
}

// DesignAll designs every job concurrently, at most Settings.Workers at a time.
// Results are in the order of jobs and a failing job doesn't affect the others
func (d *Designer) DesignAll(jobs []Job, in Input) []BatchResult {
	results := make([]BatchResult, len(jobs))

	forEach(len(jobs), d.settings.Workers, func(i int) {
		job := jobs[i]
		res, err := d.Design(job.Target, job.Nuclease, in)
		if err != nil {
			d.log.Error().Str("gene", job.Target.ID).Str("nuclease", job.Nuclease).Err(err).Msg("design failed")
		}
		results[i] = BatchResult{
			Target:   job.Target.ID,
			Nuclease: job.Nuclease,
			Result:   res,
			Err:      err,
		}
	})

	return results
}

// forEach calls fn with 0..n-1 from at most workers goroutines at once
// and returns when every call has. workers < 1 is GOMAXPROCS
func forEach(n, workers int, fn func(i int)) {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	sem := make(chan struct{}, max(1, workers))

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer func() {
				<-sem
				wg.Done()
			}()
			fn(i)
		}(i)
	}
	wg.Wait()
}

// Jobs pairs every target with every nuclease, targets outermost
func Jobs(targets []Target, nucleases []string) []Job {
	jobs := make([]Job, 0, len(targets)*len(nucleases))
	for _, t := range targets {
		for _, n := range nucleases {
			jobs = append(jobs, Job{Target: t, Nuclease: n})
		}
	}
	return jobs
}

// checkSequence fails for an empty sequence or one with characters other than ACGTN
func checkSequence(seq string) error {
	if seq == "" {
		return ErrEmptySequence
	}
	for i := 0; i < len(seq); i++ {
		switch seq[i] {
		case 'A', 'C', 'G', 'T', 'N', 'a', 'c', 'g', 't', 'n':
		default:
			return fmt.Errorf("%w: %q at %d", ErrInvalidSequence, seq[i], i)
		}
	}
	return nil
}

// normalizeOffTargets upper-cases the guide keys of the off-target map
func normalizeOffTargets(m map[string][]OffTargetRecord) map[string][]OffTargetRecord {
	out := make(map[string][]OffTargetRecord, len(m))
	for guide, recs := range m {
		k := strings.ToUpper(strings.TrimSpace(guide))
		out[k] = append(out[k], recs...)
	}
	return out
}

// conflicts counts the guides with a pathway conflict
func conflicts(guides []ScoredGuide) int {
	n := 0
	for _, g := range guides {
		if g.PathwayConflict {
			n++
		}
	}
	return n
}
