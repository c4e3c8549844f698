package guides

import (
	"iter"
	"sort"
	"strings"
)

// Strand of a candidate site relative to the input sequence
type Strand string

const (
	// Forward is the input sequence as given
	Forward Strand = "+"

	// Reverse is the reverse complement of the input sequence
	Reverse Strand = "-"
)

// Exon is a [Start, End) span of the input sequence with its exon number
type Exon struct {
	Index int `json:"index"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// ExonLocus places a site within an exon
type ExonLocus struct {
	// Index is the exon's number from the exon map
	Index int `json:"index"`

	// Offset of the site's forward-strand start from the exon's start
	Offset int `json:"offset"`

	// Region is the third of the exon the site falls in: early, middle or late.
	// Early cuts are more likely to cause a frameshift knockout
	Region string `json:"region"`
}

// Site is a candidate guide next to a recognition motif
type Site struct {
	// Guide is the spacer sequence, 5' to 3' on its own strand
	Guide string `json:"guide"`

	// PAM is the motif matched next to the spacer, 5' to 3' on the same strand
	PAM string `json:"pam"`

	// Strand the guide reads on
	Strand Strand `json:"strand"`

	// Position is the 0-based start of the spacer in the coordinates of its strand
	Position int `json:"position"`

	// Start and End are the spacer's [Start, End) span on the forward strand
	Start int `json:"start"`
	End   int `json:"end"`

	// Exon the spacer starts in, nil when there's no exon map or it's intronic
	Exon *ExonLocus `json:"exon,omitempty"`

	// Frame is the reading frame of the spacer's start relative to the CDS start
	Frame *int `json:"cds_frame,omitempty"`
}

// Scanner enumerates the candidate sites of a sequence for one nuclease
type Scanner struct {
	seq      []byte
	rc       []byte
	profile  Profile
	exons    []Exon
	cdsStart int
}

// ScanOption customizes a Scanner
type ScanOption func(*Scanner)

// WithCDSStart sets the forward-strand start of the coding sequence for frame annotation
func WithCDSStart(start int) ScanOption {
	return func(s *Scanner) {
		s.cdsStart = start
	}
}

// NewScanner prepares seq for scanning. exons may be nil
func NewScanner(seq string, p Profile, exons []Exon) *Scanner {
	upper := strings.ToUpper(seq)

	sorted := append([]Exon(nil), exons...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	return &Scanner{
		seq:      []byte(upper),
		rc:       []byte(revComp(upper)),
		profile:  p,
		exons:    sorted,
		cdsStart: -1,
	}
}

// NewTargetScanner is NewScanner for a Target, carrying its exon map and CDS start
func NewTargetScanner(t Target, p Profile) *Scanner {
	var opts []ScanOption
	if t.CDSStart != nil {
		opts = append(opts, WithCDSStart(*t.CDSStart))
	}
	s := NewScanner(t.Seq, p, t.Exons)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sites yields every candidate site: forward strand first, then the reverse strand,
// each in ascending spacer position. Overlapping sites are all kept.
// The sequence is finite and can be ranged over again for the same result
func (s *Scanner) Sites() iter.Seq[Site] {
	return func(yield func(Site) bool) {
		for _, strand := range []Strand{Forward, Reverse} {
			src := s.seq
			if strand == Reverse {
				src = s.rc
			}
			if !s.scanStrand(src, strand, yield) {
				return
			}
		}
	}
}

// scanStrand walks spacer windows on one strand, returns false if the consumer stopped
func (s *Scanner) scanStrand(src []byte, strand Strand, yield func(Site) bool) bool {
	n := len(src)
	spacer := s.profile.SpacerLength
	if spacer > n {
		return true
	}

	for ws := 0; ws+spacer <= n; ws++ {
		for _, m := range s.profile.motifs {
			// motif start for a spacer starting at ws
			ms := ws + spacer
			if s.profile.Side == FivePrime {
				ms = ws - len(m.masks)
			}
			if !m.matchAt(src, ms) {
				continue
			}

			window := src[ws : ws+spacer]
			if !isACGT(window) {
				continue
			}

			site := Site{
				Guide:    string(window),
				PAM:      string(src[ms : ms+len(m.masks)]),
				Strand:   strand,
				Position: ws,
				Start:    ws,
				End:      ws + spacer,
			}
			if strand == Reverse {
				site.Start = n - (ws + spacer)
				site.End = n - ws
			}
			site.Exon = s.locate(site.Start)
			site.Frame = s.frame(site.Start)

			if !yield(site) {
				return false
			}
		}
	}
	return true
}

// locate finds the exon containing a forward-strand position
func (s *Scanner) locate(pos int) *ExonLocus {
	i := sort.Search(len(s.exons), func(i int) bool { return s.exons[i].End > pos })
	if i >= len(s.exons) || s.exons[i].Start > pos {
		return nil
	}

	e := s.exons[i]
	rel := 0.5
	if e.End > e.Start {
		rel = float64(pos-e.Start) / float64(e.End-e.Start)
	}

	region := "late"
	if rel < 0.33 {
		region = "early"
	} else if rel < 0.67 {
		region = "middle"
	}

	return &ExonLocus{Index: e.Index, Offset: pos - e.Start, Region: region}
}

// frame is the codon position of pos in the CDS, nil before the CDS or without one
func (s *Scanner) frame(pos int) *int {
	if s.cdsStart < 0 || pos < s.cdsStart {
		return nil
	}
	f := (pos - s.cdsStart) % 3
	return &f
}
