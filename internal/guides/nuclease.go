package guides

import (
	"fmt"
	"sort"
	"strings"
)

// PAMSide is the side of the spacer that a nuclease's motif sits on
type PAMSide int

const (
	// ThreePrime motifs follow the spacer, ex: SpCas9's NGG
	ThreePrime PAMSide = iota

	// FivePrime motifs precede the spacer, ex: Cas12a's TTTV
	FivePrime
)

// String returns the side as it's written in the nuclease DB
func (s PAMSide) String() string {
	if s == FivePrime {
		return "5prime"
	}
	return "3prime"
}

// ParsePAMSide reads a side from its nuclease DB representation
func ParsePAMSide(s string) (PAMSide, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "3prime", "3'", "3":
		return ThreePrime, nil
	case "5prime", "5'", "5":
		return FivePrime, nil
	}
	return ThreePrime, fmt.Errorf("%w: unrecognized motif side %q", ErrInvalidProfile, s)
}

// MarshalText writes the side as "3prime" or "5prime"
func (s PAMSide) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Profile is a nuclease variant: the motif it recognizes and the spacer it cuts with.
// Profiles are values; the registry hands out copies.
type Profile struct {
	// Name of the nuclease, ex: SpCas9
	Name string `json:"name"`

	// PAM is the primary recognition motif in the degenerate nucleotide alphabet
	PAM string `json:"pam"`

	// AltPAMs are other motifs recognized with the same quality (xCas9's GAW)
	AltPAMs []string `json:"alt_pams,omitempty"`

	// SpacerLength is the guide length in bp
	SpacerLength int `json:"spacer_length"`

	// Side of the spacer that the motif is on
	Side PAMSide `json:"pam_side"`

	// QualityWeight is in [0, 1], 1 being a canonical, fully active motif
	QualityWeight float64 `json:"quality_weight"`

	// WeakPAMs are motifs cut at a reduced rate, mapped to their quality.
	// Only used to grade off-target sites
	WeakPAMs map[string]float64 `json:"weak_pams,omitempty"`

	motifs []motif
	weak   []weakMotif
}

type weakMotif struct {
	motif
	quality float64
}

// defaultMotifQuality is the quality of a motif that matches none of a profile's patterns
const defaultMotifQuality = 0.1

// builtinProfiles are the nucleases available without a nuclease DB
func builtinProfiles() []Profile {
	return []Profile{
		{
			Name:          "SpCas9",
			PAM:           "NGG",
			SpacerLength:  20,
			Side:          ThreePrime,
			QualityWeight: 1.0,
			WeakPAMs:      map[string]float64{"NAG": 0.3, "NGA": 0.2},
		},
		{
			Name:          "SaCas9",
			PAM:           "NNGRRT",
			SpacerLength:  21,
			Side:          ThreePrime,
			QualityWeight: 0.9,
		},
		{
			Name:          "Cas12a",
			PAM:           "TTTV",
			SpacerLength:  23,
			Side:          FivePrime,
			QualityWeight: 0.85,
		},
		{
			Name:          "Cas9-NG",
			PAM:           "NG",
			SpacerLength:  20,
			Side:          ThreePrime,
			QualityWeight: 0.7,
		},
		{
			Name:          "xCas9",
			PAM:           "NG",
			AltPAMs:       []string{"GAW"},
			SpacerLength:  20,
			Side:          ThreePrime,
			QualityWeight: 0.8,
		},
	}
}

// compile checks the profile and builds its motif matchers
func (p Profile) compile() (Profile, error) {
	if strings.TrimSpace(p.Name) == "" {
		return p, fmt.Errorf("%w: missing name", ErrInvalidProfile)
	}
	if p.SpacerLength < 1 {
		return p, fmt.Errorf("%w: %s spacer length %d", ErrInvalidProfile, p.Name, p.SpacerLength)
	}
	if p.QualityWeight < 0 || p.QualityWeight > 1 {
		return p, fmt.Errorf("%w: %s quality weight %.2f not in [0, 1]", ErrInvalidProfile, p.Name, p.QualityWeight)
	}

	p.motifs = nil
	for _, pattern := range append([]string{p.PAM}, p.AltPAMs...) {
		m, err := compileMotif(pattern)
		if err != nil {
			return p, fmt.Errorf("%s: %w", p.Name, err)
		}
		p.motifs = append(p.motifs, m)
	}
	p.PAM = p.motifs[0].pattern

	weakNames := make([]string, 0, len(p.WeakPAMs))
	for pattern := range p.WeakPAMs {
		weakNames = append(weakNames, pattern)
	}
	sort.Strings(weakNames)

	p.weak = nil
	for _, pattern := range weakNames {
		m, err := compileMotif(pattern)
		if err != nil {
			return p, fmt.Errorf("%s: %w", p.Name, err)
		}
		p.weak = append(p.weak, weakMotif{motif: m, quality: p.WeakPAMs[pattern]})
	}

	return p, nil
}

// MotifQuality grades a motif sequence found next to a site: the profile's own
// motifs get its quality weight, weak motifs their listed quality and anything
// else a floor of 0.1. An empty motif is unknown and graded 1.0 so that
// off-targets without motif data are never under-weighted.
// A motif longer than a pattern is matched on its spacer-adjacent bases
func (p Profile) MotifQuality(pam string) float64 {
	pam = strings.ToUpper(strings.TrimSpace(pam))
	if pam == "" {
		return 1.0
	}
	for _, m := range p.motifs {
		if p.adjacent(m, pam) {
			return p.QualityWeight
		}
	}
	for _, w := range p.weak {
		if p.adjacent(w.motif, pam) {
			return w.quality
		}
	}
	return defaultMotifQuality
}

// adjacent reports whether m matches the end of pam that touches the spacer
func (p Profile) adjacent(m motif, pam string) bool {
	if len(pam) < len(m.masks) {
		return false
	}
	if p.Side == FivePrime {
		return m.matchAt([]byte(pam), len(pam)-len(m.masks))
	}
	return m.matchAt([]byte(pam), 0)
}

// Registry is a name-keyed table of nuclease profiles. It's built once at
// startup and passed to whatever needs to resolve nucleases. Reads after that
// are safe from multiple goroutines, registration is not.
type Registry struct {
	profiles map[string]Profile
	builtin  map[string]bool
}

// NewRegistry returns a registry holding the built-in nucleases
func NewRegistry() *Registry {
	r := &Registry{
		profiles: make(map[string]Profile),
		builtin:  make(map[string]bool),
	}
	for _, p := range builtinProfiles() {
		if err := r.Register(p.Name, p); err != nil {
			panic(err) // the built-in table is static
		}
		r.builtin[key(p.Name)] = true
	}
	return r
}

// key normalizes nuclease names, lookups are case-insensitive
func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register stores a profile under name, replacing any custom profile of the same name
func (r *Registry) Register(name string, p Profile) error {
	p.Name = strings.TrimSpace(name)
	compiled, err := p.compile()
	if err != nil {
		return err
	}
	if r.builtin[key(name)] {
		return fmt.Errorf("%w: %s is built-in and can't be replaced", ErrInvalidProfile, name)
	}
	r.profiles[key(name)] = compiled
	return nil
}

// Get returns the profile registered under name
func (r *Registry) Get(name string) (Profile, error) {
	p, ok := r.profiles[key(name)]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	return p, nil
}

// Remove deletes a custom profile
func (r *Registry) Remove(name string) error {
	if r.builtin[key(name)] {
		return fmt.Errorf("%w: %s is built-in and can't be removed", ErrInvalidProfile, name)
	}
	if _, ok := r.profiles[key(name)]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	delete(r.profiles, key(name))
	return nil
}

// IsBuiltin reports whether name is one of the nucleases that ship with ksites
func (r *Registry) IsBuiltin(name string) bool {
	return r.builtin[key(name)]
}

// Profiles returns every registered profile sorted by name
func (r *Registry) Profiles() []Profile {
	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return key(out[i].Name) < key(out[j].Name) })
	return out
}

// Custom returns the registered profiles that aren't built-in, sorted by name
func (r *Registry) Custom() []Profile {
	var out []Profile
	for _, p := range r.Profiles() {
		if !r.IsBuiltin(p.Name) {
			out = append(out, p)
		}
	}
	return out
}

// Similar returns profiles whose names contain name or are within a small
// edit distance of it. Used to suggest nucleases when a lookup misses
func (r *Registry) Similar(name string) []Profile {
	ldCutoff := 2
	var containing, near []Profile
	for _, p := range r.Profiles() {
		if strings.Contains(key(p.Name), key(name)) {
			containing = append(containing, p)
		} else if len(p.Name) > ldCutoff && ld(name, p.Name, true) <= ldCutoff {
			near = append(near, p)
		}
	}
	return append(containing, near...)
}

// ld computes the Levenshtein distance between two strings
func ld(s, t string, ignoreCase bool) int {
	if ignoreCase {
		s = strings.ToUpper(s)
		t = strings.ToUpper(t)
	}
	d := make([][]int, len(s)+1)
	for i := range d {
		d[i] = make([]int, len(t)+1)
	}
	for i := range d {
		d[i][0] = i
	}
	for j := range d[0] {
		d[0][j] = j
	}
	for j := 1; j <= len(t); j++ {
		for i := 1; i <= len(s); i++ {
			if s[i-1] == t[j-1] {
				d[i][j] = d[i-1][j-1]
				continue
			}
			d[i][j] = min(d[i-1][j], d[i][j-1], d[i-1][j-1]) + 1
		}
	}
	return d[len(s)][len(t)]
}
