package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kkokay07/K-Sites/internal/guides"
	"github.com/kkokay07/K-Sites/internal/logger"
	"github.com/kkokay07/K-Sites/internal/pathway"
	"github.com/kkokay07/K-Sites/internal/seqio"
)

// TargetRequest is a gene to design against
type TargetRequest struct {
	ID          string        `json:"id" validate:"required"`
	Seq         string        `json:"seq" validate:"required"`
	Exons       []guides.Exon `json:"exons"`
	CDSStart    *int          `json:"cds_start" validate:"omitempty,gte=0"`
	TargetExons []int         `json:"target_exons"`
}

// DesignRequest is the body of POST /v1/design
type DesignRequest struct {
	Targets []TargetRequest `json:"targets" validate:"required,min=1,max=100,dive"`

	// Nucleases to design with, the server's default if empty
	Nucleases []string `json:"nucleases" validate:"max=10,dive,required"`

	// OffTargets are the off-target records of each guide
	OffTargets map[string][]guides.OffTargetRecord `json:"off_targets"`

	// Pathways is gene to pathway membership. When left out the server's
	// pathway source is used, if it has one
	Pathways map[string][]string `json:"pathways"`

	MinEfficiency *float64 `json:"min_efficiency" validate:"omitempty,gte=0,lte=1"`
	Top           int      `json:"top" validate:"gte=0"`
}

// NucleaseResponse is a nuclease profile in GET /v1/nucleases
type NucleaseResponse struct {
	guides.Profile
	Builtin bool `json:"builtin"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) nucleases(w http.ResponseWriter, r *http.Request) {
	reg := s.designer.Registry()

	var out []NucleaseResponse
	for _, p := range reg.Profiles() {
		out = append(out, NucleaseResponse{Profile: p, Builtin: reg.IsBuiltin(p.Name)})
	}
	respond(w, r, http.StatusOK, out)
}

func (s *Server) design(w http.ResponseWriter, r *http.Request) {
	log := logger.C(r.Context(), s.log)
	start := time.Now()

	req, err := parseJSON[DesignRequest](r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	nucleases := req.Nucleases
	if len(nucleases) == 0 {
		nucleases = []string{s.opt.Nuclease}
	}
	if err := s.checkNucleases(nucleases); err != nil {
		respondError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	targets := make([]guides.Target, len(req.Targets))
	for i, t := range req.Targets {
		targets[i] = guides.Target{
			ID:          t.ID,
			Seq:         strings.ToUpper(strings.Join(strings.Fields(t.Seq), "")),
			Exons:       t.Exons,
			CDSStart:    t.CDSStart,
			TargetExons: t.TargetExons,
		}
	}

	in := guides.Input{OffTargets: req.OffTargets}
	if req.Pathways != nil {
		in.Pathways = guides.PathwayMap(req.Pathways)
	} else if s.opt.Pathways != nil {
		in.Pathways = pathway.Resolve(r.Context(), s.opt.Pathways, pathway.Genes(targets, req.OffTargets), log)
	}

	batch := s.designer.DesignAll(guides.Jobs(targets, nucleases), in)
	out := seqio.NewOutput(batch, time.Now(), time.Since(start).Seconds())

	minEfficiency := s.opt.MinEfficiency
	if req.MinEfficiency != nil {
		minEfficiency = *req.MinEfficiency
	}
	out.Results = seqio.View(out.Results, minEfficiency, req.Top)

	log.Info().
		Int("targets", len(targets)).
		Strs("nucleases", nucleases).
		Int("failures", len(out.Failures)).
		Msg("design request")

	respond(w, r, http.StatusOK, out)
}

// checkNucleases fails on the first unknown nuclease, suggesting similar names
func (s *Server) checkNucleases(names []string) error {
	reg := s.designer.Registry()
	for _, n := range names {
		if _, err := reg.Get(n); err != nil {
			if !errors.Is(err, guides.ErrUnknownProfile) {
				return err
			}
			var similar []string
			for _, p := range reg.Similar(n) {
				similar = append(similar, p.Name)
			}
			if len(similar) > 0 {
				return fmt.Errorf("%w, did you mean: %s", err, strings.Join(similar, ", "))
			}
			return err
		}
	}
	return nil
}
