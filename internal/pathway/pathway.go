// Package pathway resolves gene to pathway membership from a TSV file or a
// Postgres gene_pathways table
package pathway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kkokay07/K-Sites/config"
	"github.com/kkokay07/K-Sites/internal/guides"
	"github.com/kkokay07/K-Sites/internal/seqio"
	"github.com/rs/zerolog"
)

// Source looks up the pathways of genes
type Source interface {
	// Pathways returns the memberships of genes. Genes without a pathway
	// are left out of the map
	Pathways(ctx context.Context, genes []string) (guides.PathwayMap, error)
}

// FileSource reads memberships from a gene/pathway TSV
type FileSource struct {
	Path string
}

// Pathways reads the file and keeps the requested genes
func (f FileSource) Pathways(ctx context.Context, genes []string) (guides.PathwayMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, err := seqio.ReadPathways(f.Path)
	if err != nil {
		return nil, err
	}
	return subset(m, genes), nil
}

// PGSource queries a gene_pathways(gene_id, pathway_id) table
type PGSource struct {
	Pool *pgxpool.Pool
}

// membershipQuery matches gene ids case-insensitively
const membershipQuery = `select gene_id, pathway_id from gene_pathways where upper(gene_id) = any($1) order by gene_id, pathway_id`

// OpenPG connects to the database at url and checks it's reachable
func OpenPG(ctx context.Context, url string) (*PGSource, error) {
	pcfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pathway database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to pathway database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach pathway database: %w", err)
	}
	return &PGSource{Pool: pool}, nil
}

// Pathways queries the memberships of genes
func (p *PGSource) Pathways(ctx context.Context, genes []string) (guides.PathwayMap, error) {
	upper := make([]string, len(genes))
	for i, g := range genes {
		upper[i] = strings.ToUpper(g)
	}

	rows, err := p.Pool.Query(ctx, membershipQuery, upper)
	if err != nil {
		return nil, fmt.Errorf("failed to query gene pathways: %w", err)
	}
	defer rows.Close()

	m := guides.PathwayMap{}
	for rows.Next() {
		var gene, pathway string
		if err := rows.Scan(&gene, &pathway); err != nil {
			return nil, fmt.Errorf("failed to scan gene pathway: %w", err)
		}
		m[gene] = append(m[gene], pathway)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read gene pathways: %w", err)
	}
	return m.Normalize(), nil
}

// Close closes the pool
func (p *PGSource) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

// ErrNoSource is returned by New when neither a file nor a database is configured
var ErrNoSource = errors.New("no pathway source configured")

// New returns the configured source, preferring the database over the file.
// The returned func releases the source
func New(ctx context.Context, c config.PathwayConfig) (Source, func(), error) {
	switch {
	case c.PostgresURL != "":
		src, err := OpenPG(ctx, c.PostgresURL)
		if err != nil {
			return nil, func() {}, err
		}
		return src, src.Close, nil
	case c.File != "":
		return FileSource{Path: c.File}, func() {}, nil
	default:
		return nil, func() {}, ErrNoSource
	}
}

// Resolve looks up the pathways of genes. A nil source or a failing lookup
// gives a nil map, which designs treat as pathway data being unavailable
func Resolve(ctx context.Context, src Source, genes []string, log zerolog.Logger) guides.PathwayMap {
	if src == nil {
		log.Info().Str("pathway_status", string(guides.PathwayUnavailable)).Msg("no pathway source, conflicts won't be checked")
		return nil
	}

	m, err := src.Pathways(ctx, genes)
	if err != nil {
		log.Warn().Err(err).Str("pathway_status", string(guides.PathwayUnavailable)).Msg("pathway lookup failed, conflicts won't be checked")
		return nil
	}
	if m == nil {
		m = guides.PathwayMap{}
	}

	log.Debug().Int("genes", len(genes)).Int("with_pathways", len(m)).Msg("resolved pathways")
	return m
}

// Genes are the target ids and every off-target gene id, upper-cased and sorted
func Genes(targets []guides.Target, offTargets map[string][]guides.OffTargetRecord) []string {
	seen := make(map[string]bool)
	add := func(g string) {
		if g = strings.ToUpper(strings.TrimSpace(g)); g != "" {
			seen[g] = true
		}
	}

	for _, t := range targets {
		add(t.ID)
	}
	for _, recs := range offTargets {
		for _, r := range recs {
			add(r.GeneID)
		}
	}

	genes := make([]string, 0, len(seen))
	for g := range seen {
		genes = append(genes, g)
	}
	sort.Strings(genes)
	return genes
}

// subset keeps the entries of m for genes
func subset(m guides.PathwayMap, genes []string) guides.PathwayMap {
	out := guides.PathwayMap{}
	for _, g := range genes {
		if p, ok := m[strings.ToUpper(g)]; ok {
			out[strings.ToUpper(g)] = p
		}
	}
	return out
}
