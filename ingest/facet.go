package ingest

import (
	"strconv"
	"strings"

	"github.com/indexwerk/mergesearch/facet"
	"github.com/indexwerk/mergesearch/pzcfg"
)

// accumulateFacet implements add_facet (spec.md §4.E.3) for one pass-2
// metadata value: years/dates expand into both their min and max as separate
// facet values; everything else contributes its display text once.
func (p *Pipeline) accumulateFacet(ctx *RecordContext, f *pzcfg.MetadataField, v pzcfg.MetaValue, termFactor float64) {
	tl := ctx.Termlists(f.Name)
	if tl == nil {
		return
	}
	chain := p.svc.FacetChainFor(f)
	count := int64(termFactor + 0.5)
	if count < 1 {
		count = 1
	}

	if f.Kind == pzcfg.MetaYear || f.Kind == pzcfg.MetaDate {
		p.insertFacetValue(tl, chain, strconv.Itoa(v.Min), count)
		if v.Max != v.Min {
			p.insertFacetValue(tl, chain, strconv.Itoa(v.Max), count)
		}
		return
	}
	p.insertFacetValue(tl, chain, v.Disp, count)
}

func (p *Pipeline) insertFacetValue(tl *facet.Termlist, chain pzcfg.CharsetChain, display string, count int64) {
	toks := tokenize(chain, display)
	normalized := strings.Join(toks, " ")
	if normalized == "" {
		return
	}
	tl.Insert(display, normalized, count)
}
