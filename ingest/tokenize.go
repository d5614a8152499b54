package ingest

import (
	"github.com/indexwerk/mergesearch/pzcfg"
	"github.com/indexwerk/mergesearch/unitext"
)

// tokenize runs s through chain's tokenizer, returning its non-empty tokens
// in order - the common shape §4.A's façade feeds mergekey derivation,
// sortkey regeneration, and facet normalization.
func tokenize(chain pzcfg.CharsetChain, s string) []string {
	tok := unitext.NewTokenizer(chain.Locale, chain.Break)
	tok.AttachString(s)
	var out []string
	for {
		tk, ok := tok.NextString()
		if !ok {
			break
		}
		if tk != "" {
			out = append(out, tk)
		}
	}
	return out
}
