package session

import (
	"encoding/xml"
	"sort"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/indexwerk/mergesearch/client"
	"github.com/indexwerk/mergesearch/merge"
)

// ShowRangeStart implements show_range_start, per spec.md §4.G: rebuild the
// limited/sorted view, sum hits/approximation across active clients, then
// read up to num clusters starting at start. The session lock is acquired
// here and retained across the call; the caller must call ShowRangeStop
// exactly once to release it, giving it a stable snapshot to serialize.
func (se *Session) ShowRangeStart(sp string, start, num int) (clusters []*merge.Cluster, total, sumhits, approx int, err error) {
	se.mu.Lock()

	var parms *merge.SortParms
	if sp != "" {
		parms, err = merge.ParseSortParms(sp, se.svc)
		if err != nil {
			se.mu.Unlock()
			return nil, 0, 0, 0, err
		}
	}

	se.reclist.Limit(se.clusterLimitFunc())
	if parms.HasRelevanceStep() && se.relevance != nil {
		se.relevance.PrepareRead(se.reclist)
	}
	se.reclist.Sort(parms)

	for _, cl := range se.clientsActive {
		sumhits += cl.Hits()
		approx += cl.Approximation()
	}

	se.reclist.Enter()
	for i := 0; i < start; i++ {
		if se.reclist.ReadRecord() == nil {
			break
		}
	}
	for i := 0; i < num; i++ {
		c := se.reclist.ReadRecord()
		if c == nil {
			break
		}
		clusters = append(clusters, c)
	}
	se.reclist.Leave()

	total = se.reclist.NumRecords()
	return clusters, total, sumhits, approx, nil
}

// ShowRangeStop releases the session lock ShowRangeStart retained.
func (se *Session) ShowRangeStop() {
	se.mu.Unlock()
}

// ShowSingleStart implements show_single_start: a linear scan under the
// reclist cursor returning the cluster identified by id plus its immediate
// predecessor/successor in the currently materialized sort order. The
// session lock is acquired here and retained until ShowSingleStop.
func (se *Session) ShowSingleStart(id string) (rec, prev, next *merge.Cluster) {
	se.mu.Lock()
	se.reclist.Enter()
	defer se.reclist.Leave()

	var last *merge.Cluster
	for {
		c := se.reclist.ReadRecord()
		if c == nil {
			break
		}
		if c.RecID == id {
			rec = c
			prev = last
			next = se.reclist.ReadRecord()
			break
		}
		last = c
	}
	return rec, prev, next
}

// ShowSingleStop releases the session lock ShowSingleStart retained.
func (se *Session) ShowSingleStop() {
	se.mu.Unlock()
}

// PerformTermlist implements perform_termlist, per spec.md §4.G/§6:
// renders one "<list name=...>...</list>" block per requested facet name.
// The synthetic name "xtargets" emits per-client target status instead of
// facet terms, sorted by hits (version 1) or approximation (version >= 2).
func (se *Session) PerformTermlist(names []string, num, version int) string {
	se.mu.Lock()
	defer se.mu.Unlock()

	var b strings.Builder
	for _, name := range names {
		if name == "xtargets" {
			b.WriteString(se.xtargetsXML(version))
			continue
		}
		b.WriteString(`<list name="`)
		b.WriteString(xmlEscape(name))
		b.WriteString(`">`)
		if tl, ok := se.termlists[name]; ok {
			for _, e := range tl.Highscore(num) {
				b.WriteString("<term><name>")
				b.WriteString(xmlEscape(e.Display))
				b.WriteString("</name><frequency>")
				b.WriteString(strconv.FormatInt(e.Count, 10))
				b.WriteString("</frequency></term>")
			}
		}
		b.WriteString("</list>")
	}
	return b.String()
}

// xtargetsXML renders the xtargets synthetic termlist. Caller must hold
// se.mu.
func (se *Session) xtargetsXML(version int) string {
	type entry struct {
		cl client.Client
	}
	entries := make([]entry, 0, len(se.clientsActive))
	for _, cl := range se.clientsActive {
		entries = append(entries, entry{cl: cl})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if version >= 2 {
			return entries[i].cl.Approximation() > entries[j].cl.Approximation()
		}
		return entries[i].cl.Hits() > entries[j].cl.Hits()
	})

	var b strings.Builder
	b.WriteString(`<list name="xtargets">`)
	for _, e := range entries {
		cl := e.cl
		b.WriteString("<term><id>")
		b.WriteString(xmlEscape(cl.Database()))
		b.WriteString("</id><hits>")
		b.WriteString(strconv.Itoa(cl.Hits()))
		b.WriteString("</hits>")
		if version >= 2 {
			b.WriteString("<approximation>")
			b.WriteString(strconv.Itoa(cl.Approximation()))
			b.WriteString("</approximation>")
		}
		b.WriteString("<records>")
		b.WriteString(strconv.Itoa(cl.NumRecords()))
		b.WriteString("</records><filtered>")
		b.WriteString(strconv.Itoa(cl.NumRecordsFiltered()))
		b.WriteString("</filtered><state>")
		b.WriteString(xmlEscape(cl.GetState().String()))
		b.WriteString("</state><diagnostic>")
		b.WriteString(xmlEscape(cl.Diagnostic()))
		b.WriteString("</diagnostic>")
		if db := se.databaseFor(cl); db != nil {
			if dump, err := jsoniter.MarshalToString(db.SettingsSnapshot()); err == nil {
				b.WriteString("<settings>")
				b.WriteString(xmlEscape(dump))
				b.WriteString("</settings>")
			}
		}
		b.WriteString("</term>")
	}
	b.WriteString("</list>")
	return b.String()
}

// Stats is statistics()'s return shape, per spec.md §4.G and SPEC_FULL.md
// §6.F/6.G's supplemented sumhits/sumapprox aggregates.
type Stats struct {
	Counts    map[client.State]int
	SumHits   int
	SumApprox int
}

// Statistics implements statistics(): active-client state counts plus
// summed hits/approximation.
func (se *Session) Statistics() Stats {
	se.mu.Lock()
	defer se.mu.Unlock()

	st := Stats{Counts: make(map[client.State]int)}
	for _, cl := range se.clientsActive {
		st.Counts[cl.GetState()]++
		st.SumHits += cl.Hits()
		st.SumApprox += cl.Approximation()
	}
	return st
}

// xmlEscape escapes s for embedding as XML character data. This is the one
// place this module reaches for stdlib encoding/xml rather than beevik/etree:
// etree builds and queries a DOM, but these reader APIs hand-assemble small
// XML fragments directly into a strings.Builder (mirroring
// original_source/src/session.c's wrbuf-based XML emission), so only the
// escaping primitive is needed.
func xmlEscape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
