// Command pzsim is a small demo driver for the session core: it dispatches a
// search, replays a directory of fixture XML record files through
// session.IngestRecord, then shows the sorted cluster range and prints the
// xtargets termlist XML. It exists only to exercise
// the module end to end outside of a real target-client/HTTP stack, which
// is out of scope per spec.md §1.
package main

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v4"
	"github.com/vbauerster/mpb/v4/decor"

	"github.com/indexwerk/mergesearch/client"
	"github.com/indexwerk/mergesearch/pzcfg"
	"github.com/indexwerk/mergesearch/pzdb"
	"github.com/indexwerk/mergesearch/registry"
	"github.com/indexwerk/mergesearch/relevance"
	"github.com/indexwerk/mergesearch/session"
)

const progressBarWidth = 64

func main() {
	app := cli.NewApp()
	app.Name = "pzsim"
	app.Usage = "replay bibliographic record fixtures through a session and print the merged result"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "fixtures", Usage: "directory of *.xml record fixtures to ingest (required)"},
		cli.StringFlag{Name: "db", Value: "demo", Usage: "the fixture's originating database name"},
		cli.StringFlag{Name: "query", Value: "*", Usage: "query text to dispatch before ingest"},
		cli.StringFlag{Name: "sort", Value: "title:1", Usage: "sort parameter chain for the final show_range"},
		cli.BoolFlag{Name: "verbose", Usage: "show a progress bar while ingesting"},
	}
	app.Action = runDemo

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "pzsim:", err)
		os.Exit(1)
	}
}

func runDemo(c *cli.Context) error {
	fixtureDir := c.String("fixtures")
	if fixtureDir == "" {
		return cli.NewExitError("missing required flag --fixtures", 1)
	}
	dbName := c.String("db")

	files, err := fixtureFiles(fixtureDir)
	if err != nil {
		return err
	}

	reg, err := registry.New()
	if err != nil {
		return err
	}
	defer reg.Close()

	svc := demoService()
	cl := client.NewFakeClient(dbName)
	db := pzdb.NewSessionDatabase(&pzdb.TargetDef{ID: dbName, Defaults: map[string]string{}})

	se, err := reg.Create(session.Config{
		Service:   svc,
		Databases: []*pzdb.SessionDatabase{db},
		NewClient: func(*pzdb.SessionDatabase) client.Client { return cl },
		NewRelevance: func() relevance.Relevance {
			return relevance.NewTermFrequency(strings.Fields(c.String("query")))
		},
	})
	if err != nil {
		return err
	}
	defer reg.Destroy(se.ID())

	if _, err := se.Search(context.Background(), c.String("query"), 0, len(files), session.ParseFilter("*"), "", ""); err != nil {
		return fmt.Errorf("search: %w", err)
	}

	var bar *mpb.Bar
	var p *mpb.Progress
	if c.Bool("verbose") {
		p = mpb.New(mpb.WithWidth(progressBarWidth))
		bar = p.AddBar(
			int64(len(files)),
			mpb.PrependDecorators(
				decor.Name("Ingesting fixtures:", decor.WC{W: 20, C: decor.DidentRight}),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(decor.Percentage(decor.WCSyncWidth)),
		)
	}

	ingested, dropped, filtered := 0, 0, 0
	for i, path := range files {
		text, rerr := ioutil.ReadFile(path)
		if rerr != nil {
			return rerr
		}
		switch se.IngestRecord(cl, dbName, i+1, len(files), string(text)) {
		case 0:
			ingested++
		case 2:
			filtered++
		default:
			dropped++
		}
		if bar != nil {
			bar.Increment()
		}
	}
	if p != nil {
		p.Wait()
	}

	fmt.Printf("ingested=%d dropped=%d filtered=%d\n", ingested, dropped, filtered)

	clusters, total, sumhits, approx, err := se.ShowRangeStart(c.String("sort"), 0, len(files))
	se.ShowRangeStop()
	if err != nil {
		return fmt.Errorf("show_range: %w", err)
	}
	fmt.Printf("total=%d sumhits=%d approx=%d\n", total, sumhits, approx)
	for _, cluster := range clusters {
		fmt.Println(" -", cluster.RecID)
	}

	fmt.Println(se.PerformTermlist([]string{"xtargets"}, 10, 2))
	return nil
}

func fixtureFiles(dir string) ([]string, error) {
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".xml") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// demoService builds a small but real Service covering the title/date/medium
// fields spec.md §8's S1-S6 scenarios use, so pzsim is useful without any
// external configuration.
func demoService() *pzcfg.Service {
	return pzcfg.NewService(
		[]pzcfg.MetadataField{
			{Name: "title", Index: 0, Kind: pzcfg.MetaGeneric, Merge: pzcfg.MergeLongest, MergeKey: pzcfg.MergeKeyOptional, SortKeyIndex: 0, Termlist: true},
			{Name: "date", Index: 1, Kind: pzcfg.MetaYear, Merge: pzcfg.MergeRange, MergeKey: pzcfg.MergeKeyNo, SortKeyIndex: 1, Termlist: true},
			{Name: "medium", Index: 2, Kind: pzcfg.MetaGeneric, Merge: pzcfg.MergeUnique, MergeKey: pzcfg.MergeKeyNo, SortKeyIndex: -1, Termlist: true},
		},
		[]pzcfg.SortKeyDef{{Name: "title", Index: 0}, {Name: "date", Index: 1}},
		nil,
	)
}
