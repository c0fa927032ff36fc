package main

// See doc.go for documentation
import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"

	"github.com/grailbio/bigwig/encoding/bigwig"
)

var (
	region      = flag.String("region", "", "Region to query, as chrom:start-end (required)")
	cacheGap    = flag.Uint64("coalesce-gap", 0, "Byte gap below which adjacent data blocks are fetched together; 0 uses the package default")
	concurrency = flag.Int("concurrency", 0, "Maximum concurrent block-group fetches; 0 uses runtime.NumCPU()")
)

func main() {
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 1 || *region == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -region chrom:start-end file.bigWig\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	chrom, start, end, err := parseRegion(*region)
	if err != nil {
		log.Fatalf("%v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("bio-bigwig-query: opening %s: %v", path, err)
	}
	defer f.Close()

	header, err := readFileHeader(f)
	if err != nil {
		log.Fatalf("%v", err)
	}

	var decompressor bigwig.Decompressor
	if header.Compressed {
		decompressor = &bigwig.ZlibDecompressor{}
	}

	engine, err := bigwig.NewQueryEngine(&osFileReader{f: f}, header, decompressor)
	if err != nil {
		log.Fatalf("bio-bigwig-query: constructing query engine: %v", err)
	}

	opts := bigwig.QueryOptions{Concurrency: *concurrency}
	if *cacheGap > 0 {
		opts.Coalesce.MaxGap = *cacheGap
	}

	obs := &printingObserver{}
	ctx := vcontext.Background()
	if err := engine.ReadWigData(ctx, chrom, start, end, obs, opts); err != nil {
		log.Fatalf("bio-bigwig-query: %v", err)
	}
	if obs.err != nil {
		log.Fatalf("bio-bigwig-query: %v", obs.err)
	}
	log.Debug.Printf("bio-bigwig-query: %d features printed", obs.printed)
}

// printingObserver implements bigwig.Observer by writing one line per
// feature to stdout as it arrives, rather than buffering the whole
// result set.
type printingObserver struct {
	printed int
	err     error
}

func (o *printingObserver) Next(features []bigwig.Feature) {
	for _, feat := range features {
		o.printed++
		if feat.Summary {
			fmt.Printf("%d\t%d\t%.6g\t%.6g\t%.6g\n", feat.Start, feat.End, feat.Score, feat.MinScore, feat.MaxScore)
			continue
		}
		if feat.UniqueID != "" {
			fmt.Printf("%d\t%d\t%.6g\t%s\t%s\n", feat.Start, feat.End, feat.Score, feat.UniqueID, feat.Rest)
			continue
		}
		fmt.Printf("%d\t%d\t%.6g\n", feat.Start, feat.End, feat.Score)
	}
}

func (o *printingObserver) Complete() {}

func (o *printingObserver) Error(err error) {
	o.err = err
}
