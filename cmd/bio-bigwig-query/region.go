package main

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// parseRegion parses the "-region" flag's "chrom:start-end" format into
// the half-open [start, end) CoordRequest.Start/End pair used
// throughout the engine (§3). start/end are 0-based here, matching the
// on-disk coordinate space; this CLI does not offer the 1-based
// display convention some BigWig tools use.
func parseRegion(s string) (chrom string, start, end int32, err error) {
	chromAndRange := strings.SplitN(s, ":", 2)
	if len(chromAndRange) != 2 {
		return "", 0, 0, errors.Errorf("bio-bigwig-query: -region must be chrom:start-end, got %q", s)
	}
	chrom = chromAndRange[0]

	startAndEnd := strings.SplitN(chromAndRange[1], "-", 2)
	if len(startAndEnd) != 2 {
		return "", 0, 0, errors.Errorf("bio-bigwig-query: -region must be chrom:start-end, got %q", s)
	}
	startVal, err := strconv.ParseInt(startAndEnd[0], 10, 32)
	if err != nil {
		return "", 0, 0, errors.Wrapf(err, "bio-bigwig-query: parsing start of %q", s)
	}
	endVal, err := strconv.ParseInt(startAndEnd[1], 10, 32)
	if err != nil {
		return "", 0, 0, errors.Wrapf(err, "bio-bigwig-query: parsing end of %q", s)
	}
	if startVal > endVal {
		return "", 0, 0, errors.Errorf("bio-bigwig-query: start must not exceed end in %q", s)
	}
	return chrom, int32(startVal), int32(endVal), nil
}
