// Package region provides genomic intervals on a linearized, genome-wide
// coordinate axis so that ranges on different chromosomes can be compared
// with a single integer.
package region

import (
	"fmt"
	"strconv"
	"strings"
)

// chromFactor separates chromosomes on the linear axis. No human chromosome
// is longer than 1e9 bases.
const chromFactor = 1_000_000_000

// ChromIndex returns the numeric index of a chromosome: 1-22, X=23, Y=24,
// M/MT=25. A leading "chr" is ignored.
func ChromIndex(chrom string) (int64, bool) {
	c := strings.TrimPrefix(chrom, "chr")
	switch strings.ToUpper(c) {
	case "X":
		return 23, true
	case "Y":
		return 24, true
	case "M", "MT":
		return 25, true
	}
	n, err := strconv.ParseInt(c, 10, 64)
	if err != nil || n < 1 || n > 22 {
		return 0, false
	}
	return n, true
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func NormalizeChrom(chrom string) string {
	if len(chrom) > 3 && chrom[:3] == "chr" {
		return chrom[3:]
	}
	return chrom
}

// XPosition converts a chromosome and 1-based position into a linear
// genome-wide coordinate.
func XPosition(chrom string, pos int64) (int64, error) {
	idx, ok := ChromIndex(chrom)
	if !ok {
		return 0, fmt.Errorf("unknown chromosome %q", chrom)
	}
	return idx*chromFactor + pos, nil
}

// Interval is a closed genomic range [Start, Stop] with its linearized
// bounds. XStart and XStop are the values compared by all range logic.
type Interval struct {
	Chrom  string `json:"chrom"`
	Start  int64  `json:"start"`
	Stop   int64  `json:"stop"`
	XStart int64  `json:"xstart"`
	XStop  int64  `json:"xstop"`
}

// NewInterval builds an interval, computing the linear coordinates.
func NewInterval(chrom string, start, stop int64) (Interval, error) {
	if stop < start {
		return Interval{}, fmt.Errorf("invalid interval %s:%d-%d: stop before start", chrom, start, stop)
	}
	chrom = NormalizeChrom(chrom)
	xstart, err := XPosition(chrom, start)
	if err != nil {
		return Interval{}, err
	}
	return Interval{
		Chrom:  chrom,
		Start:  start,
		Stop:   stop,
		XStart: xstart,
		XStop:  xstart + (stop - start),
	}, nil
}

// Pad widens the interval by n bases on each side. The start never drops
// below position 1.
func (iv Interval) Pad(n int64) Interval {
	return iv.Extend(n, n)
}

// Extend widens the interval by left bases before the start and right bases
// after the stop.
func (iv Interval) Extend(left, right int64) Interval {
	start := iv.Start - left
	if start < 1 {
		start = 1
	}
	out := iv
	out.XStart -= iv.Start - start
	out.Start = start
	out.Stop += right
	out.XStop += right
	return out
}

// Contains reports whether the linear coordinate x falls within the interval.
func (iv Interval) Contains(x int64) bool {
	return x >= iv.XStart && x <= iv.XStop
}

// String formats the interval as chrom:start-stop.
func (iv Interval) String() string {
	return fmt.Sprintf("%s:%d-%d", iv.Chrom, iv.Start, iv.Stop)
}
