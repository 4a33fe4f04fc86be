package preprocess

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ChannelStats holds the population mean and standard deviation of one channel.
type ChannelStats struct {
	Mean   float64
	StdDev float64
}

// Summary describes the value distribution of a set of cleaned samples.
type Summary struct {
	Count    int
	Min      float64
	Max      float64
	Channels [Channels]ChannelStats
}

// Stats computes per-channel statistics over all samples.
// An empty input yields a zero Summary.
func Stats(samples []Sample) Summary {
	var sum Summary
	if len(samples) == 0 {
		return sum
	}
	sum.Count = len(samples)

	total := 0
	for _, s := range samples {
		total += len(s.Pix) / Channels
	}

	perChannel := make([][]float64, Channels)
	for c := range perChannel {
		perChannel[c] = make([]float64, 0, total)
	}
	seen := false
	for _, s := range samples {
		if len(s.Pix) == 0 {
			continue
		}
		lo, hi := floats.Min(s.Pix), floats.Max(s.Pix)
		if !seen {
			sum.Min, sum.Max = lo, hi
			seen = true
		}
		sum.Min = min(sum.Min, lo)
		sum.Max = max(sum.Max, hi)
		for i, v := range s.Pix {
			perChannel[i%Channels] = append(perChannel[i%Channels], v)
		}
	}

	for c, values := range perChannel {
		if len(values) == 0 {
			continue
		}
		mean, std := stat.PopMeanStdDev(values, nil)
		sum.Channels[c] = ChannelStats{Mean: mean, StdDev: std}
	}
	return sum
}
