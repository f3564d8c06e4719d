package metrics

import "sort"

// NodeSnapshot pairs a decoded Snapshot with the identity of the node and
// the timestamp it was taken at: the shape gossip delivers once a wire
// payload has been decoded and its metrics_snapshot JSON unmarshaled.
type NodeSnapshot struct {
	NodeIdentity string
	Timestamp    float64
	Data         Snapshot
}

// AggregateResult is a cluster-wide view built from zero or more
// NodeSnapshots: counters summed per labelset, histograms summed per
// bucket, events concatenated and ordered by timestamp.
type AggregateResult struct {
	Timestamp  float64                      `json:"timestamp"`
	NodeCount  int                          `json:"node_count"`
	Counters   map[string]CounterSnapshot   `json:"counters"`
	Histograms map[string]HistogramSnapshot `json:"histograms"`
	Events     map[string][]Event           `json:"events"`
}

type counterAccumulator struct {
	description string
	values      map[labelKey]float64
	labels      map[labelKey]map[string]string
}

type histogramAccumulator struct {
	description string
	buckets     []float64
	samples     map[labelKey]*histogramSampleAccumulator
}

type histogramSampleAccumulator struct {
	labels map[string]string
	counts []float64
	sum    float64
	count  float64
}

// Aggregate merges every counter, histogram and event stream across
// snapshots into one cluster-wide view.
func Aggregate(snapshots []NodeSnapshot) AggregateResult {
	counters := make(map[string]*counterAccumulator)
	histograms := make(map[string]*histogramAccumulator)
	events := make(map[string][]Event)
	nodes := make(map[string]struct{})
	var latestTimestamp float64

	for _, snap := range snapshots {
		nodes[snap.NodeIdentity] = struct{}{}
		if snap.Timestamp > latestTimestamp {
			latestTimestamp = snap.Timestamp
		}
		mergeCounters(counters, snap.Data.Counters)
		mergeHistograms(histograms, snap.Data.Histograms)
		mergeEvents(events, snap.Data.Events)
	}

	if latestTimestamp == 0 {
		latestTimestamp = nowUnix()
	}

	return AggregateResult{
		Timestamp:  latestTimestamp,
		NodeCount:  len(nodes),
		Counters:   finalizeCounters(counters),
		Histograms: finalizeHistograms(histograms),
		Events:     finalizeEvents(events),
	}
}

// QueryTimeWindow aggregates only the snapshots whose timestamp falls
// within [start, end] (either bound nil means unbounded on that side).
func QueryTimeWindow(snapshots []NodeSnapshot, start, end *float64) AggregateResult {
	filtered := make([]NodeSnapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		if start != nil && snap.Timestamp < *start {
			continue
		}
		if end != nil && snap.Timestamp > *end {
			continue
		}
		filtered = append(filtered, snap)
	}
	return Aggregate(filtered)
}

// LatestPerNode returns the most recent snapshot for each distinct node
// identity, sorted by identity.
func LatestPerNode(snapshots []NodeSnapshot) []NodeSnapshot {
	latest := make(map[string]NodeSnapshot, len(snapshots))
	for _, snap := range snapshots {
		current, ok := latest[snap.NodeIdentity]
		if !ok || snap.Timestamp > current.Timestamp {
			latest[snap.NodeIdentity] = snap
		}
	}

	identities := make([]string, 0, len(latest))
	for identity := range latest {
		identities = append(identities, identity)
	}
	sort.Strings(identities)

	out := make([]NodeSnapshot, 0, len(identities))
	for _, identity := range identities {
		out = append(out, latest[identity])
	}
	return out
}

// TimeSeriesPoint is one snapshot's contribution to a single metric's time
// series across the cluster.
type TimeSeriesPoint struct {
	Timestamp    float64
	NodeIdentity string
	Samples      []CounterSample   // set when metricType == "counter"
	HistSamples  []HistogramSample // set when metricType == "histogram"
	Events       []Event           // set when metricType == "event"
}

// TimeSeries returns, ordered by timestamp, every snapshot's contribution
// to metricName for the requested metricType ("counter", "histogram" or
// "event").
func TimeSeries(snapshots []NodeSnapshot, metricName, metricType string) []TimeSeriesPoint {
	ordered := append([]NodeSnapshot(nil), snapshots...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Timestamp < ordered[j].Timestamp })

	var series []TimeSeriesPoint
	for _, snap := range ordered {
		switch metricType {
		case "counter":
			metric, ok := snap.Data.Counters[metricName]
			if !ok {
				continue
			}
			series = append(series, TimeSeriesPoint{Timestamp: snap.Timestamp, NodeIdentity: snap.NodeIdentity, Samples: metric.Samples})
		case "histogram":
			metric, ok := snap.Data.Histograms[metricName]
			if !ok {
				continue
			}
			series = append(series, TimeSeriesPoint{Timestamp: snap.Timestamp, NodeIdentity: snap.NodeIdentity, HistSamples: metric.Samples})
		case "event":
			events := snap.Data.Events[metricName]
			if len(events) == 0 {
				continue
			}
			series = append(series, TimeSeriesPoint{Timestamp: snap.Timestamp, NodeIdentity: snap.NodeIdentity, Events: events})
		}
	}
	return series
}

func mergeCounters(dest map[string]*counterAccumulator, counters map[string]CounterSnapshot) {
	for name, metric := range counters {
		acc, ok := dest[name]
		if !ok {
			acc = &counterAccumulator{description: metric.Description, values: make(map[labelKey]float64), labels: make(map[labelKey]map[string]string)}
			dest[name] = acc
		}
		for _, sample := range metric.Samples {
			key := normalizeLabels(sample.Labels)
			acc.values[key] += sample.Value
			if _, ok := acc.labels[key]; !ok {
				acc.labels[key] = sample.Labels
			}
		}
	}
}

// mergeHistograms sums bucket counts elementwise across snapshots sharing a
// metric name. It assumes identical bucket bounds, per the family's
// fixed-at-registration contract; a snapshot with different bounds still
// merges positionally rather than erroring, since a wire-level mismatch
// here reflects a stale reporter, not a call the aggregator should fail on.
func mergeHistograms(dest map[string]*histogramAccumulator, histograms map[string]HistogramSnapshot) {
	for name, metric := range histograms {
		acc, ok := dest[name]
		if !ok {
			acc = &histogramAccumulator{description: metric.Description, buckets: metric.Buckets, samples: make(map[labelKey]*histogramSampleAccumulator)}
			dest[name] = acc
		}
		for _, sample := range metric.Samples {
			if len(sample.Buckets) == 0 {
				continue
			}
			key := normalizeLabels(sample.Labels)
			counts := bucketEntriesToCounts(sample.Buckets)
			sampleAcc, ok := acc.samples[key]
			if !ok {
				sampleAcc = &histogramSampleAccumulator{labels: sample.Labels, counts: make([]float64, len(counts))}
				acc.samples[key] = sampleAcc
			}
			for i, v := range counts {
				if i < len(sampleAcc.counts) {
					sampleAcc.counts[i] += v
				}
			}
			sampleAcc.sum += sample.Sum
			sampleAcc.count += sample.Count
		}
	}
}

func mergeEvents(dest map[string][]Event, events map[string][]Event) {
	for name, entries := range events {
		dest[name] = append(dest[name], entries...)
	}
}

func finalizeCounters(counters map[string]*counterAccumulator) map[string]CounterSnapshot {
	out := make(map[string]CounterSnapshot, len(counters))
	for name, acc := range counters {
		samples := make([]CounterSample, 0, len(acc.values))
		for key, value := range acc.values {
			samples = append(samples, CounterSample{Labels: acc.labels[key], Value: value})
		}
		out[name] = CounterSnapshot{Name: name, Description: acc.description, Type: "counter", Samples: samples}
	}
	return out
}

func finalizeHistograms(histograms map[string]*histogramAccumulator) map[string]HistogramSnapshot {
	out := make(map[string]HistogramSnapshot, len(histograms))
	for name, acc := range histograms {
		bounds := append([]any{}, floatsToAny(acc.buckets)...)
		bounds = append(bounds, "+Inf")

		samples := make([]HistogramSample, 0, len(acc.samples))
		for _, sampleAcc := range acc.samples {
			var cumulative float64
			buckets := make([]HistogramBucket, 0, len(bounds))
			for i, bound := range bounds {
				var inc float64
				if i < len(sampleAcc.counts) {
					inc = sampleAcc.counts[i]
				}
				cumulative += inc
				buckets = append(buckets, HistogramBucket{Le: bound, Count: cumulative})
			}
			samples = append(samples, HistogramSample{Labels: sampleAcc.labels, Sum: sampleAcc.sum, Count: sampleAcc.count, Buckets: buckets})
		}
		out[name] = HistogramSnapshot{Name: name, Description: acc.description, Type: "histogram", Buckets: acc.buckets, Samples: samples}
	}
	return out
}

func finalizeEvents(events map[string][]Event) map[string][]Event {
	out := make(map[string][]Event, len(events))
	for name, entries := range events {
		cp := append([]Event(nil), entries...)
		sortEventsByTimestamp(cp)
		out[name] = cp
	}
	return out
}

func bucketEntriesToCounts(buckets []HistogramBucket) []float64 {
	counts := make([]float64, len(buckets))
	var previous float64
	for i, b := range buckets {
		diff := b.Count - previous
		if diff < 0 {
			diff = 0
		}
		counts[i] = diff
		previous = b.Count
	}
	return counts
}

func floatsToAny(f []float64) []any {
	out := make([]any, len(f))
	for i, v := range f {
		out[i] = v
	}
	return out
}
