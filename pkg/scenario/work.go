package scenario

import (
	"iter"

	"github.com/cespare/xxhash/v2"
)

// Work is one journey's share of a single work interval: the interval's
// start time, which journey to run, the datapool items (if any) checked
// out for this node, and how many spawns to run per sub-interval.
type Work struct {
	StartTime          int
	JourneySpec        string
	Data               iter.Seq[any]
	SubintervalVolumes []int
}

// nodeTargetVolume splits targetVolume work items across nodeCount nodes as
// evenly as possible. journeyOffset rotates which nodes absorb the
// remainder, so that multiple journeys with small volumes don't all pile
// onto node 0.
func nodeTargetVolume(nodeIndex, nodeCount, targetVolume, journeyOffset int) int {
	if targetVolume == 0 || nodeIndex >= nodeCount {
		return 0
	}

	base := targetVolume / nodeCount
	remainder := targetVolume % nodeCount
	if remainder == 0 {
		return base
	}

	remainderStart := ((journeyOffset % nodeCount) + nodeCount) % nodeCount
	remainderEnd := (remainderStart + remainder) % nodeCount

	var nodeGetsRemainder bool
	if remainderEnd > remainderStart {
		nodeGetsRemainder = remainderStart <= nodeIndex && nodeIndex < remainderEnd
	} else {
		nodeGetsRemainder = nodeIndex >= remainderStart || nodeIndex < remainderEnd
	}
	if nodeGetsRemainder {
		return base + 1
	}
	return base
}

func journeyOffsetFor(spec string, nodeCount int) int {
	if nodeCount <= 0 {
		return 0
	}
	return int(xxhash.Sum64String(spec) % uint64(nodeCount))
}

// work computes this node's share of every journey's volume for
// workIndex, advancing each journey's datapool cursor and marking journeys
// JourneyComplete-d. It returns scenarioComplete=true once every journey
// has signaled completion, at which point the caller should stop resolving
// further intervals.
func (m *Manager) work(workIndex int) (work []Work, scenarioComplete bool) {
	workStartTime := workIndex * m.scenario.Interval
	scenarioComplete = true

	nodeCount := m.node.Count()
	nodeIndex, registered := m.node.Index()
	if !registered {
		nodeIndex = -1
	}

	for _, journey := range m.scenario.Journeys {
		if completedAt, done := m.journeysComplete[journey.Spec]; done && completedAt < workIndex {
			continue
		}
		scenarioComplete = false

		var subintervalVolumes []int
		journeyOffset := journeyOffsetFor(journey.Spec, nodeCount)
		nodeTotals := make(map[int]int, nodeCount)

		for i := 0; i < m.scenario.Interval; i++ {
			volumeAtI, err := journey.VolumeModel.Target(workStartTime + i)
			if err != nil {
				m.logger.Warn("journey completing after this interval", "journey", journey.Spec)
				m.journeysComplete[journey.Spec] = workIndex
				break
			}

			for node := 0; node < nodeCount; node++ {
				nodeVolume := nodeTargetVolume(node, nodeCount, volumeAtI, journeyOffset)
				nodeTotals[node] += nodeVolume
				if node == nodeIndex {
					subintervalVolumes = append(subintervalVolumes, nodeVolume)
				}
			}
		}

		var totalJourneyCalls int
		for _, v := range nodeTotals {
			totalJourneyCalls += v
		}
		if totalJourneyCalls == 0 {
			continue
		}

		var chunk iter.Seq[any]
		if journey.Datapool != nil && registered {
			if workIndex > 0 && journey.Datapool.Index() == 0 {
				journey.Datapool.SetIndex(journey.VolumeModel.CumulativeVolume(0, workStartTime-1))
			}

			var nodeOffset int
			for idx := 0; idx < nodeIndex; idx++ {
				nodeOffset += nodeTotals[idx]
			}
			checkoutStart := journey.Datapool.Index() + nodeOffset
			checkoutStop := checkoutStart + nodeTotals[nodeIndex]

			length, err := journey.Datapool.Len()
			if err == nil && checkoutStart > length {
				chunk = func(func(any) bool) {}
			} else {
				seq, err := journey.Datapool.Checkout(checkoutStart, &checkoutStop)
				if err != nil {
					chunk = func(func(any) bool) {}
				} else {
					chunk = seq
				}
			}
			journey.Datapool.SetIndex(journey.Datapool.Index() + totalJourneyCalls)
		}

		work = append(work, Work{
			StartTime:          workStartTime,
			JourneySpec:        journey.Spec,
			Data:               chunk,
			SubintervalVolumes: subintervalVolumes,
		})
	}

	return work, scenarioComplete
}
