package scenario

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeTargetVolume_EvenSplit(t *testing.T) {
	assert.Equal(t, 10, nodeTargetVolume(0, 10, 100, 0))
	assert.Equal(t, 10, nodeTargetVolume(9, 10, 100, 0))
}

func TestNodeTargetVolume_SingleItemNoOffsetGoesToNodeZero(t *testing.T) {
	assert.Equal(t, 1, nodeTargetVolume(0, 10, 1, 0))
	assert.Equal(t, 0, nodeTargetVolume(1, 10, 1, 0))
}

func TestNodeTargetVolume_OffsetRotatesRemainderTarget(t *testing.T) {
	assert.Equal(t, 0, nodeTargetVolume(0, 10, 1, 1))
	assert.Equal(t, 1, nodeTargetVolume(1, 10, 1, 1))
}

func TestNodeTargetVolume_ZeroVolumeIsZeroEverywhere(t *testing.T) {
	assert.Equal(t, 0, nodeTargetVolume(0, 10, 0, 3))
}

func TestNodeTargetVolume_NodeIndexBeyondCountIsZero(t *testing.T) {
	assert.Equal(t, 0, nodeTargetVolume(10, 10, 100, 0))
}

func TestNodeTargetVolume_WraparoundRemainder(t *testing.T) {
	// 3 nodes, volume 7: base=2 remainder=1; offset 2 -> remainder node is (2%3)=2.
	assert.Equal(t, 2, nodeTargetVolume(0, 3, 7, 2))
	assert.Equal(t, 2, nodeTargetVolume(1, 3, 7, 2))
	assert.Equal(t, 3, nodeTargetVolume(2, 3, 7, 2))
}

func TestNodeTargetVolume_SumAcrossNodesEqualsTotal(t *testing.T) {
	for _, offset := range []int{0, 1, 2, 3, 7} {
		var sum int
		for node := 0; node < 4; node++ {
			sum += nodeTargetVolume(node, 4, 17, offset)
		}
		assert.Equal(t, 17, sum, "offset=%d", offset)
	}
}

func TestJourneyOffset_RotatesSmallVolumesAcrossNodes(t *testing.T) {
	// 100 journeys of volume 1 across 10 nodes: the per-journey hash offset
	// must spread the single units around instead of piling them all onto
	// node 0.
	const nodeCount = 10
	perNode := make([]int, nodeCount)
	for j := 0; j < 100; j++ {
		spec := fmt.Sprintf("journeys:flow_%d", j)
		offset := journeyOffsetFor(spec, nodeCount)
		for node := 0; node < nodeCount; node++ {
			perNode[node] += nodeTargetVolume(node, nodeCount, 1, offset)
		}
	}

	total, minCount, maxCount := 0, perNode[0], perNode[0]
	for _, c := range perNode {
		total += c
		if c < minCount {
			minCount = c
		}
		if c > maxCount {
			maxCount = c
		}
	}
	assert.Equal(t, 100, total)
	assert.LessOrEqual(t, maxCount-minCount, 50)
}
