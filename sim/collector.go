package sim

import (
	"github.com/aukilabs/kenaz/octree"
)

// Collector gathers the elements a visibility pass found, grouped by render
// queue.
type Collector struct {
	Queues map[octree.QueueHint][]octree.Element
	count  int
}

func NewCollector() *Collector {
	return &Collector{
		Queues: make(map[octree.QueueHint][]octree.Element),
	}
}

func (c *Collector) AddVisible(e octree.Element, hint octree.QueueHint) {
	c.Queues[hint] = append(c.Queues[hint], e)
	c.count++
}

// Len returns the number of collected elements.
func (c *Collector) Len() int {
	return c.count
}

// Reset empties the queues while keeping their storage.
func (c *Collector) Reset() {
	for hint, elements := range c.Queues {
		c.Queues[hint] = elements[:0]
	}
	c.count = 0
}
