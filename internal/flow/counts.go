package flow

import "sort"

// Counts tallies index strings: lane -> id -> index string -> count.
type Counts map[string]map[string]map[string]int

func (c Counts) Add(lane, id, index string) {
	c.AddN(lane, id, index, 1)
}

// Init makes sure id is listed for lane even if nothing is counted for it.
func (c Counts) Init(lane, id string) {
	byID, ok := c[lane]
	if !ok {
		byID = make(map[string]map[string]int)
		c[lane] = byID
	}
	if _, ok := byID[id]; !ok {
		byID[id] = make(map[string]int)
	}
}

func (c Counts) AddN(lane, id, index string, n int) {
	c.Init(lane, id)
	c[lane][id][index] += n
}

// Merge adds every count of other into c.
func (c Counts) Merge(other Counts) {
	for lane, byID := range other {
		for id, byIndex := range byID {
			c.Init(lane, id)
			for index, n := range byIndex {
				c.AddN(lane, id, index, n)
			}
		}
	}
}

// LaneTotal returns the number of reads counted for lane.
func (c Counts) LaneTotal(lane string) int {
	total := 0
	for _, byIndex := range c[lane] {
		for _, n := range byIndex {
			total += n
		}
	}
	return total
}

// IDTotals returns the number of reads of every id across all lanes,
// including ids listed with nothing counted.
func (c Counts) IDTotals() map[string]int {
	totals := make(map[string]int)
	for _, byID := range c {
		for id, byIndex := range byID {
			if _, ok := totals[id]; !ok {
				totals[id] = 0
			}
			for _, n := range byIndex {
				totals[id] += n
			}
		}
	}
	return totals
}

// Lanes returns the counted lanes in order.
func (c Counts) Lanes() []string {
	lanes := make([]string, 0, len(c))
	for lane := range c {
		lanes = append(lanes, lane)
	}
	sort.Strings(lanes)
	return lanes
}
