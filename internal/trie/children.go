package trie

import "sort"

// asciiSize is the size of the direct-indexed child table.
const asciiSize = 128

// children maps an edge rune to a child node. ASCII runes index a fixed
// table allocated on first use; all other runes go through a map.
type children struct {
	ascii *[asciiSize]NodeID
	wide  map[rune]NodeID
	n     int
}

func (c *children) get(r rune) NodeID {
	if r >= 0 && r < asciiSize {
		if c.ascii == nil {
			return Absent
		}
		return c.ascii[r]
	}
	if c.wide == nil {
		return Absent
	}
	return c.wide[r]
}

// set assumes r has no child yet.
func (c *children) set(r rune, id NodeID) {
	if r >= 0 && r < asciiSize {
		if c.ascii == nil {
			c.ascii = new([asciiSize]NodeID)
		}
		c.ascii[r] = id
	} else {
		if c.wide == nil {
			c.wide = make(map[rune]NodeID)
		}
		c.wide[r] = id
	}
	c.n++
}

func (c *children) len() int { return c.n }

// each visits children in ascending rune order.
func (c *children) each(fn func(r rune, id NodeID)) {
	if c.n == 0 {
		return
	}
	if c.ascii != nil {
		for r, id := range c.ascii {
			if id != Absent {
				fn(rune(r), id)
			}
		}
	}
	if len(c.wide) == 0 {
		return
	}
	keys := make([]rune, 0, len(c.wide))
	for r := range c.wide {
		keys = append(keys, r)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, r := range keys {
		fn(r, c.wide[r])
	}
}

func (c *children) clone() children {
	out := children{n: c.n}
	if c.ascii != nil {
		tbl := *c.ascii
		out.ascii = &tbl
	}
	if c.wide != nil {
		out.wide = make(map[rune]NodeID, len(c.wide))
		for r, id := range c.wide {
			out.wide[r] = id
		}
	}
	return out
}
