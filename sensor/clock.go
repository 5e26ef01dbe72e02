package sensor

// Clock rebuilds 64-bit millisecond timestamps from the device's 16-bit
// wrapping counter.
type Clock struct {
	last   uint16
	offset uint64
	seen   bool
}

// Update folds in a raw counter value and returns the full timestamp.
func (c *Clock) Update(raw uint16) uint64 {
	if c.seen && raw < c.last {
		c.offset += 1 << 16
	}
	c.last = raw
	c.seen = true
	return c.offset + uint64(raw)
}

// Reset forgets the accumulated offset.
func (c *Clock) Reset() { *c = Clock{} }
