// Copyright 2020 Aleksandr Demakin. All rights reserved.

package posit

import "sync"

// maxTableBits is the widest format, for which square roots are looked up in a table.
const maxTableBits = 8

type sqrtTable struct {
	once    sync.Once
	results []uint8
}

// sqrtTables holds one table per (nbits, es). A table is built on first use and never changes afterwards.
var sqrtTables sync.Map

type tableKey struct {
	nbits, es uint
}

// sqrtTableFor returns the square roots of every pattern of c, or nil if c is too wide.
// Negative patterns and NaR map to NaR.
func sqrtTableFor(c Config) []uint8 {
	if c.NBits > maxTableBits {
		return nil
	}
	v, _ := sqrtTables.LoadOrStore(tableKey{c.NBits, c.ES}, &sqrtTable{})
	t := v.(*sqrtTable)
	t.once.Do(func() {
		silent := c.WithMode(Silent)
		results := make([]uint8, 1<<c.NBits)
		for b := range results {
			p := silent.FromBits(uint64(b))
			switch {
			case p.IsNeg() || p.IsNaR():
				results[b] = uint8(silent.narBits())
			case p.IsZero():
			default:
				results[b] = uint8(p.sqrt().bits)
			}
		}
		t.results = results
	})
	return t.results
}
