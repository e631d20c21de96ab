package cpu

const (
	PREDICTOR_SIZE = 256 // Default predictor and BTB slots.
	CACHE_SIZE     = 256 // Cache slots, one per 8-bit slot operand.
)

// Predictor is a single-bit taken/not-taken table with a branch target
// buffer, both indexed by pc modulo the table size.
//
// It is a behavioural stand-in: speculation only ever redirects the PC,
// so there is nothing to roll back.
type Predictor struct {
	taken []bool
	btb   []uint32
}

// NewPredictor creates a predictor with size slots. All slots start
// not-taken.
func NewPredictor(size int) *Predictor {
	if size <= 0 {
		size = PREDICTOR_SIZE
	}
	return &Predictor{
		taken: make([]bool, size),
		btb:   make([]uint32, size),
	}
}

// Size returns the number of slots.
func (bp *Predictor) Size() int {
	return len(bp.taken)
}

func (bp *Predictor) slot(pc uint32) int {
	return int(pc % uint32(len(bp.taken)))
}

// Predict returns the taken bit for pc.
func (bp *Predictor) Predict(pc uint32) bool {
	return bp.taken[bp.slot(pc)]
}

// Update records the branch outcome for pc.
func (bp *Predictor) Update(pc uint32, taken bool) {
	bp.taken[bp.slot(pc)] = taken
}

// Record stores pc as the last branch source in its BTB slot.
func (bp *Predictor) Record(pc uint32) {
	bp.btb[bp.slot(pc)] = pc
}

// Target returns the BTB entry for pc's slot.
func (bp *Predictor) Target(pc uint32) uint32 {
	return bp.btb[bp.slot(pc)]
}

// Reset clears all predictions and BTB entries.
func (bp *Predictor) Reset() {
	clear(bp.taken)
	clear(bp.btb)
}

// Cache is a bank of scratch words addressed by slot number, not by
// memory address. There are no tags and nothing is ever evicted.
type Cache struct {
	Slot [CACHE_SIZE]uint32
}

// Read returns a slot.
func (c *Cache) Read(slot uint8) uint32 {
	return c.Slot[slot]
}

// Write sets a slot.
func (c *Cache) Write(slot uint8, value uint32) {
	c.Slot[slot] = value
}

// Reset zeros every slot.
func (c *Cache) Reset() {
	clear(c.Slot[:])
}
