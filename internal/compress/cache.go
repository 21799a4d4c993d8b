package compress

// Outcome is what happened to one distinct image
type Outcome int

const (
	// Passthrough means the image was left as is on purpose
	Passthrough Outcome = iota

	// Replaced means a smaller stream was substituted
	Replaced

	// Failed means the image could not be processed and was left as is
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Replaced:
		return "replaced"
	case Failed:
		return "failed"
	default:
		return "passthrough"
	}
}

// Cache remembers what happened to each image object during one run, so an
// image shared by several pages is processed once.
type Cache struct {
	entries map[int]Outcome
	hits    int
	misses  int
}

// NewCache returns an empty cache
func NewCache() *Cache {
	return &Cache{entries: make(map[int]Outcome)}
}

// Lookup returns the recorded outcome for key and counts a hit or a miss
func (c *Cache) Lookup(key int) (Outcome, bool) {
	o, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return o, ok
}

// Store records the outcome for key
func (c *Cache) Store(key int, o Outcome) {
	c.entries[key] = o
}

// Hits returns the number of lookups answered from the cache
func (c *Cache) Hits() int { return c.hits }

// Misses returns the number of lookups that required processing
func (c *Cache) Misses() int { return c.misses }

// Len returns the number of distinct images seen
func (c *Cache) Len() int { return len(c.entries) }
