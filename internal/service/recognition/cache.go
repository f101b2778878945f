package recognition

import (
	"context"
	"sync"
	"time"

	"kioskcam/internal/model"
)

// Update is enrichment pushed into the Cache for one face box. Nil/empty
// fields leave the stored values untouched.
type Update struct {
	Emotion       map[string]float64
	Attributes    *model.FaceAttributes
	Person        *Person
	SimilarFaceID string
}

type entry struct {
	box        model.Face
	emotion    map[string]float64
	attributes *model.FaceAttributes
	person     *Person
	similarID  string
	updatedAt  time.Time
}

// Cache is an in-memory Provider. Boxes are matched by the nearest centre
// within half the box size, since detections carry no identity across frames.
type Cache struct {
	mu      sync.RWMutex
	entries []*entry
	now     func() time.Time
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{now: time.Now}
}

// Put stores u for the face at box, merging into an existing entry that
// matches the box.
func (c *Cache) Put(box model.Face, u Update) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.find(box)
	if e == nil {
		e = &entry{}
		c.entries = append(c.entries, e)
	}
	e.box = box
	e.updatedAt = c.now()
	if len(u.Emotion) > 0 {
		e.emotion = u.Emotion
	}
	if u.Attributes != nil {
		e.attributes = u.Attributes
	}
	if u.Person != nil {
		e.person = u.Person
	}
	if u.SimilarFaceID != "" {
		e.similarID = u.SimilarFaceID
	}
}

// Prune drops entries not updated within maxAge and returns how many remain.
func (c *Cache) Prune(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-maxAge)
	kept := c.entries[:0]
	for _, e := range c.entries {
		if e.updatedAt.After(cutoff) {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(c.entries); i++ {
		c.entries[i] = nil
	}
	c.entries = kept
	return len(kept)
}

// Run prunes entries older than maxAge every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Prune(maxAge)
		}
	}
}

// Len returns the number of cached boxes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) LastEmotion(face model.Face) (map[string]float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e := c.find(face); e != nil && len(e.emotion) > 0 {
		return e.emotion, true
	}
	return nil, false
}

func (c *Cache) LastAttributes(face model.Face) (*model.FaceAttributes, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e := c.find(face); e != nil && e.attributes != nil {
		return e.attributes, true
	}
	return nil, false
}

func (c *Cache) LastIdentifiedPerson(face model.Face) (Person, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e := c.find(face); e != nil && e.person != nil {
		return *e.person, true
	}
	return Person{}, false
}

func (c *Cache) LastSimilarFace(face model.Face) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e := c.find(face); e != nil && e.similarID != "" {
		return e.similarID, true
	}
	return "", false
}

// find returns the entry whose centre is nearest to face's centre, within
// half of face's larger side. Caller holds mu.
func (c *Cache) find(face model.Face) *entry {
	cx, cy := centre(face)
	limit := max(face.Width, face.Height) / 2
	limitSq := limit * limit

	var best *entry
	bestSq := -1
	for _, e := range c.entries {
		ex, ey := centre(e.box)
		dx, dy := ex-cx, ey-cy
		d := dx*dx + dy*dy
		if d > limitSq {
			continue
		}
		if bestSq < 0 || d < bestSq {
			best, bestSq = e, d
		}
	}
	return best
}

func centre(f model.Face) (int, int) {
	return f.X + f.Width/2, f.Y + f.Height/2
}
