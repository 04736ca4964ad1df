package cache

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshotEntry is the wire shape for one exported cache entry. Value is
// left as interface{}; msgpack round-trips the common JSON-ish value
// shapes (maps, slices, scalars) raw handlers produce without requiring
// registration of concrete types.
type snapshotEntry struct {
	Key       string        `msgpack:"key"`
	Value     interface{}   `msgpack:"value"`
	ExpiresAt time.Time     `msgpack:"expiresAt"`
	TTL       time.Duration `msgpack:"ttl"`
}

// Export serializes every non-expired entry to a compact binary blob via
// MessagePack. This is the production extension the teacher's own
// encoding helper left as a TODO ("Add MsgPack support") — used here for
// cold-start cache warming: a server can Export() before shutdown and
// Import() the blob back on the next boot to skip the initial miss burst.
func (c *Cache) Export() ([]byte, error) {
	c.mu.Lock()
	now := time.Now()
	entries := make([]snapshotEntry, 0, len(c.items))
	for el := c.order.Back(); el != nil; el = el.Prev() {
		e := el.Value.(*element)
		if e.entry.expired(now) {
			continue
		}
		entries = append(entries, snapshotEntry{
			Key:       e.key,
			Value:     e.entry.Value,
			ExpiresAt: e.entry.ExpiresAt,
			TTL:       e.entry.TTL,
		})
	}
	c.mu.Unlock()

	data, err := msgpack.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode cache snapshot: %w", err)
	}
	return data, nil
}

// Import loads entries previously produced by Export, preserving their
// original TTL but not their original expiry instant: each imported
// entry's TTL runs again in full from the moment of import. Entries whose
// original expiry instant has already passed by import time are skipped,
// so a long-idle snapshot does not bring back stale entries.
func (c *Cache) Import(data []byte) (int, error) {
	var entries []snapshotEntry
	if err := msgpack.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("decode cache snapshot: %w", err)
	}

	imported := 0
	for _, e := range entries {
		if e.TTL > 0 && time.Until(e.ExpiresAt) <= 0 {
			continue
		}
		c.Set(e.Key, e.Value, e.TTL)
		imported++
	}
	return imported, nil
}
