package carrier

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/iaros/freightquote/internal/logging"
	"github.com/iaros/freightquote/internal/zone"
)

// Entry bundles a Carrier with its compiled serviceability index, so a
// reader never has to rebuild the index on the hot path.
type Entry struct {
	Carrier *Carrier
	Index   *ServiceIndex
}

// snapshot is the registry's immutable published state. Registry.reload
// builds a new snapshot off to the side and swaps the atomic.Value in one
// step, per the "stage, then atomically publish" discipline in spec.md §5.
type snapshot struct {
	byID         map[string]*Entry
	byLowerName  map[string][]*Entry
	byCustomerID map[string][]*Entry
}

// Registry is the authoritative in-memory UTSF carrier catalog. It loads
// every *.utsf.json file in a directory at boot and supports add/remove/
// reload without ever blocking readers (spec.md §4.3).
type Registry struct {
	dir     string
	zones   *zone.Index
	log     *logging.Logger
	current atomic.Value // holds *snapshot

	mu sync.Mutex // serialises writers only; readers never take this
}

// NewRegistry constructs a Registry rooted at dir. Call Reload once before
// serving traffic.
func NewRegistry(dir string, zones *zone.Index, log *logging.Logger) *Registry {
	r := &Registry{dir: dir, zones: zones, log: log}
	r.current.Store(&snapshot{
		byID:         map[string]*Entry{},
		byLowerName:  map[string][]*Entry{},
		byCustomerID: map[string][]*Entry{},
	})
	return r
}

func (r *Registry) snap() *snapshot {
	return r.current.Load().(*snapshot)
}

// Reload re-reads every *.utsf.json file under dir and publishes a fresh
// snapshot. Concurrent readers observe either the old or the new snapshot,
// never a partial one.
func (r *Registry) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(r.dir, "*.utsf.json"))
	if err != nil {
		return fmt.Errorf("carrier: glob utsf dir: %w", err)
	}

	next := &snapshot{
		byID:         make(map[string]*Entry, len(matches)),
		byLowerName:  make(map[string][]*Entry),
		byCustomerID: make(map[string][]*Entry),
	}
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			r.log.Warn("skipping unreadable utsf file", zap.Error(err), zap.String("path", path))
			continue
		}
		c, err := ParseUTSF(data)
		if err != nil {
			r.log.Warn("skipping malformed utsf file", zap.Error(err), zap.String("path", path))
			continue
		}
		if c.ID == "" {
			c.ID = strings.TrimSuffix(filepath.Base(path), ".utsf.json")
		}
		entry := &Entry{Carrier: c, Index: BuildServiceIndex(c, r.zones)}
		next.byID[c.ID] = entry
		lower := strings.ToLower(c.Name)
		next.byLowerName[lower] = append(next.byLowerName[lower], entry)
		if c.OwnerCustomerID != "" {
			next.byCustomerID[c.OwnerCustomerID] = append(next.byCustomerID[c.OwnerCustomerID], entry)
		}
	}

	r.current.Store(next)
	return nil
}

// ReloadOne re-parses a single carrier file and publishes it into a fresh
// snapshot derived from the current one, without a full directory rescan.
func (r *Registry) ReloadOne(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("carrier: read utsf file: %w", err)
	}
	c, err := ParseUTSF(data)
	if err != nil {
		return fmt.Errorf("carrier: parse utsf file: %w", err)
	}
	if c.ID == "" {
		c.ID = strings.TrimSuffix(filepath.Base(path), ".utsf.json")
	}
	r.publishUpsert(c)
	return nil
}

// Add upserts carrier data, writes it to disk as a new UTSF file, and
// publishes the updated snapshot. Disk I/O happens before the lock is
// dropped but never while holding it across a DB call.
func (r *Registry) Add(c *Carrier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writeToDisk(c); err != nil {
		return err
	}
	r.publishUpsert(c)
	return nil
}

// Remove deletes a carrier by id, both from disk and from the published
// snapshot.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap()
	entry, ok := cur.byID[id]
	if !ok {
		return fmt.Errorf("carrier: unknown id %q", id)
	}
	path := filepath.Join(r.dir, id+".utsf.json")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("carrier: remove utsf file: %w", err)
	}

	next := cloneSnapshot(cur)
	delete(next.byID, id)
	lower := strings.ToLower(entry.Carrier.Name)
	next.byLowerName[lower] = removeEntry(next.byLowerName[lower], entry)
	if owner := entry.Carrier.OwnerCustomerID; owner != "" {
		next.byCustomerID[owner] = removeEntry(next.byCustomerID[owner], entry)
	}
	r.current.Store(next)
	return nil
}

func (r *Registry) publishUpsert(c *Carrier) {
	entry := &Entry{Carrier: c, Index: BuildServiceIndex(c, r.zones)}
	next := cloneSnapshot(r.snap())
	if old, ok := next.byID[c.ID]; ok {
		oldLower := strings.ToLower(old.Carrier.Name)
		next.byLowerName[oldLower] = removeEntry(next.byLowerName[oldLower], old)
		if owner := old.Carrier.OwnerCustomerID; owner != "" {
			next.byCustomerID[owner] = removeEntry(next.byCustomerID[owner], old)
		}
	}
	next.byID[c.ID] = entry
	lower := strings.ToLower(c.Name)
	next.byLowerName[lower] = append(next.byLowerName[lower], entry)
	if c.OwnerCustomerID != "" {
		next.byCustomerID[c.OwnerCustomerID] = append(next.byCustomerID[c.OwnerCustomerID], entry)
	}
	r.current.Store(next)
}

func (r *Registry) writeToDisk(c *Carrier) error {
	data, err := EncodeUTSF(c)
	if err != nil {
		return fmt.Errorf("carrier: marshal utsf: %w", err)
	}
	path := filepath.Join(r.dir, c.ID+".utsf.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("carrier: write utsf file: %w", err)
	}
	return nil
}

func cloneSnapshot(s *snapshot) *snapshot {
	next := &snapshot{
		byID:         make(map[string]*Entry, len(s.byID)),
		byLowerName:  make(map[string][]*Entry, len(s.byLowerName)),
		byCustomerID: make(map[string][]*Entry, len(s.byCustomerID)),
	}
	for k, v := range s.byID {
		next.byID[k] = v
	}
	for k, v := range s.byLowerName {
		next.byLowerName[k] = append([]*Entry(nil), v...)
	}
	for k, v := range s.byCustomerID {
		next.byCustomerID[k] = append([]*Entry(nil), v...)
	}
	return next
}

func removeEntry(list []*Entry, target *Entry) []*Entry {
	out := list[:0]
	for _, e := range list {
		if e != target {
			out = append(out, e)
		}
	}
	return out
}

// All returns every carrier currently in the registry.
func (r *Registry) All() []*Entry {
	cur := r.snap()
	out := make([]*Entry, 0, len(cur.byID))
	for _, e := range cur.byID {
		out = append(out, e)
	}
	return out
}

// ByID looks up a single carrier by id.
func (r *Registry) ByID(id string) (*Entry, bool) {
	e, ok := r.snap().byID[id]
	return e, ok
}

// ByLowerName returns every carrier whose name case-insensitively equals name.
func (r *Registry) ByLowerName(name string) []*Entry {
	return r.snap().byLowerName[strings.ToLower(name)]
}

// ByCustomerID returns the tied-up carriers owned by customerID.
func (r *Registry) ByCustomerID(customerID string) []*Entry {
	return r.snap().byCustomerID[customerID]
}

// ForPincode returns every carrier serviceable at pin, across the whole
// catalog; used by NearestPincodeFinder.
func (r *Registry) ForPincode(pin int) []*Entry {
	cur := r.snap()
	out := make([]*Entry, 0)
	for _, e := range cur.byID {
		if e.Index.IsServiceable(pin) {
			out = append(out, e)
		}
	}
	return out
}
