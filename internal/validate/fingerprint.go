package validate

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
	"sync"

	"github.com/abelbrown/trendwatch/internal/model"
)

// Fingerprint hashes the lower-cased title with the sorted keywords.
func Fingerprint(t *model.Trend) string {
	kw := append([]string(nil), t.Keywords...)
	sort.Strings(kw)
	sum := md5.Sum([]byte(strings.ToLower(t.Title) + " " + strings.Join(kw, " ")))
	return hex.EncodeToString(sum[:])
}

// FingerprintStore remembers fingerprints of accepted trends across runs.
type FingerprintStore interface {
	Seen(ctx context.Context, fp string) (bool, error)
	Remember(ctx context.Context, fp, trendID string) error
}

// MemoryFingerprints is a process-local FingerprintStore.
type MemoryFingerprints struct {
	mu   sync.RWMutex
	seen map[string]string
}

// NewMemoryFingerprints creates an empty store.
func NewMemoryFingerprints() *MemoryFingerprints {
	return &MemoryFingerprints{seen: make(map[string]string)}
}

func (m *MemoryFingerprints) Seen(_ context.Context, fp string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.seen[fp]
	return ok, nil
}

func (m *MemoryFingerprints) Remember(_ context.Context, fp, trendID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[fp] = trendID
	return nil
}

// Len returns the number of remembered fingerprints.
func (m *MemoryFingerprints) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.seen)
}
