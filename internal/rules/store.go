// Package rules loads, validates and caches transformation rule
// definitions. Each cache entry remembers when and from which file it was
// loaded; lookups past the configured TTL re-read the backing file before
// returning, so rule edits become visible without a restart.
package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gyaneshwarpardhi/eventbridge/internal/transform"
)

// DefaultCacheTTL bounds rule staleness when no TTL is configured.
const DefaultCacheTTL = 5 * time.Minute

// ruleExtensions are the file suffixes scanned in the rule directory.
// YAML is a superset of JSON, so .json rule files parse with the same decoder.
var ruleExtensions = map[string]struct{}{
	".yaml": {},
	".yml":  {},
	".json": {},
}

type cacheEntry struct {
	rule     *Rule
	loadedAt time.Time
	filePath string
}

// Store holds the rule cache. The mutex guards the cache map; entries are
// replaced wholesale, never mutated in place.
type Store struct {
	dir    string
	ttl    time.Duration
	mapper *transform.Mapper

	mu        sync.RWMutex
	cache     map[string]*cacheEntry // event type → entry
	scannedAt time.Time              // last full directory scan
	hits      int64
	misses    int64
	reloads   int64

	now func() time.Time // injectable clock for tests
}

// NewStore creates a Store over a rule directory. The mapper validates
// mapping paths and transform names at load time.
func NewStore(dir string, ttl time.Duration, mapper *transform.Mapper) *Store {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Store{
		dir:    dir,
		ttl:    ttl,
		mapper: mapper,
		cache:  make(map[string]*cacheEntry),
		now:    time.Now,
	}
}

// LoadRules scans the rule directory, parses every rule definition found
// and rebuilds the cache from the ones that validate. All problems are
// collected; one bad file does not hide errors in another. A clean load
// replaces the cache wholesale; a load with errors only adopts the rules
// that parsed, so an entry whose file turned invalid keeps serving its
// previously loaded rule, matching the config loader's failed-load
// discipline.
func (s *Store) LoadRules() LoadResult {
	files, err := s.ruleFiles()
	if err != nil {
		return LoadResult{Errors: []string{err.Error()}}
	}

	result := LoadResult{}
	entries := make(map[string]*cacheEntry)
	names := make(map[string]string)     // rule name → file
	eventTypes := make(map[string]string) // event type → file (enabled rules)

	for _, file := range files {
		rule, errs := s.loadFile(file)
		if len(errs) > 0 {
			result.Errors = append(result.Errors, errs...)
			continue
		}
		if prev, dup := names[rule.Name]; dup {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: duplicate rule name %q (also in %s)", file, rule.Name, prev))
			continue
		}
		names[rule.Name] = file

		result.Rules = append(result.Rules, rule)
		if !rule.Enabled {
			continue
		}
		if prev, dup := eventTypes[rule.EventType]; dup {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: duplicate eventType %q among enabled rules (also in %s)", file, rule.EventType, prev))
			continue
		}
		eventTypes[rule.EventType] = file
		entries[rule.EventType] = &cacheEntry{rule: rule, loadedAt: s.now(), filePath: file}
	}

	result.Success = len(result.Errors) == 0

	s.mu.Lock()
	s.scannedAt = s.now()
	if result.Success {
		s.cache = entries
	} else {
		for et, e := range entries {
			s.cache[et] = e
		}
	}
	s.mu.Unlock()

	return result
}

// FindByEventType looks up the enabled rule for an exact event type. A
// stale entry is reloaded from its backing file before returning; when the
// reload fails, the previous rule stays in effect and the error is
// reported alongside it.
func (s *Store) FindByEventType(eventType string) MatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	// An empty cache refills from the directory at most once per TTL, so
	// lookups that keep missing (every rule disabled, bad directory) stay
	// off the disk. ClearCache resets the scan stamp, so the first lookup
	// after it always refills.
	if len(s.cache) == 0 && s.dir != "" && s.now().Sub(s.scannedAt) > s.ttl {
		s.reloadAllLocked()
	}

	entry, ok := s.cache[eventType]
	if !ok {
		s.misses++
		return MatchResult{}
	}

	if s.now().Sub(entry.loadedAt) > s.ttl {
		s.reloads++
		fresh, errs := s.loadFile(entry.filePath)
		if len(errs) > 0 {
			// Keep serving the previous rule; staleness beats an outage.
			s.hits++
			return MatchResult{Matched: true, Rule: entry.rule,
				Err: fmt.Errorf("rule reload failed: %s", strings.Join(errs, "; "))}
		}
		if !fresh.Enabled || fresh.EventType != eventType {
			// The rule no longer applies to this event type.
			delete(s.cache, eventType)
			s.misses++
			return MatchResult{}
		}
		entry = &cacheEntry{rule: fresh, loadedAt: s.now(), filePath: entry.filePath}
		s.cache[eventType] = entry
	}

	s.hits++
	return MatchResult{Matched: true, Rule: entry.rule}
}

// ClearCache drops every cache entry. The next lookup reloads from disk
// and stamps fresh load times.
func (s *Store) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cacheEntry)
	s.scannedAt = time.Time{}
}

// Stats returns a snapshot of cache counters.
func (s *Store) Stats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CacheStats{
		Entries: len(s.cache),
		Hits:    s.hits,
		Misses:  s.misses,
		Reloads: s.reloads,
	}
}

func (s *Store) reloadAllLocked() {
	s.scannedAt = s.now()
	files, err := s.ruleFiles()
	if err != nil {
		return
	}
	for _, file := range files {
		rule, errs := s.loadFile(file)
		if len(errs) > 0 || !rule.Enabled {
			continue
		}
		if _, exists := s.cache[rule.EventType]; exists {
			continue
		}
		s.cache[rule.EventType] = &cacheEntry{rule: rule, loadedAt: s.now(), filePath: file}
	}
}

func (s *Store) ruleFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read rule directory %s: %w", s.dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := ruleExtensions[filepath.Ext(e.Name())]; ok {
			files = append(files, filepath.Join(s.dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// loadFile parses and validates a single rule definition file.
func (s *Store) loadFile(file string) (*Rule, []string) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, []string{fmt.Sprintf("read rule %s: %s", file, err)}
	}
	var rule Rule
	if err := yaml.Unmarshal(data, &rule); err != nil {
		return nil, []string{fmt.Sprintf("parse rule %s: %s", file, err)}
	}
	if errs := s.validate(&rule); len(errs) > 0 {
		prefixed := make([]string, len(errs))
		for i, e := range errs {
			prefixed[i] = fmt.Sprintf("%s: %s", file, e)
		}
		return nil, prefixed
	}
	return &rule, nil
}

func (s *Store) validate(rule *Rule) []string {
	var errs []string
	if rule.Name == "" {
		errs = append(errs, "rule name is required")
	}
	if rule.EventType == "" {
		errs = append(errs, "rule eventType is required")
	}
	if len(rule.Mappings) == 0 {
		errs = append(errs, "rule must define at least one mapping")
	}
	for i, fm := range rule.Mappings {
		for _, e := range s.mapper.ValidateMapping(fm) {
			errs = append(errs, fmt.Sprintf("mappings[%d]: %s", i, e))
		}
	}
	return errs
}
