package export

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

// Deduplicator merges near-duplicate entities and flags duplicate-content
// pages, ported from deduplicator.py's ContentDeduplicator.
type Deduplicator struct {
	// SimilarityThreshold gates the second, pairwise similarity-based merge
	// pass. A threshold of 1.0 (or above) disables that pass entirely,
	// leaving only exact-normalized-name merging (deduplicator.py:
	// "if self.similarity_threshold < 1.0").
	SimilarityThreshold float64
}

// NewDeduplicator builds a Deduplicator at the given threshold.
func NewDeduplicator(threshold float64) Deduplicator {
	return Deduplicator{SimilarityThreshold: threshold}
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeName lowercases and strips everything but letters/digits, the
// same normalization deduplicator.py's _normalize_name applies before
// grouping entities by name.
func normalizeName(name string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(name), "")
}

// DeduplicateEntities merges entities that share a normalized name, then
// (when SimilarityThreshold < 1.0) merges remaining entities whose names
// are sufficiently similar by Ratcliff/Obershelp ratio. Longer descriptions
// win in a merge; relationships and merge provenance are unioned.
func (d Deduplicator) DeduplicateEntities(entities []Entity) ([]Entity, DedupReport) {
	report := DedupReport{OriginalEntityCount: len(entities)}

	groups := make(map[string][]Entity)
	var order []string
	for _, e := range entities {
		key := normalizeName(e.Name)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], e)
	}

	merged := make([]Entity, 0, len(order))
	for _, key := range order {
		group := groups[key]
		if len(group) > 1 {
			names := make([]string, len(group))
			for i, e := range group {
				names[i] = e.Name
			}
			report.MergeGroups = append(report.MergeGroups, names)
		}
		merged = append(merged, mergeEntityGroup(group))
	}

	if d.SimilarityThreshold < 1.0 {
		merged = d.mergeSimilarEntities(merged, &report)
	}

	report.MergedEntityCount = len(merged)
	report.EntitiesRemoved = report.OriginalEntityCount - report.MergedEntityCount
	return merged, report
}

// mergeEntityGroup collapses a group of same-normalized-name entities into
// one, keeping the longest description and unioning relationships
// (deduplicator.py's _merge_entity_group).
func mergeEntityGroup(group []Entity) Entity {
	best := group[0]
	for _, e := range group[1:] {
		if len(e.Description) > len(best.Description) {
			best.Description = e.Description
		}
	}
	relSeen := make(map[string]bool)
	var rels []string
	var mergedFrom []string
	for _, e := range group {
		if e.Name != best.Name {
			mergedFrom = append(mergedFrom, e.Name)
		}
		mergedFrom = append(mergedFrom, e.MergedFrom...)
		for _, r := range e.Relationships {
			if !relSeen[r] {
				relSeen[r] = true
				rels = append(rels, r)
			}
		}
	}
	best.Relationships = rels
	if len(mergedFrom) > 0 {
		best.MergedFrom = mergedFrom
	}
	return best
}

// mergeSimilarEntities runs a second, pairwise merge pass over entities
// whose normalized names differ but whose raw names are similar enough by
// sequenceMatcherRatio (deduplicator.py's _merge_similar_entities).
func (d Deduplicator) mergeSimilarEntities(entities []Entity, report *DedupReport) []Entity {
	merged := make([]bool, len(entities))
	var out []Entity
	for i := range entities {
		if merged[i] {
			continue
		}
		group := []Entity{entities[i]}
		for j := i + 1; j < len(entities); j++ {
			if merged[j] {
				continue
			}
			ratio := sequenceMatcherRatio(strings.ToLower(entities[i].Name), strings.ToLower(entities[j].Name))
			if ratio >= d.SimilarityThreshold {
				group = append(group, entities[j])
				merged[j] = true
			}
		}
		if len(group) > 1 {
			names := make([]string, len(group))
			for k, e := range group {
				names[k] = e.Name
			}
			report.MergeGroups = append(report.MergeGroups, names)
		}
		out = append(out, mergeEntityGroup(group))
	}
	return out
}

// sequenceMatcherRatio hand-ports Python difflib.SequenceMatcher(None, a,
// b).ratio(): 2*M / T, where M is the total length of matching blocks found
// by recursively taking the longest matching block and repeating on the
// left/right remainders, and T is len(a)+len(b). No pack or ecosystem Go
// library reproduces this bit-exactly (see DESIGN.md), so it is hand-ported
// here rather than substituted with an approximate similarity metric.
func sequenceMatcherRatio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	matches := matchingBlockLength(a, b)
	return 2.0 * float64(matches) / float64(len(a)+len(b))
}

func matchingBlockLength(a, b string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingBlockLength(a[:ai], b[:bi])
	total += matchingBlockLength(a[ai+size:], b[bi+size:])
	return total
}

// longestMatch finds the longest common contiguous substring between a and
// b using the same "index b by character" approach as difflib's
// find_longest_match, without junk-character heuristics (not needed for the
// entity-name strings this is applied to).
func longestMatch(a, b string) (aStart, bStart, size int) {
	bIndex := make(map[byte][]int, len(b))
	for i := 0; i < len(b); i++ {
		bIndex[b[i]] = append(bIndex[b[i]], i)
	}

	j2len := make(map[int]int)
	bestI, bestJ, bestSize := 0, 0, 0
	for i := 0; i < len(a); i++ {
		newJ2len := make(map[int]int)
		for _, j := range bIndex[a[i]] {
			k := j2len[j-1] + 1
			newJ2len[j] = k
			if k > bestSize {
				bestI, bestJ, bestSize = i-k+1, j-k+1, k
			}
		}
		j2len = newJ2len
	}
	return bestI, bestJ, bestSize
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalizeContent collapses whitespace runs to a single space and trims
// ends, matching deduplicator.py's content-hash normalization before
// hashing page bodies.
func normalizeContent(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// DeduplicatePages flags (without removing) pages whose normalized content
// hash matches an earlier page, setting IsDuplicate/DuplicateOf on the
// later occurrence (deduplicator.py's deduplicate_pages). Returns the
// number of pages flagged as duplicates.
func (d Deduplicator) DeduplicatePages(pages []Page) ([]Page, int) {
	seen := make(map[string]string) // content hash -> first URL
	out := make([]Page, len(pages))
	copy(out, pages)
	duplicateCount := 0
	for i, p := range out {
		hash := contentHash(p.Content)
		if firstURL, ok := seen[hash]; ok {
			out[i].IsDuplicate = true
			out[i].DuplicateOf = firstURL
			duplicateCount++
		} else {
			seen[hash] = p.URL
		}
	}
	return out, duplicateCount
}

func contentHash(content string) string {
	sum := md5.Sum([]byte(normalizeContent(content)))
	return hex.EncodeToString(sum[:])
}

// sortedKeys returns a merge-group map's keys in sorted order, for
// deterministic iteration over this file's grouping structure.
func sortedKeys(m map[string][]Entity) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
