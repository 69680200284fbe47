package repo

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreFileName is the per-repository ignore file at the worktree root.
const IgnoreFileName = ".vcsignore"

// IgnoreChecker determines if a path should be ignored.
type IgnoreChecker struct {
	patterns []ignorePattern

	// Precompiled/indexed pattern groups used by IsIgnored fast paths.
	exactBasePatterns   map[string][]int
	exactPathPatterns   map[string][]int
	wildcardBasePattern []int
	wildcardPathPattern []int
}

type ignorePattern struct {
	pattern  string
	negated  bool
	dirOnly  bool
	hasSlash bool // pattern contains a slash or is anchored, so match against full path
	regex    *regexp.Regexp
}

// NewIgnoreChecker creates an IgnoreChecker for the given repository root.
// It always ignores .vcs/. If a .vcsignore file exists in repoRoot, its
// patterns are parsed and applied after the built-in one.
func NewIgnoreChecker(repoRoot string) *IgnoreChecker {
	ic := &IgnoreChecker{}
	ic.patterns = append(ic.patterns, ignorePattern{pattern: vcsDirName})

	f, err := os.Open(filepath.Join(repoRoot, IgnoreFileName))
	if err == nil {
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if p := parseLine(scanner.Text()); p != nil {
				ic.patterns = append(ic.patterns, *p)
			}
		}
	}

	ic.compile()
	return ic
}

// parseLine parses a single line from a .vcsignore file. Returns nil if the
// line is empty or a comment.
func parseLine(line string) *ignorePattern {
	line = strings.TrimRight(line, " \t\r")
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	p := &ignorePattern{}

	// Negation: lines starting with ! un-ignore a pattern.
	if strings.HasPrefix(line, "!") {
		p.negated = true
		line = line[1:]
	}

	// Directory-only: lines ending with / match directories only.
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimRight(line, "/")
	}

	// A leading slash anchors the pattern to the repository root.
	if strings.HasPrefix(line, "/") {
		line = strings.TrimLeft(line, "/")
		p.hasSlash = true
	}
	if line == "" {
		return nil
	}
	if strings.Contains(line, "/") {
		p.hasSlash = true
	}

	p.pattern = line
	if strings.Contains(line, "**") {
		if re, err := regexp.Compile(globToRegex(line)); err == nil {
			p.regex = re
		}
	}
	return p
}

// IsIgnored checks whether a relative path should be ignored. The path should
// use forward slashes and be relative to the repository root. A path is
// ignored when it matches, or when any of its parent directories does.
//
// Last matching pattern wins (to support negation).
func (ic *IgnoreChecker) IsIgnored(path string) bool {
	return ic.ignored(path, false)
}

// IsIgnoredDir is IsIgnored for a path known to be a directory, so that
// directory-only patterns such as "build/" apply to the path itself.
func (ic *IgnoreChecker) IsIgnoredDir(path string) bool {
	return ic.ignored(path, true)
}

func (ic *IgnoreChecker) ignored(path string, isDir bool) bool {
	path = strings.Trim(filepath.ToSlash(path), "/")
	if path == "" || path == "." {
		return false
	}
	if path == vcsDirName || strings.HasPrefix(path, vcsDirName+"/") {
		return true
	}
	for i := 0; i < len(path); i++ {
		if path[i] == '/' && ic.matchOne(path[:i], true) {
			return true
		}
	}
	return ic.matchOne(path, isDir)
}

// matchOne evaluates the patterns against a single path. Directory-only
// patterns are skipped unless isDir is set.
func (ic *IgnoreChecker) matchOne(path string, isDir bool) bool {
	base := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		base = path[i+1:]
	}

	lastMatch := -1
	ignored := false
	apply := func(idx int) {
		if ic.patterns[idx].dirOnly && !isDir {
			return
		}
		if idx > lastMatch {
			lastMatch = idx
			ignored = !ic.patterns[idx].negated
		}
	}
	applyAll := func(patterns []int) {
		for _, idx := range patterns {
			apply(idx)
		}
	}

	// Exact literals are resolved via maps.
	if idxs, ok := ic.exactPathPatterns[path]; ok {
		applyAll(idxs)
	}
	if idxs, ok := ic.exactBasePatterns[base]; ok {
		applyAll(idxs)
	}

	// Wildcards still require matching checks but are pre-separated by target.
	for _, idx := range ic.wildcardPathPattern {
		if ic.patterns[idx].match(path) {
			apply(idx)
		}
	}
	for _, idx := range ic.wildcardBasePattern {
		if ic.patterns[idx].match(base) {
			apply(idx)
		}
	}

	return ignored
}

func (ic *IgnoreChecker) compile() {
	ic.exactBasePatterns = make(map[string][]int)
	ic.exactPathPatterns = make(map[string][]int)
	ic.wildcardBasePattern = nil
	ic.wildcardPathPattern = nil

	for idx := range ic.patterns {
		p := ic.patterns[idx]

		switch {
		case p.regex == nil && isLiteralPattern(p.pattern):
			if p.hasSlash {
				ic.exactPathPatterns[p.pattern] = append(ic.exactPathPatterns[p.pattern], idx)
			} else {
				ic.exactBasePatterns[p.pattern] = append(ic.exactBasePatterns[p.pattern], idx)
			}
		case p.hasSlash:
			ic.wildcardPathPattern = append(ic.wildcardPathPattern, idx)
		default:
			ic.wildcardBasePattern = append(ic.wildcardBasePattern, idx)
		}
	}
}

func isLiteralPattern(pattern string) bool {
	return !strings.ContainsAny(pattern, "*?[")
}

func (p *ignorePattern) match(target string) bool {
	if p.regex != nil {
		return p.regex.MatchString(target)
	}
	matched, _ := filepath.Match(p.pattern, target)
	return matched
}

func globToRegex(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		if ch == '*' {
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					// Globstar directory segment: match zero or more path segments.
					b.WriteString("(?:.*/)?")
					i += 2
				} else {
					b.WriteString(".*")
					i++
				}
				continue
			}
			b.WriteString("[^/]*")
			continue
		}
		if ch == '?' {
			b.WriteString("[^/]")
			continue
		}
		if strings.ContainsRune(`.+()|[]{}^$\\`, rune(ch)) {
			b.WriteByte('\\')
		}
		b.WriteByte(ch)
	}
	b.WriteString("$")
	return b.String()
}
