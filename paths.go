package zkpath

import "strings"

// Resolve normalizes input against base. Absolute inputs are returned
// normalized with base ignored; relative inputs are joined under base.
// Resolve is idempotent: resolving an already-absolute path never prepends
// the base again.
func Resolve(base, input string) string {
	if strings.HasPrefix(input, "/") {
		return normalize(input)
	}
	return normalize(base + "/" + input)
}

// normalize collapses runs of '/' into one and strips a trailing '/',
// preserving the lone root path "/".
func normalize(p string) string {
	var b strings.Builder
	b.Grow(len(p))
	prevSep := false
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			if prevSep {
				continue
			}
			prevSep = true
		} else {
			prevSep = false
		}
		b.WriteByte(p[i])
	}
	out := b.String()
	if len(out) > 1 && strings.HasSuffix(out, "/") {
		out = out[:len(out)-1]
	}
	return out
}

// SubPaths decomposes an absolute path into its ancestor chain including
// itself, shallowest first: "/a/b/c" yields ["/a", "/a/b", "/a/b/c"].
// The root path "/" has no segments and yields an empty chain.
func SubPaths(path string) []string {
	p := normalize(path)
	if p == "/" || p == "" {
		return nil
	}
	segs := strings.Split(strings.TrimPrefix(p, "/"), "/")
	chain := make([]string, 0, len(segs))
	cur := ""
	for _, seg := range segs {
		cur += "/" + seg
		chain = append(chain, cur)
	}
	return chain
}

// parentOf returns the parent of an absolute path, or "/" for a
// single-segment path.
func parentOf(path string) string {
	p := normalize(path)
	idx := strings.LastIndexByte(p, '/')
	if idx <= 0 {
		return "/"
	}
	return p[:idx]
}
