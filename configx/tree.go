package configx

// Settings are nested map[string]any trees. Anything that is not a
// map[string]any is a leaf.

func lookup(root map[string]any, path []string) any {
	var node any = root
	for _, part := range path {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		if node, ok = m[part]; !ok {
			return nil
		}
	}
	return node
}

// insert creates missing branches and replaces leaves standing in the way
func insert(root map[string]any, path []string, val any) {
	last := len(path) - 1
	for _, part := range path[:last] {
		next, ok := root[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			root[part] = next
		}
		root = next
	}
	root[path[last]] = val
}

// overlay writes src over dst; branches present in both are merged
func overlay(dst, src map[string]any) {
	for k, v := range src {
		branch, isBranch := v.(map[string]any)
		if !isBranch {
			dst[k] = v
			continue
		}
		if existing, ok := dst[k].(map[string]any); ok {
			overlay(existing, branch)
		} else {
			dst[k] = clone(branch)
		}
	}
}

func clone(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	overlay(out, m)
	return out
}
