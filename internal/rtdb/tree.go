package rtdb

import (
	"encoding/json"
	"strings"

	"interop-dashboard/internal/model"
)

// tree is the local copy of the database rebuilt from stream events.
type tree struct {
	root any
}

// put replaces the node at path. A nil value deletes it; parents left empty are pruned.
func (t *tree) put(path string, data any) {
	t.root = setAt(t.root, splitPath(path), data)
}

// patch replaces each listed child of the node at path and leaves the others alone.
func (t *tree) patch(path string, data map[string]any) {
	segs := splitPath(path)
	for k, v := range data {
		t.root = setAt(t.root, append(segs[:len(segs):len(segs)], splitPath(k)...), v)
	}
}

func (t *tree) snapshot() (model.Snapshot, error) {
	raw, err := json.Marshal(t.root)
	if err != nil {
		return model.Snapshot{}, err
	}
	return model.DecodeSnapshot(raw)
}

func setAt(node any, segs []string, data any) any {
	if len(segs) == 0 {
		return data
	}
	m, ok := node.(map[string]any)
	if !ok {
		if data == nil {
			return node
		}
		m = map[string]any{}
	}
	child := setAt(m[segs[0]], segs[1:], data)
	if child == nil {
		delete(m, segs[0])
	} else {
		m[segs[0]] = child
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
