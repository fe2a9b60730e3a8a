package rtdb

import (
	"reflect"
	"testing"
)

func TestTreePutAndPrune(t *testing.T) {
	var tr tree
	tr.put("/", map[string]any{"sensor": map[string]any{"entrada": 1.0}})
	tr.put("/atuador/estado", true)

	want := map[string]any{
		"sensor":  map[string]any{"entrada": 1.0},
		"atuador": map[string]any{"estado": true},
	}
	if !reflect.DeepEqual(tr.root, want) {
		t.Fatalf("unexpected tree %#v", tr.root)
	}

	tr.put("/atuador/estado", nil)
	if _, ok := tr.root.(map[string]any)["atuador"]; ok {
		t.Fatalf("empty parent should be pruned: %#v", tr.root)
	}

	tr.put("/", nil)
	if tr.root != nil {
		t.Fatalf("root delete should empty the tree")
	}
}

func TestTreePatchKeepsSiblings(t *testing.T) {
	var tr tree
	tr.put("/sensor", map[string]any{"entrada": 1.0, "saida": 2.0})
	tr.patch("/sensor", map[string]any{"entrada": 5.0, "luminosity/red": 7.0})

	want := map[string]any{
		"sensor": map[string]any{
			"entrada":    5.0,
			"saida":      2.0,
			"luminosity": map[string]any{"red": 7.0},
		},
	}
	if !reflect.DeepEqual(tr.root, want) {
		t.Fatalf("unexpected tree %#v", tr.root)
	}
}

func TestTreeSnapshot(t *testing.T) {
	var tr tree
	s, err := tr.snapshot()
	if err != nil || s.Sensor != nil || s.Atuador != nil {
		t.Fatalf("empty tree should give empty snapshot: %+v %v", s, err)
	}
	tr.put("/sensor/saida", 3.0)
	s, err = tr.snapshot()
	if err != nil || s.Sensor == nil || *s.Sensor.Saida != 3 {
		t.Fatalf("unexpected snapshot %+v %v", s, err)
	}
}
