package objects

import (
	"sync"
	"testing"

	"github.com/l1jgo/phys/internal/core/store"
)

func TestHandle_LastReleaseEnqueues(t *testing.T) {
	gc := NewGarbageCollector()
	h := NewHandle(NewRigidBodyTag(store.NewKey(3, 1)), gc)
	c := h.Clone()

	if h.RefCount() != 2 {
		t.Fatalf("RefCount = %d, want 2", h.RefCount())
	}

	h.Release()
	if gc.Len() != 0 {
		t.Fatal("tag queued while a clone is still live")
	}
	h.Release() // already released, must not decrement again
	if c.RefCount() != 1 {
		t.Fatalf("RefCount = %d, want 1", c.RefCount())
	}

	c.Release()
	p := gc.Drain()
	if len(p.RigidBodies) != 1 || p.RigidBodies[0] != h.Get().Tag() {
		t.Fatalf("drained %+v, want the body tag", p)
	}
	if gc.Len() != 0 {
		t.Fatal("Drain must empty the queue")
	}
}

func TestHandle_CloneOfCloneSharesCount(t *testing.T) {
	gc := NewGarbageCollector()
	h := NewHandle(NewShapeTag(store.NewKey(0, 1)), gc)
	c1 := h.Clone()
	c2 := c1.Clone()

	for _, x := range []*Handle[ShapeTag]{h, c1, c2} {
		if x.Get() != h.Get() {
			t.Fatal("clones must wrap the same tag")
		}
	}
	h.Release()
	c2.Release()
	if gc.Len() != 0 {
		t.Fatal("queued too early")
	}
	c1.Release()
	if p := gc.Drain(); len(p.Shapes) != 1 {
		t.Fatalf("Shapes = %v, want one tag", p.Shapes)
	}
}

func TestHandle_CloneAfterReleasePanics(t *testing.T) {
	gc := NewGarbageCollector()
	h := NewHandle(NewJointTag(store.NewKey(2, 1)), gc)
	h.Release()

	defer func() {
		if recover() == nil {
			t.Fatal("Clone of a released handle did not panic")
		}
		if h.RefCount() != 0 {
			t.Fatalf("RefCount = %d after failed Clone, want 0", h.RefCount())
		}
		if p := gc.Drain(); len(p.Joints) != 1 {
			t.Fatalf("Joints = %v, want the tag queued once", p.Joints)
		}
	}()
	h.Clone()
}

func TestHandle_CloneOfReleasedSiblingPanics(t *testing.T) {
	gc := NewGarbageCollector()
	h := NewHandle(NewAreaTag(store.NewKey(1, 1)), gc)
	c := h.Clone()
	c.Release()

	defer func() {
		if recover() == nil {
			t.Fatal("Clone of a released clone did not panic")
		}
		if h.RefCount() != 1 {
			t.Fatalf("RefCount = %d, want 1", h.RefCount())
		}
	}()
	c.Clone()
}

func TestHandle_ConcurrentRelease(t *testing.T) {
	gc := NewGarbageCollector()
	h := NewHandle(NewJointTag(store.NewKey(1, 1)), gc)

	clones := make([]*Handle[JointTag], 64)
	for i := range clones {
		clones[i] = h.Clone()
	}
	h.Release()

	var wg sync.WaitGroup
	for _, c := range clones {
		wg.Add(1)
		go func(c *Handle[JointTag]) {
			defer wg.Done()
			c.Release()
		}(c)
	}
	wg.Wait()

	if p := gc.Drain(); len(p.Joints) != 1 {
		t.Fatalf("Joints = %v, want exactly one tag", p.Joints)
	}
}

func TestGarbageCollector_GroupsByKind(t *testing.T) {
	gc := NewGarbageCollector()
	gc.Enqueue(NewAreaTag(store.NewKey(0, 1)).Tag())
	gc.Enqueue(NewShapeTag(store.NewKey(0, 1)).Tag())
	gc.Enqueue(NewJointTag(store.NewKey(0, 1)).Tag())
	gc.Enqueue(NewRigidBodyTag(store.NewKey(0, 1)).Tag())

	p := gc.Drain()
	if len(p.Areas) != 1 || len(p.Shapes) != 1 || len(p.Joints) != 1 || len(p.RigidBodies) != 1 {
		t.Fatalf("unexpected grouping: %+v", p)
	}
	if p.Len() != 4 {
		t.Fatalf("Len = %d, want 4", p.Len())
	}
}

func TestUserData_Resolve(t *testing.T) {
	u := UserData{Kind: KindArea, Key: store.NewKey(2, 5), Entity: 9}
	if _, ok := u.RigidBody(); ok {
		t.Fatal("area user data must not resolve to a rigid body")
	}
	a, ok := u.Area()
	if !ok || a.Key() != u.Key {
		t.Fatalf("Area() = %v, %v", a, ok)
	}
}
