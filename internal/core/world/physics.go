package world

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/worldsim/internal/core/physics"
)

var ErrNoBody = errors.New("entity has no physics body")

// Contacts returns the contacts of the last step keyed by entity. The map
// is owned by the World and rebuilt by every Advance.
func (w *World) Contacts() map[Entity][]Contact {
	return w.contacts
}

// CheckContacts reports whether a and b touched during the last step and
// returns up to maxPoints contact points in world coordinates.
func (w *World) CheckContacts(a, b Entity, maxPoints int) ([]mgl64.Vec3, bool) {
	cs, ok := w.contacts[a]
	if !ok {
		return nil, false
	}
	var points []mgl64.Vec3
	collision := false
	for _, c := range cs {
		if c.Collide != b {
			continue
		}
		collision = true
		if len(points) < maxPoints {
			points = append(points, c.WorldPos)
		}
	}
	return points, collision
}

// RayCast casts a ray from start to end and returns the intersected
// entities, or the closest one only.
func (w *World) RayCast(start, end mgl64.Vec3, onlyClosest bool, ignored ...Entity) []RayCastHit {
	var skip []physics.Body
	for _, e := range ignored {
		if h, ok := e.(BodyHolder); ok && h.PhysicsBody() != nil {
			skip = append(skip, h.PhysicsBody())
		}
	}
	raw := w.engine.RayCast(start, end, onlyClosest, skip...)
	hits := make([]RayCastHit, 0, len(raw))
	for _, h := range raw {
		e, ok := w.liveEntity(h.Object)
		if !ok {
			continue
		}
		hits = append(hits, RayCastHit{Object: e, Distance: h.Distance, Position: h.Position, Normal: h.Normal})
	}
	return hits
}

// DisableCollisions stops a and b from colliding with each other.
func (w *World) DisableCollisions(a, b Entity) error {
	return w.setCollisions(a, b, false)
}

func (w *World) EnableCollisions(a, b Entity) error {
	return w.setCollisions(a, b, true)
}

func (w *World) setCollisions(a, b Entity, enabled bool) error {
	ba, err := bodyOf(a)
	if err != nil {
		return err
	}
	bb, err := bodyOf(b)
	if err != nil {
		return err
	}
	w.engine.SetCollisionEnabled(ba, bb, enabled)
	return nil
}

// Joints returns the joints attached to the body entity e.
func (w *World) Joints(e Entity) []JointHolder {
	if e == nil {
		return nil
	}
	return slices.Clone(w.joints[e.Base()])
}

func (w *World) linkJoint(j JointHolder) {
	parent, child := j.JointBodies()
	for _, b := range [2]Entity{parent, child} {
		if b != nil {
			w.joints[b.Base()] = append(w.joints[b.Base()], j)
		}
	}
}

func (w *World) unlinkJoint(j JointHolder) {
	parent, child := j.JointBodies()
	for _, b := range [2]Entity{parent, child} {
		if b == nil {
			continue
		}
		key := b.Base()
		kept := slices.DeleteFunc(w.joints[key], func(o JointHolder) bool { return o == j })
		if len(kept) == 0 {
			delete(w.joints, key)
		} else {
			w.joints[key] = kept
		}
	}
}

func bodyOf(e Entity) (physics.Body, error) {
	h, ok := e.(BodyHolder)
	if !ok || h.PhysicsBody() == nil {
		name := "<nil>"
		if e != nil {
			name = e.Base().Name()
		}
		return nil, fmt.Errorf("%q: %w", name, ErrNoBody)
	}
	return h.PhysicsBody(), nil
}

func (w *World) liveEntity(owner any) (Entity, bool) {
	e, ok := owner.(Entity)
	if !ok || !w.Contains(e) {
		return nil, false
	}
	return e, true
}

func (w *World) collectContacts() {
	for _, c := range w.engine.Contacts() {
		obj, ok := w.liveEntity(c.Object)
		if !ok {
			continue
		}
		other, ok := w.liveEntity(c.Collide)
		if !ok {
			continue
		}
		w.contacts[obj] = append(w.contacts[obj], Contact{
			Object:   obj,
			Collide:  other,
			Position: c.Position,
			WorldPos: c.WorldPos,
			Force:    c.Force,
		})
	}
}

// dropContacts removes e from the contact map, both as object and as the
// other side of a contact.
func (w *World) dropContacts(e Entity) {
	cs, ok := w.contacts[e]
	if !ok {
		return
	}
	for _, c := range cs {
		other := w.contacts[c.Collide]
		kept := other[:0]
		for _, oc := range other {
			if oc.Collide != e {
				kept = append(kept, oc)
			}
		}
		if len(kept) == 0 {
			delete(w.contacts, c.Collide)
		} else {
			w.contacts[c.Collide] = kept
		}
	}
	delete(w.contacts, e)
}
