package physics

import (
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

const (
	MaterialDefault       = "default"
	MaterialNonCollidable = "nonCollidable"
)

// PairProperties are the contact properties between two materials.
type PairProperties struct {
	StaticFriction  float64 `yaml:"static_friction"`
	DynamicFriction float64 `yaml:"dynamic_friction"`
	Elasticity      float64 `yaml:"elasticity"`
	Softness        float64 `yaml:"softness"`
	Collisions      bool    `yaml:"collisions"`
}

// DefaultPairProperties is used for pairs that were never configured.
var DefaultPairProperties = PairProperties{
	StaticFriction:  0.9,
	DynamicFriction: 0.5,
	Elasticity:      0.4,
	Softness:        0.1,
	Collisions:      true,
}

// MaterialDB stores materials and the properties of material pairs. Pairs
// are unordered: (a, b) and (b, a) share the same entry.
type MaterialDB struct {
	materials map[string]struct{}
	gravities map[string]float64
	pairs     map[uint64]PairProperties
	version   uint64
}

// NewMaterialDB returns a database holding the initial materials.
func NewMaterialDB() *MaterialDB {
	db := &MaterialDB{
		materials: make(map[string]struct{}),
		gravities: make(map[string]float64),
		pairs:     make(map[uint64]PairProperties),
	}
	db.CreateMaterial(MaterialNonCollidable)
	db.CreateMaterial(MaterialDefault)
	return db
}

// CreateMaterial adds a material. It returns false if it already exists.
func (db *MaterialDB) CreateMaterial(name string) bool {
	if _, ok := db.materials[name]; ok {
		return false
	}
	db.materials[name] = struct{}{}
	db.version++
	return true
}

func (db *MaterialDB) Has(name string) bool {
	_, ok := db.materials[name]
	return ok
}

// Materials returns the names of all materials.
func (db *MaterialDB) Materials() []string {
	out := make([]string, 0, len(db.materials))
	for m := range db.materials {
		out = append(out, m)
	}
	return out
}

func (db *MaterialDB) SetFrictions(mat1, mat2 string, static, dynamic float64) error {
	return db.update(mat1, mat2, func(p *PairProperties) {
		p.StaticFriction = static
		p.DynamicFriction = dynamic
	})
}

func (db *MaterialDB) SetElasticity(mat1, mat2 string, elasticity float64) error {
	return db.update(mat1, mat2, func(p *PairProperties) { p.Elasticity = elasticity })
}

func (db *MaterialDB) SetSoftness(mat1, mat2 string, softness float64) error {
	return db.update(mat1, mat2, func(p *PairProperties) { p.Softness = softness })
}

func (db *MaterialDB) EnableCollision(mat1, mat2 string, enable bool) error {
	return db.update(mat1, mat2, func(p *PairProperties) { p.Collisions = enable })
}

func (db *MaterialDB) SetProperties(mat1, mat2 string, props PairProperties) error {
	return db.update(mat1, mat2, func(p *PairProperties) { *p = props })
}

// SetGravitationalAcceleration overrides gravity for bodies made of mat.
func (db *MaterialDB) SetGravitationalAcceleration(mat string, g float64) error {
	if !db.Has(mat) {
		return fmt.Errorf("%w: %s", ErrUnknownMaterial, mat)
	}
	db.gravities[mat] = g
	db.version++
	return nil
}

// GravitationalAcceleration returns the gravity override for mat, if any.
func (db *MaterialDB) GravitationalAcceleration(mat string) (float64, bool) {
	g, ok := db.gravities[mat]
	return g, ok
}

// Pair returns the properties between two materials. The non-collidable
// material never collides with anything.
func (db *MaterialDB) Pair(mat1, mat2 string) PairProperties {
	p, ok := db.pairs[pairKey(mat1, mat2)]
	if !ok {
		p = DefaultPairProperties
	}
	if mat1 == MaterialNonCollidable || mat2 == MaterialNonCollidable {
		p.Collisions = false
	}
	return p
}

func (db *MaterialDB) update(mat1, mat2 string, fn func(p *PairProperties)) error {
	for _, m := range [2]string{mat1, mat2} {
		if !db.Has(m) {
			return fmt.Errorf("%w: %s", ErrUnknownMaterial, m)
		}
	}
	key := pairKey(mat1, mat2)
	p, ok := db.pairs[key]
	if !ok {
		p = DefaultPairProperties
	}
	fn(&p)
	db.pairs[key] = p
	db.version++
	return nil
}

// Version changes every time a material, a pair or a gravity override is
// added or modified.
func (db *MaterialDB) Version() uint64 { return db.version }

// Surface returns per-material friction and elasticity for engines that
// combine the values of two touching shapes by multiplication. Values are
// factored against the default material, so pairs involving it are exact
// and other pairs are approximated. A material never paired with the
// default one falls back to the square root of its own pair.
func (db *MaterialDB) Surface(mat string) (friction, elasticity float64) {
	ref := db.Pair(MaterialDefault, MaterialDefault)
	if _, ok := db.pairs[pairKey(mat, MaterialDefault)]; !ok && mat != MaterialDefault {
		self := db.Pair(mat, mat)
		return math.Sqrt(self.DynamicFriction), math.Min(math.Sqrt(self.Elasticity), 1)
	}
	p := db.Pair(mat, MaterialDefault)
	return factor(p.DynamicFriction, ref.DynamicFriction), math.Min(factor(p.Elasticity, ref.Elasticity), 1)
}

func factor(pair, ref float64) float64 {
	if ref <= 0 {
		return pair
	}
	return pair / math.Sqrt(ref)
}

func pairKey(mat1, mat2 string) uint64 {
	if mat2 < mat1 {
		mat1, mat2 = mat2, mat1
	}
	d := xxhash.New()
	_, _ = d.WriteString(mat1)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(mat2)
	return d.Sum64()
}
