package grading

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/blake2b"
)

// DefaultPlanCacheSize is used when NewPlanCache is given a non-positive size.
const DefaultPlanCacheSize = 256

// planEntry holds a compiled plan with the identity it was compiled from.
type planEntry struct {
	version int64
	hash    string
	plan    *Plan
	err     error
}

// PlanCache keeps compiled plans per grading model. An entry is reused only
// while both the model version and the content hash of its graph match.
// Rejected graphs are cached too, so repeated requests do not revalidate them.
// Safe for concurrent use.
type PlanCache struct {
	lru *lru.Cache[int, planEntry]
}

// NewPlanCache creates a cache holding at most size models.
func NewPlanCache(size int) *PlanCache {
	if size <= 0 {
		size = DefaultPlanCacheSize
	}
	c, err := lru.New[int, planEntry](size)
	if err != nil {
		// only returned for non-positive sizes
		panic(err)
	}
	return &PlanCache{lru: c}
}

// Size returns the number of cached models.
func (c *PlanCache) Size() int { return c.lru.Len() }

// Invalidate drops the entry of a model.
func (c *PlanCache) Invalidate(modelID int) { c.lru.Remove(modelID) }

// Plan returns the compiled plan of m, compiling it on a miss. It satisfies
// Compiler.
func (c *PlanCache) Plan(m Model) (*Plan, error) {
	if m.Graph == nil {
		return nil, fmt.Errorf("grading model %d has no graph", m.ID)
	}
	hash, err := GraphHash(m.Graph)
	if err != nil {
		return nil, err
	}
	if e, ok := c.lru.Get(m.ID); ok && e.version == m.Version && e.hash == hash {
		return e.plan, e.err
	}
	plan, err := Compile(m.Graph)
	c.lru.Add(m.ID, planEntry{version: m.Version, hash: hash, plan: plan, err: err})
	return plan, err
}

// GraphHash is the hex BLAKE2b-256 digest of the JSON form of g. Map keys are
// sorted by encoding/json, so equal graphs hash equally.
func GraphHash(g *Graph) (string, error) {
	b, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("hash graph: %w", err)
	}
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
