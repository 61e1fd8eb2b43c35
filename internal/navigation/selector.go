// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package navigation

import (
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash/fnv"
	"math"
	"math/rand/v2"
)

// sampler is the per-decision random source.
type sampler struct {
	rng           *rand.Rand
	base          uint64
	deterministic bool
	seedHash      string
}

// newSampler builds the decision PRNG. Preview decisions seed PCG from the
// SHA-256 of the cache seed; production decisions seed ChaCha8 from crypto/rand.
func newSampler(preview bool, cacheSeed string) *sampler {
	if preview {
		sum := sha256.Sum256([]byte(cacheSeed))
		hi := binary.BigEndian.Uint64(sum[0:8])
		lo := binary.BigEndian.Uint64(sum[8:16])
		return &sampler{
			rng:           rand.New(rand.NewPCG(hi, lo)), //nolint:gosec // reproducible preview sampling
			base:          hi ^ lo,
			deterministic: true,
			seedHash:      hex.EncodeToString(sum[:8]),
		}
	}

	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// crypto/rand does not fail on supported platforms; keep going unseeded.
		binary.BigEndian.PutUint64(seed[:8], rand.Uint64())
	}
	return &sampler{
		rng:  rand.New(rand.NewChaCha8(seed)), //nolint:gosec // exploration sampling, not a secret
		base: binary.BigEndian.Uint64(seed[8:16]),
	}
}

// providerSeed derives a stable per-provider seed from the decision seed.
func (s *sampler) providerSeed(provider string) uint64 {
	h := fnv.New64a()
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], s.base)
	_, _ = h.Write(b[:])
	_, _ = h.Write([]byte(provider))
	return h.Sum64()
}

// pick draws a winner index from probabilities that sum to one.
func (s *sampler) pick(probs []float64) (int, float64) {
	draw := s.rng.Float64()
	acc := 0.0
	for i, p := range probs {
		acc += p
		if draw < acc {
			return i, draw
		}
	}
	return len(probs) - 1, draw
}

// softmax converts scores into probabilities at temperature t. A
// non-positive temperature is greedy: mass is split evenly across the
// top-scoring ties.
func softmax(scores []float64, t float64) []float64 {
	n := len(scores)
	out := make([]float64, n)
	if n == 0 {
		return out
	}

	top := scores[0]
	for _, s := range scores[1:] {
		if s > top {
			top = s
		}
	}

	if t <= 0 {
		ties := 0
		for _, s := range scores {
			if s == top {
				ties++
			}
		}
		for i, s := range scores {
			if s == top {
				out[i] = 1 / float64(ties)
			}
		}
		return out
	}

	sum := 0.0
	for i, s := range scores {
		out[i] = math.Exp((s - top) / t)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// mixEpsilon reserves eps of the mass for uniform selection.
func mixEpsilon(probs []float64, eps float64) {
	n := len(probs)
	if n == 0 || eps <= 0 {
		return
	}
	share := eps / float64(n)
	for i := range probs {
		probs[i] = (1-eps)*probs[i] + share
	}
}

// assignProbabilities writes softmax+epsilon probabilities onto a ranked pool.
func assignProbabilities(pool []TransitionCandidate, temperature, eps float64) []float64 {
	scores := make([]float64, len(pool))
	for i := range pool {
		scores[i] = pool[i].Score
	}
	probs := softmax(scores, temperature)
	mixEpsilon(probs, eps)
	for i := range pool {
		pool[i].Probability = probs[i]
	}
	return probs
}
