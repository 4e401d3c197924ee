// Package split assigns identifiers to the train and validation partitions.
package split

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

var (
	// ErrInvalidRatio is returned when the validation ratio is outside [0, 1].
	ErrInvalidRatio = errors.New("validation ratio must be between 0.0 and 1.0")
	// ErrEmptyInput is returned when there is nothing to split.
	ErrEmptyInput = errors.New("nothing to split")
)

// Assign shuffles ids in place with a generator seeded from seed and returns
// the train and validation partitions. The first ceil(len*ratio) shuffled
// identifiers form the validation partition. Both returned slices alias ids.
func Assign(ids []string, ratio float64, seed int64) (train, valid []string, err error) {
	if math.IsNaN(ratio) || ratio < 0 || ratio > 1 {
		return nil, nil, fmt.Errorf("%w (got %v)", ErrInvalidRatio, ratio)
	}
	if len(ids) == 0 {
		return nil, nil, ErrEmptyInput
	}

	Shuffle(ids, seed)

	nValid := ValidCount(len(ids), ratio)
	return ids[nValid:], ids[:nValid], nil
}

// Shuffle permutes ids in place. The permutation depends only on len(ids)
// and seed.
func Shuffle(ids []string, seed int64) {
	rng := rand.New(rand.NewPCG(uint64(seed), 0))
	rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
}

// ValidCount returns ceil(total*ratio).
func ValidCount(total int, ratio float64) int {
	n := int(math.Ceil(float64(total) * ratio))
	if n > total {
		return total
	}
	return n
}
