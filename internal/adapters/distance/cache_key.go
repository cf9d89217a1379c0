package distance

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"lastmile-route-service/internal/domain"
)

// CacheKey derives a stable digest for an ordered location list. Order
// matters: the matrix is indexed by position, so permutations are
// distinct entries.
func CacheKey(locs []domain.Location) string {
	h := sha256.New()
	var buf [16]byte
	for _, l := range locs {
		binary.BigEndian.PutUint64(buf[0:8], math.Float64bits(l.Lat))
		binary.BigEndian.PutUint64(buf[8:16], math.Float64bits(l.Lng))
		h.Write(buf[:])
	}
	return fmt.Sprintf("matrix:%x", h.Sum(nil))
}
