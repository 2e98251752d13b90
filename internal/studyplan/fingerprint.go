package studyplan

import (
	"encoding/binary"
	"encoding/hex"
	"io"
	"math"

	"golang.org/x/crypto/blake2b"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/schedule"
)

// Fingerprint identifies a scheduling input. Two inputs with the same
// options and the same topics in the same order hash equally.
func Fingerprint(topics []curriculum.Topic, opts schedule.Options) string {
	h, _ := blake2b.New256(nil)

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(opts.HoursPerDay))
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(opts.TotalDays))
	h.Write(buf[:])

	for _, t := range topics {
		writeField(h, t.ID)
		writeField(h, t.Subject)
		writeField(h, t.Name)
		writeField(h, string(t.Difficulty.Normalize()))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// writeField length-prefixes s so adjacent fields cannot run together.
func writeField(w io.Writer, s string) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(s)))
	w.Write(n[:])
	w.Write([]byte(s))
}
