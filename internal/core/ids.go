package core

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/shipbatch/internal/rates"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// randomBase36 returns n random base36 characters.
func randomBase36(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for range n {
		sb.WriteByte(base36[rand.IntN(len(base36))])
	}
	return sb.String()
}

// newBatchID returns BATCH-<unix ms>-<9 random base36 chars>.
func newBatchID(now time.Time) string {
	return "BATCH-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + randomBase36(9)
}

// trackingPrefix is the service prefix of a tracking number.
var trackingPrefix = map[rates.Service]string{
	rates.Ground:   "GND",
	rates.Priority: "PRI",
}

// trackingSeqLimit is the number of sequence values that fit in two base36
// characters.
const trackingSeqLimit = 36 * 36

// trackingIssuer hands out tracking numbers of the form
// <prefix><base36 ms><2 char sequence><4 random chars>, all upper case.
// The millisecond clock it stamps never moves backwards and the sequence
// distinguishes numbers within one millisecond, so a number is never
// issued twice by the same process.
type trackingIssuer struct {
	mu     sync.Mutex
	lastMs int64
	seq    int
}

func (t *trackingIssuer) next(s rates.Service, now time.Time) string {
	t.mu.Lock()
	ms := now.UnixMilli()
	if ms <= t.lastMs {
		ms = t.lastMs
		t.seq++
		if t.seq == trackingSeqLimit {
			ms++
			t.seq = 0
		}
	} else {
		t.seq = 0
	}
	t.lastMs = ms
	seq := t.seq
	t.mu.Unlock()

	prefix, ok := trackingPrefix[s]
	if !ok {
		prefix = "PKG"
	}
	seqStr := strconv.FormatInt(int64(seq), 36)
	if len(seqStr) < 2 {
		seqStr = "0" + seqStr
	}
	return strings.ToUpper(prefix + strconv.FormatInt(ms, 36) + seqStr + randomBase36(4))
}
