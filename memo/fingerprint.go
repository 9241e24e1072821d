package memo

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
	"time"

	"github.com/rustyeddy/servicer/credit"
)

// Key is a content fingerprint (sha256).
type Key [sha256.Size]byte

func (k Key) String() string { return hex.EncodeToString(k[:]) }

// Hasher accumulates fixed-width values into a fingerprint.
type Hasher struct {
	h   hash.Hash
	buf [8]byte
}

func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

func (h *Hasher) Int64(v int64) *Hasher {
	binary.LittleEndian.PutUint64(h.buf[:], uint64(v))
	h.h.Write(h.buf[:])
	return h
}

func (h *Hasher) Float64(v float64) *Hasher {
	binary.LittleEndian.PutUint64(h.buf[:], math.Float64bits(v))
	h.h.Write(h.buf[:])
	return h
}

// Time hashes the instant; the zero time and nil both hash as math.MinInt64.
func (h *Hasher) Time(t *time.Time) *Hasher {
	if t == nil || t.IsZero() {
		return h.Int64(math.MinInt64)
	}
	return h.Int64(t.UnixNano())
}

func (h *Hasher) Key(k Key) *Hasher {
	h.h.Write(k[:])
	return h
}

func (h *Hasher) Sum() Key {
	var k Key
	copy(k[:], h.h.Sum(nil))
	return k
}

// Loans fingerprints the loan snapshot: ids in row order plus every column
// the engines read, so in-place edits of a reused id produce a new key.
func Loans(loans []credit.Loan) Key {
	h := NewHasher().Int64(int64(len(loans)))
	for i := range loans {
		l := &loans[i]
		h.Int64(l.ID).
			Float64(l.Amount).
			Float64(l.AnnualInterestRate).
			Float64(l.PaymentAmount).
			Int64(int64(l.Term)).
			Time(&l.OpeningDate).
			Time(&l.FirstPaymentDate).
			Time(l.ClosingDate)
	}
	return h.Sum()
}

// Payments fingerprints the payment snapshot the same way.
func Payments(payments []credit.Payment) Key {
	h := NewHasher().Int64(int64(len(payments)))
	for i := range payments {
		p := &payments[i]
		h.Int64(p.ID).
			Int64(p.LoanID).
			Time(&p.Date).
			Float64(p.Amount)
	}
	return h.Sum()
}

// Combine fingerprints an ordered tuple of keys.
func Combine(keys ...Key) Key {
	h := NewHasher()
	for _, k := range keys {
		h.Key(k)
	}
	return h.Sum()
}
