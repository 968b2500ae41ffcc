package internal

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestByteQueueAppendDiscard(t *testing.T) {
	var q ByteQueue
	var want []byte
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		switch {
		case q.Len() == 0 || rng.Intn(3) != 0:
			n := 1 + rng.Intn(37)
			b := make([]byte, n)
			rng.Read(b)
			q.Append(b)
			want = append(want, b...)
		default:
			n := 1 + rng.Intn(q.Len())
			q.Discard(n)
			want = want[n:]
		}
		h, tl := q.Slices()
		got := append(append([]byte{}, h...), tl...)
		if !bytes.Equal(got, want) {
			t.Fatalf("iteration %d: queue contents mismatch: got %x want %x", i, got, want)
		}
		if q.Len() != len(want) {
			t.Fatalf("iteration %d: Len()=%d want %d", i, q.Len(), len(want))
		}
	}
}

func TestByteQueuePeekFrom(t *testing.T) {
	var q ByteQueue
	q.Append([]byte("hello "))
	q.Discard(3)
	q.Append([]byte("world"))
	// Buffered contents are now "lo world".
	h, tl := q.PeekFrom(3)
	got := append(append([]byte{}, h...), tl...)
	if string(got) != "world" {
		t.Fatalf("PeekFrom(3) = %q, want %q", got, "world")
	}
}

func TestByteQueueNeverDropsOnGrowth(t *testing.T) {
	var q ByteQueue
	for i := 0; i < 10; i++ {
		q.Append(bytes.Repeat([]byte{byte(i)}, 37))
	}
	if q.Len() != 370 {
		t.Fatalf("Len()=%d want 370", q.Len())
	}
	h, tl := q.Slices()
	if len(h)+len(tl) != 370 {
		t.Fatalf("Slices() total = %d want 370", len(h)+len(tl))
	}
}
