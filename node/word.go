package node

// ---------------------------------------------------------------------------
// Variable-length word encoding
// ---------------------------------------------------------------------------
//
// Words travel as big-endian bytes with all leading zero bytes stripped;
// the zero word occupies no bytes at all. The byte count is carried out of
// band in a 4-bit header nibble, which caps payloads at 15 bytes — ample
// for 64-bit words, whose encoding never exceeds 8 bytes.

// wordLen returns the number of bytes appendWord will emit for w.
func wordLen(w uint64) int {
	n := 0
	for w != 0 {
		n++
		w >>= 8
	}
	return n
}

// appendWord appends the stripped big-endian encoding of w to dst.
func appendWord(dst []byte, w uint64) []byte {
	started := false
	for i := 7; i >= 0; i-- {
		b := byte(w >> (i * 8))
		if started || b != 0 {
			dst = append(dst, b)
			started = true
		}
	}
	return dst
}

// readWord reassembles a word from exactly len(b) big-endian bytes,
// zero-filling the higher-order bytes. readWord(appendWord(nil, x)) == x
// for every x.
func readWord(b []byte) uint64 {
	var w uint64
	for _, c := range b {
		w = w<<8 | uint64(c)
	}
	return w
}
