package printk

// Encode serializes a record into its on-wire form. Padding bytes are zero.
func Encode(rec *Record, order ByteOrder) ([]byte, error) {
	return AppendRecord(nil, rec, order)
}

// AppendRecord appends the on-wire form of rec to dst. A capture is the
// concatenation of appended records.
func AppendRecord(dst []byte, rec *Record, order ByteOrder) ([]byte, error) {
	if err := rec.Validate(); err != nil {
		return dst, err
	}

	start := len(dst)
	footprint := rec.Footprint()
	if cap(dst)-start < footprint {
		grown := make([]byte, start, start+footprint)
		copy(grown, dst)
		dst = grown
	}
	dst = dst[:start+footprint]
	buf := dst[start:]

	rec.Header.put(buf, order)
	n := HeaderSize
	n += copy(buf[n:], rec.Text)
	n += copy(buf[n:], rec.Dict)
	clear(buf[n:])

	return dst, nil
}
