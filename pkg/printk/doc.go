// Package printk decodes kernel ring-buffer dumps in the printk record format.
//
// A captured log buffer is a sequence of self-contained records. Each record
// starts with a fixed 16 byte header followed by the message text, an
// optional dictionary and padding up to the next 4 byte boundary.
//
// # Record Format
//
//	[Timestamp(8)][RecordLen(2)][TextLen(2)][DictLen(2)][Flags(2)][Text][Dict][Padding]
//
// Fields:
//   - Timestamp: monotonic clock value in nanoseconds at emission
//   - RecordLen: header plus payload size in bytes, before alignment
//   - TextLen: length of the human readable message
//   - DictLen: length of the NUL separated key=value metadata
//   - Flags: syslog priority, facility in the upper bits and level in the low 3 bits
//
// A record occupies exactly Align(RecordLen) bytes on the wire. Padding bytes
// are skipped and never interpreted.
//
// Example of a record captured on a little endian target:
//
//	0000  ff 8f 00 00 00 00 00 00      monotonic time in nsec
//	0008  31 00                        record is 49 bytes long
//	000a        0b 00                  text is 11 bytes long
//	000c              16 00            dictionary is 22 bytes long
//	000e                    03 00      LOG_KERN (facility) LOG_ERR (level)
//	0010  69 74 27 73 20 61 20 6c      "it's a l"
//	      69 6e 65                     "ine"
//	001b           44 45 56 49 43      "DEVIC"
//	      45 3d 62 38 3a 32 00 44      "E=b8:2\0D"
//	      52 49 56 45 52 3d 62 75      "RIVER=bu"
//	      67                           "g"
//	0031     00 00 00                  padding to next message header (52 bytes)
//
// Flags are read as one syslog priority word, as in the example above. Kernels
// whose printk_log holds a u8 facility followed by flags:5 and level:3 pack
// these two bytes differently, so Level and Facility may not match their layout.
//
// # Byte Order
//
// The numeric header fields use the byte order of the machine that produced
// the capture. The decoder never guesses it from the data; callers select
// LittleEndian or BigEndian based on where the dump came from.
//
// # Usage
//
//	dec := printk.NewDecoder(f, printk.WithByteOrder(printk.BigEndian))
//	for {
//	    rec, err := dec.Next()
//	    if errors.Is(err, io.EOF) {
//	        break // clean end of capture
//	    }
//	    if err != nil {
//	        return err // truncated, malformed or unreadable
//	    }
//	    fmt.Println(rec.String())
//	}
//
// # Error Handling
//
// Next returns io.EOF when the stream ends on a record boundary. Every other
// failure is a *DecodeError whose Outcome tells truncation, source failures
// and malformed headers or bodies apart; errors.Is works against
// ErrTruncated, ErrMalformedHeader, ErrMalformedBody and ErrRecordTooLarge.
// A decoder stops at the first failure and keeps returning it.
//
// # Thread Safety
//
// A Decoder owns the read cursor of its source and must be used from one
// goroutine at a time. Decoded records are immutable and safe to share.
package printk
