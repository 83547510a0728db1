package chunkstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io/ioutil"

	"blainsmith.com/go/seahash"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
)

// Chunk wire format: an 8-byte little-endian seahash checksum of the
// compressed payload, a 1-byte compression tag, then the payload itself.
// The tag makes every chunk self-describing, so an array created with one
// codec stays readable when reopened with different creation properties.
// Verifying the checksum on load (rather than trusting the backend) is
// how chunkstore surfaces a CorruptFile error instead of silently handing
// back garbage bytes to the record codecs.
const chunkHeaderLen = 9

func encodeChunk(buf []byte, c Compression) []byte {
	var payload []byte
	switch c {
	case CompressionSnappy:
		payload = snappy.Encode(nil, buf)
	case CompressionGzip:
		var b bytes.Buffer
		w := gzip.NewWriter(&b)
		_, _ = w.Write(buf)
		_ = w.Close()
		payload = b.Bytes()
	default:
		payload = buf
	}
	sum := seahash.Sum64(payload)
	out := make([]byte, chunkHeaderLen+len(payload))
	binary.LittleEndian.PutUint64(out[:8], sum)
	out[8] = byte(c)
	copy(out[chunkHeaderLen:], payload)
	return out
}

func decodeChunk(raw []byte) ([]byte, error) {
	if len(raw) < chunkHeaderLen {
		return nil, fmt.Errorf("chunk too short: %d bytes", len(raw))
	}
	wantSum := binary.LittleEndian.Uint64(raw[:8])
	c := Compression(raw[8])
	payload := raw[chunkHeaderLen:]
	if gotSum := seahash.Sum64(payload); gotSum != wantSum {
		return nil, fmt.Errorf("checksum mismatch: got %x want %x", gotSum, wantSum)
	}
	switch c {
	case CompressionSnappy:
		return snappy.Decode(nil, payload)
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return ioutil.ReadAll(r)
	default:
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	}
}
