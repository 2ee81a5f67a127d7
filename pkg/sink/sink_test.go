package sink

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/ssargent/logbuf/pkg/printk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []*printk.Record {
	return []*printk.Record{
		printk.NewRecord(0, printk.FacilityKern, printk.LevelNotice, []byte("Booting Linux on physical CPU 0x0"), nil),
		printk.NewRecord(36863000, printk.FacilityKern, printk.LevelErr, []byte("it's a line"), []byte("DEVICE=b8:2\x00DRIVER=bug")),
		printk.NewRecord(12_000_500_000, printk.FacilityDaemon, printk.LevelInfo, []byte{'b', 'a', 'd', 0xff}, nil),
	}
}

func writeAll(t *testing.T, s Sink, records []*printk.Record) {
	t.Helper()
	for _, rec := range records {
		require.NoError(t, s.Write(rec))
	}
	require.NoError(t, s.Flush())
}

func TestNew(t *testing.T) {
	for _, format := range []string{"", "text", "TEXT", "dmesg", "dmesg-x", "json", "cbor"} {
		s, err := New(format, &bytes.Buffer{})
		require.NoError(t, err, format)
		assert.NotNil(t, s, format)
	}

	s, err := New("xml", &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json or cbor")
	assert.Nil(t, s)
}

func TestTextSink(t *testing.T) {
	var buf bytes.Buffer
	writeAll(t, NewTextSink(&buf), sampleRecords())

	assert.Equal(t, "Booting Linux on physical CPU 0x0\nit's a line\nbad\xff\n", buf.String())
}

func TestTextSink_BuffersUntilFlush(t *testing.T) {
	var buf bytes.Buffer
	s := NewTextSink(&buf)
	require.NoError(t, s.Write(sampleRecords()[0]))
	assert.Empty(t, buf.String())
	require.NoError(t, s.Flush())
	assert.NotEmpty(t, buf.String())
}

func TestDmesgSink(t *testing.T) {
	var buf bytes.Buffer
	writeAll(t, NewDmesgSink(&buf, false), sampleRecords())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "[    0.000000] Booting Linux on physical CPU 0x0", lines[0])
	assert.Equal(t, "[    0.036863] it's a line", lines[1])
	assert.Equal(t, "[   12.000500] bad\xff", lines[2])
}

func TestDmesgSink_ShowLevel(t *testing.T) {
	var buf bytes.Buffer
	writeAll(t, NewDmesgSink(&buf, true), sampleRecords()[1:2])

	assert.Equal(t, "kern  :err   : [    0.036863] it's a line\n", buf.String())
}

func TestJSONSink(t *testing.T) {
	var buf bytes.Buffer
	writeAll(t, NewJSONSink(&buf), sampleRecords()[:2])

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var got JSONRecord
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &got))
	assert.Equal(t, uint64(36863000), got.Timestamp)
	assert.Equal(t, "kern", got.Facility)
	assert.Equal(t, "err", got.Level)
	assert.Equal(t, "it's a line", got.Text)
	assert.Equal(t, []string{"DEVICE=b8:2", "DRIVER=bug"}, got.Dictionary)

	assert.NotContains(t, lines[0], "dictionary")
}

func TestCBORSink(t *testing.T) {
	var buf bytes.Buffer
	records := sampleRecords()
	writeAll(t, NewCBORSink(&buf), records)

	dec := cbor.NewDecoder(&buf)
	for _, want := range records {
		var got CBORRecord
		require.NoError(t, dec.Decode(&got))
		assert.Equal(t, want.Timestamp, got.Timestamp)
		assert.Equal(t, uint16(want.Facility()), got.Facility)
		assert.Equal(t, uint8(want.Level()), got.Level)
		assert.Equal(t, want.Text, got.Text)
		assert.Equal(t, want.DictEntries(), got.Dict)
	}

	var extra CBORRecord
	assert.ErrorIs(t, dec.Decode(&extra), io.EOF)
}

func TestCBORSink_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	writeAll(t, NewCBORSink(&a), sampleRecords())
	writeAll(t, NewCBORSink(&b), sampleRecords())
	assert.Equal(t, a.Bytes(), b.Bytes())
}
