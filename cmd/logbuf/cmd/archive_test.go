package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ssargent/logbuf/pkg/config"
	"github.com/ssargent/logbuf/pkg/printk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveCommands(t *testing.T) {
	c := newTestContainer(t, nil)

	clean := writeCapture(t, printk.LittleEndian, nil, "alpha", "beta")
	damaged := writeCapture(t, printk.LittleEndian, []byte{0xff}, "gamma")

	first, err := archiveCapture(c, clean, 0)
	require.NoError(t, err)
	assert.True(t, first.Clean())

	second, err := archiveCapture(c, damaged, 0)
	require.NoError(t, err)
	assert.Equal(t, printk.OutcomeTruncated, second.Outcome)

	t.Run("list", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, listPasses(c, &out))

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "ID"))
		assert.Contains(t, out.String(), first.ID.String())
		assert.Contains(t, out.String(), second.ID.String())
		assert.Contains(t, out.String(), "end_of_stream")
		assert.Contains(t, out.String(), "truncated")
	})

	t.Run("show", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, showPass(c, first.ID.String(), &out))
		assert.Equal(t, "alpha\nbeta\n", out.String())

		out.Reset()
		require.NoError(t, showPass(c, second.ID.String(), &out))
		assert.Equal(t, "gamma\n", out.String())
	})

	t.Run("show invalid id", func(t *testing.T) {
		assert.Error(t, showPass(c, "not-a-ksuid", &bytes.Buffer{}))
	})
}

func TestShowPass_Format(t *testing.T) {
	c := newTestContainer(t, func(cfg *config.Config) {
		cfg.Output.Format = "dmesg-x"
	})
	path := writeCapture(t, printk.LittleEndian, nil, "hello")

	result, err := archiveCapture(c, path, 0)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, showPass(c, result.ID.String(), &out))
	assert.Equal(t, "kern  :notice: [    1.000000] hello\n", out.String())
}
