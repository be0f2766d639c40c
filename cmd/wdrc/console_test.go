package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-wdrc/device"
	"github.com/cwbudde/algo-wdrc/dsp/transfer"
	"github.com/cwbudde/algo-wdrc/prescription"
)

func newTestConsole(t *testing.T) (*console, *bytes.Buffer, *device.Device) {
	t.Helper()
	d, err := device.New(device.Config{
		Stream: transfer.Config{Channels: 2, BlockSize: 32, Width: transfer.Width16, SampleRate: 32000},
	}, prescription.Default())
	require.NoError(t, err)
	var out bytes.Buffer
	return newConsole(d, &out), &out, d
}

func TestConsoleGetSet(t *testing.T) {
	c, out, d := newTestConsole(t)

	require.NoError(t, c.Exec("set left.band.1.tkgain 12.5"))
	require.NoError(t, c.Exec("get left.band.1.tkgain"))
	assert.Contains(t, out.String(), "left.band.1.tkgain = 12.5\n")

	v, err := d.Manager().Param("left.band.1.tkgain")
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)
}

func TestConsoleBands(t *testing.T) {
	c, out, d := newTestConsole(t)

	require.NoError(t, c.Exec("bands 5"))
	assert.Equal(t, 5, d.Manager().BandCount())

	out.Reset()
	err := c.Exec("bands 2")
	assert.ErrorIs(t, err, prescription.ErrConfigurationRejected)
	assert.Equal(t, "bands = 5\n", out.String())
}

func TestConsoleErrors(t *testing.T) {
	c, _, _ := newTestConsole(t)
	assert.Error(t, c.Exec("get"))
	assert.Error(t, c.Exec("set left.attack x"))
	assert.ErrorIs(t, c.Exec("get left.nothing"), device.ErrUnknownParam)
	assert.Error(t, c.Exec("frobnicate"))
	assert.NoError(t, c.Exec("   "))
	assert.NoError(t, c.Exec("# comment"))
}

func TestConsoleSaveLoad(t *testing.T) {
	c, _, d := newTestConsole(t)
	path := filepath.Join(t.TempDir(), "fit.toml")

	require.NoError(t, c.Exec("set right.release 120"))
	require.NoError(t, c.Exec("save "+path))
	require.NoError(t, c.Exec("set right.release 500"))
	require.NoError(t, c.Exec("load "+path))

	v, err := d.Manager().Param("right.release")
	require.NoError(t, err)
	assert.Equal(t, 120.0, v)
}

func TestConsoleRun(t *testing.T) {
	c, out, _ := newTestConsole(t)
	in := strings.NewReader("list\nbogus\nstatus\nquit\nset ceiling 1\n")
	require.NoError(t, c.Run(context.Background(), in))

	s := out.String()
	assert.Contains(t, s, "right.band.7.bolt = 98\n")
	assert.Contains(t, s, "error: unknown command")
	assert.Contains(t, s, "bands 8, blocks 0")
	assert.NotContains(t, s, "ceiling = 1\n")
}
