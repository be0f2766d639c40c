package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-wdrc/device"
	"github.com/cwbudde/algo-wdrc/prescription"
)

// errQuit ends the console loop.
var errQuit = errors.New("quit")

const consoleHelp = `commands:
  get NAME           print a value, e.g. get left.band.2.cr
  set NAME VALUE     change a value, e.g. set right.attack 10
  bands N            resample both ears to N bands
  list               print every value
  status             print engine and processing counters
  load FILE          load a prescription file
  save FILE          save the live prescription
  clear              reset the overrun and underrun flags
  quit               stop reading commands
`

// console is the line-oriented remote control surface.
type console struct {
	d   *device.Device
	out io.Writer
}

func newConsole(d *device.Device, out io.Writer) *console {
	return &console{d: d, out: out}
}

// Run reads commands from r until EOF, quit or ctx is done. Command errors
// are printed and do not end the loop.
func (c *console) Run(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		scanErr <- sc.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			if err := c.Exec(line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				fmt.Fprintf(c.out, "error: %v\n", err)
			}
		}
	}
}

// Exec runs one command line.
func (c *console) Exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}
	m := c.d.Manager()

	switch cmd, args := fields[0], fields[1:]; cmd {
	case "help", "?":
		fmt.Fprint(c.out, consoleHelp)
	case "get":
		if len(args) != 1 {
			return errors.New("usage: get NAME")
		}
		v, err := m.Param(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s = %g\n", args[0], v)
	case "set":
		if len(args) != 2 {
			return errors.New("usage: set NAME VALUE")
		}
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("bad value %q", args[1])
		}
		if err := m.SetParam(args[0], v); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s = %g\n", args[0], v)
	case "bands":
		if len(args) != 1 {
			return errors.New("usage: bands N")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad band count %q", args[0])
		}
		got, err := m.SetBandCount(n)
		fmt.Fprintf(c.out, "bands = %d\n", got)
		return err
	case "list":
		for _, s := range m.Params() {
			fmt.Fprintf(c.out, "%s = %g\n", s.Name, s.Value)
		}
	case "status":
		st := c.d.Status()
		fmt.Fprintf(c.out, "bands %d, blocks %d, frames %d\n", st.Bands, st.Processed, st.Frames)
		fmt.Fprintf(c.out, "overrun %v (%d), underrun %v (%d)\n", st.Overrun, st.Overruns, st.Underrun, st.Underruns)
		fmt.Fprintf(c.out, "gaps %d, dropped %d, skipped bands %d, free blocks %d\n", st.Gaps, st.Dropped, st.Skipped, st.Available)
		if st.Errors > 0 {
			fmt.Fprintf(c.out, "errors %d, last: %v\n", st.Errors, st.LastError)
		}
	case "load":
		if len(args) != 1 {
			return errors.New("usage: load FILE")
		}
		p, err := prescription.LoadFile(args[0])
		if err != nil {
			return err
		}
		if err := m.LoadPrescription(p); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "loaded %s (%d bands)\n", args[0], p.NumBands())
	case "save":
		if len(args) != 1 {
			return errors.New("usage: save FILE")
		}
		if err := prescription.SaveFile(args[0], m.Prescription()); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "saved %s\n", args[0])
	case "clear":
		c.d.ClearFlags()
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}
