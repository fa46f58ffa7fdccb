package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/himanshub16/patchbay/htmldoc"
	"github.com/himanshub16/patchbay/patchbay"
)

var errUsage = errors.New("usage")

const help = `commands:
  status                 show every player
  click <entity> <role>  click a control; the master is "master"
  sweep [scope]          bind players added since the last sweep
  append <scope> <html>  insert markup under scope
  retry                  look up failed id: tracks again
  render                 print the page
  volume <gain>          0 is unchanged, each step doubles or halves
  quit`

// console runs prompt commands. execute must run on the patchbay loop.
type console struct {
	pb     *patchbay.Patchbay
	doc    *htmldoc.Document
	volume func(float64)
}

func (c *console) execute(line string, out io.Writer) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	args := fields[1:]

	switch fields[0] {
	case "quit", "exit":
		return true, nil

	case "help":
		fmt.Fprintln(out, help)

	case "status":
		b, err := json.MarshalIndent(c.pb.Status(), "", "  ")
		if err != nil {
			return false, err
		}
		fmt.Fprintln(out, string(b))

	case "click":
		if len(args) != 2 {
			return false, fmt.Errorf("%w: click <entity> <role>", errUsage)
		}
		role, err := patchbay.ParseRole(args[1])
		if err != nil {
			return false, err
		}
		return false, c.pb.Click(args[0], role)

	case "sweep":
		scope := c.pb.Settings().Scope
		if len(args) > 0 {
			scope = args[0]
		}
		report := c.pb.SweepScope(scope)
		fmt.Fprintf(out, "added %v, invalid %v\n", report.Added, report.Invalid)

	case "append":
		if len(args) < 2 {
			return false, fmt.Errorf("%w: append <scope> <html>", errUsage)
		}
		rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "append"))
		fragment := strings.TrimSpace(strings.TrimPrefix(rest, args[0]))
		return false, c.doc.Append(args[0], fragment)

	case "retry":
		fmt.Fprintf(out, "retrying %d lookups\n", c.pb.RetryLookups())

	case "render":
		if err := c.doc.Render(out); err != nil {
			return false, err
		}
		fmt.Fprintln(out)

	case "volume":
		if len(args) != 1 {
			return false, fmt.Errorf("%w: volume <gain>", errUsage)
		}
		gain, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return false, err
		}
		if c.volume != nil {
			c.volume(gain)
		}

	default:
		return false, fmt.Errorf("unknown command %q, try help", fields[0])
	}
	return false, nil
}
