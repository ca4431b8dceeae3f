package netlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/jeannie068/analogplace/pkg/errors"
)

// Write emits a placement in the output format: an `Area <A>` header
// followed by `<name> <x> <y> <rotated>` per module, rotated as 0 or 1.
// Modules are written in sorted name order and coordinates are shifted so
// the minimum x and y are zero.
func Write(w io.Writer, p *Placement) error {
	p.Normalize()

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "Area %d\n", p.Area); err != nil {
		return err
	}

	names := make([]string, 0, len(p.Modules))
	for name := range p.Modules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m := p.Modules[name]
		rot := 0
		if m.Rotated {
			rot = 1
		}
		if _, err := fmt.Fprintf(bw, "%s %d %d %d\n", m.Name, m.X, m.Y, rot); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes a placement to a file.
func WriteFile(path string, p *Placement) error {
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "creating %q", path)
	}
	if err := Write(f, p); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
