package netlist

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jeannie068/analogplace/pkg/errors"
)

// Input grammar, whitespace-separated, one record per line:
//
//	<name> <w> <h>            module declaration
//	SymGroup <name> <axis>    opens a symmetry group (axis: vertical|horizontal|v|h)
//	SymPair <a> <b>           mirrored pair, inside a group
//	SymSelf <name>            self-symmetric module, inside a group
//
// Blank lines and lines starting with '#' are ignored. Keywords are
// case-insensitive.

// Parse reads a netlist from r.
func Parse(r io.Reader) (*Netlist, error) {
	n := NewNetlist()
	var current *SymmetryGroup
	grouped := make(map[string]string) // module -> group name

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch strings.ToLower(fields[0]) {
		case "symgroup":
			if len(fields) != 3 {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					"line %d: SymGroup needs a name and an axis", lineNo)
			}
			if err := errors.ValidateModuleName(fields[1]); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "line %d", lineNo)
			}
			axis, err := ParseAxis(fields[2])
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "line %d", lineNo)
			}
			current = &SymmetryGroup{Name: fields[1], Axis: axis}
			n.Groups = append(n.Groups, current)

		case "sympair":
			if current == nil {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					"line %d: SymPair outside a SymGroup", lineNo)
			}
			if len(fields) != 3 {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					"line %d: SymPair needs two module names", lineNo)
			}
			a, b := fields[1], fields[2]
			if a == b {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					"line %d: SymPair members must differ", lineNo)
			}
			for _, name := range []string{a, b} {
				if err := claimModule(n, grouped, current.Name, name); err != nil {
					return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "line %d", lineNo)
				}
			}
			current.Pairs = append(current.Pairs, SymmetryPair{A: a, B: b})

		case "symself":
			if current == nil {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					"line %d: SymSelf outside a SymGroup", lineNo)
			}
			if len(fields) != 2 {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					"line %d: SymSelf needs one module name", lineNo)
			}
			if err := claimModule(n, grouped, current.Name, fields[1]); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "line %d", lineNo)
			}
			current.SelfSymmetric = append(current.SelfSymmetric, fields[1])

		default:
			if len(fields) != 3 {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					"line %d: module record needs a name, width, and height", lineNo)
			}
			m, err := parseModule(fields)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "line %d", lineNo)
			}
			if _, exists := n.Modules[m.Name]; exists {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					"line %d: duplicate module %q", lineNo, m.Name)
			}
			n.Modules[m.Name] = m
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "reading input")
	}

	if len(n.Modules) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "input declares no modules")
	}
	for _, g := range n.Groups {
		if g.Size() == 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"symmetry group %q is empty", g.Name)
		}
	}
	return n, nil
}

// ParseFile reads a netlist from a file.
func ParseFile(path string) (*Netlist, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "input file %q", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "opening %q", path)
	}
	defer f.Close()
	return Parse(f)
}

func parseModule(fields []string) (*Module, error) {
	name := fields[0]
	if err := errors.ValidateModuleName(name); err != nil {
		return nil, err
	}
	w, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"module %q: width %q is not an integer", name, fields[1])
	}
	h, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"module %q: height %q is not an integer", name, fields[2])
	}
	if err := errors.ValidateDimension(name, w); err != nil {
		return nil, err
	}
	if err := errors.ValidateDimension(name, h); err != nil {
		return nil, err
	}
	return NewModule(name, w, h), nil
}

// claimModule checks the reference is a declared, so-far-ungrouped module
// and records its group membership.
func claimModule(n *Netlist, grouped map[string]string, group, name string) error {
	if err := errors.ValidateModuleName(name); err != nil {
		return err
	}
	if _, ok := n.Modules[name]; !ok {
		return errors.New(errors.ErrCodeInvalidInput,
			"symmetry group %q references undeclared module %q", group, name)
	}
	if prev, ok := grouped[name]; ok {
		return errors.New(errors.ErrCodeInvalidInput,
			"module %q already belongs to group %q", name, prev)
	}
	grouped[name] = group
	return nil
}
