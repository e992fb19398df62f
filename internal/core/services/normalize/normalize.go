package normalize

import (
	"gitlab.com/dutbench.net/internal/domain"
)

// DefaultRegisterValues are the bench defaults applied by ApplyDefaults (address -> value)
var DefaultRegisterValues = map[byte]byte{
	0x15: 0x00,
	0x16: 0xC3,
	0x18: 0xEE,
	0x1a: 0x53,
	0x2a: 0xC3,
	0x2c: 0xEE,
	0x2e: 0x53,
	0x3e: 0xC3,
	0x40: 0xEE,
	0x42: 0x53,
	0x52: 0xC3,
	0x54: 0xEE,
	0x56: 0x53,
}

// registerSet is the register writes of one run, addresses in first-seen order.
// A later write to the same address replaces the command but keeps the position.
type registerSet struct {
	order    []byte
	commands map[byte]domain.RegisterCommand
	lastLine int
}

func collectRegisters(commands []string) registerSet {
	set := registerSet{commands: make(map[byte]domain.RegisterCommand), lastLine: -1}
	for i, line := range commands {
		cmd, ok := domain.ParseRegisterCommand(line)
		if !ok {
			continue
		}
		if _, seen := set.commands[cmd.Address]; !seen {
			set.order = append(set.order, cmd.Address)
		}
		set.commands[cmd.Address] = cmd
		set.lastLine = i
	}
	return set
}

// ReferenceRun returns the index of the run with the most distinct register
// addresses. The first run wins ties; ok is false when no run writes a register.
func ReferenceRun(runs []domain.RunSpec) (int, bool) {
	best, bestCount := -1, 0
	for i, run := range runs {
		if n := len(collectRegisters(run.DutCommands).order); n > bestCount {
			best, bestCount = i, n
		}
	}
	return best, best >= 0
}

// FillMissingRegisters copies every register write of the reference run that
// another run lacks into that run, right after its last register write, each
// followed by the default value marker. Runs are modified in place. It returns
// the reference run index (-1 when there is none) and the number of runs changed.
func FillMissingRegisters(runs []domain.RunSpec) (int, int) {
	ref, ok := ReferenceRun(runs)
	if !ok {
		return -1, 0
	}
	reference := collectRegisters(runs[ref].DutCommands)

	changed := 0
	for i := range runs {
		if i == ref {
			continue
		}

		existing := collectRegisters(runs[i].DutCommands)
		var missing []string
		for _, addr := range reference.order {
			if _, has := existing.commands[addr]; !has {
				missing = append(missing, reference.commands[addr].RawText, domain.DefaultValueMarker)
			}
		}
		if len(missing) == 0 {
			continue
		}

		runs[i].DutCommands = insertAt(runs[i].DutCommands, existing.lastLine+1, missing)
		changed++
	}

	return ref, changed
}

func insertAt(lines []string, pos int, extra []string) []string {
	out := make([]string, 0, len(lines)+len(extra))
	out = append(out, lines[:pos]...)
	out = append(out, extra...)
	return append(out, lines[pos:]...)
}

// Change is one rewritten line
type Change struct {
	RunName string
	Before  string
	After   string
}

// ApplyDefaults rewrites register writes that are marked as default values so
// they carry the value from defaults. Only writes that name the default slave
// explicitly and sit directly before a marker are considered. Runs are modified in place.
func ApplyDefaults(runs []domain.RunSpec, defaults map[byte]byte) []Change {
	var changes []Change
	for r := range runs {
		commands := runs[r].DutCommands
		for i := 1; i < len(commands); i++ {
			if commands[i] != domain.DefaultValueMarker {
				continue
			}

			cmd, ok := domain.ParseRegisterCommand(commands[i-1])
			if !ok || !cmd.SlaveParsed || cmd.Slave != domain.DefaultSlaveAddress {
				continue
			}
			want, known := defaults[cmd.Address]
			if !known || want == cmd.Value {
				continue
			}

			updated := cmd.WithValue(want).RawText
			changes = append(changes, Change{RunName: runs[r].Name, Before: commands[i-1], After: updated})
			commands[i-1] = updated
		}
	}
	return changes
}
