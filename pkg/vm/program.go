package vm

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Program is a symbolic stack machine listing as loaded from YAML. Branch
// operands reference labels; Assemble resolves them to offsets.
type Program struct {
	Name         string               `yaml:"name"`
	Parameters   []string             `yaml:"parameters,omitempty"`
	Instructions []ProgramInstruction `yaml:"instructions"`
}

// ProgramInstruction is one line of a symbolic listing.
type ProgramInstruction struct {
	Label   string `yaml:"label,omitempty"`
	Op      string `yaml:"op"`
	Operand string `yaml:"operand,omitempty"`
}

// Load reads a program from YAML.
func Load(r io.Reader) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	var p Program
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse program: %w", err)
	}
	if len(p.Instructions) == 0 {
		return nil, fmt.Errorf("program %q has no instructions", p.Name)
	}
	return &p, nil
}

// LoadFile reads a program from a YAML file.
func LoadFile(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open program file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Assemble resolves labels and produces the decoded instruction sequence.
// Offsets are assigned sequentially from zero.
func (p *Program) Assemble() ([]Instruction, error) {
	labels := make(map[string]int64)
	for idx, pi := range p.Instructions {
		if pi.Label == "" {
			continue
		}
		if _, dup := labels[pi.Label]; dup {
			return nil, fmt.Errorf("duplicate label %q", pi.Label)
		}
		labels[pi.Label] = int64(idx)
	}

	instrs := make([]Instruction, 0, len(p.Instructions))
	for idx, pi := range p.Instructions {
		op := Opcode(pi.Op)
		if _, known := stackEffect[op]; !known {
			return nil, fmt.Errorf("unknown opcode %q at instruction %d", pi.Op, idx)
		}
		instr := Instruction{Off: int64(idx), Op: op, Operand: pi.Operand}
		if instr.IsBranch() {
			target, ok := labels[pi.Operand]
			if !ok {
				return nil, fmt.Errorf("undefined label %q at instruction %d", pi.Operand, idx)
			}
			instr.Target = target
			instr.Operand = ""
		}
		instrs = append(instrs, instr)
	}
	return instrs, nil
}
