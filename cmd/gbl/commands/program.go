package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/l3aro/go-bytecode-lift/pkg/cfg"
	"github.com/l3aro/go-bytecode-lift/pkg/dfg"
	"github.com/l3aro/go-bytecode-lift/pkg/vm"
)

// loadedProgram bundles everything derived from one program file.
type loadedProgram struct {
	program *vm.Program
	instrs  []vm.Instruction
	flow    *cfg.Graph[vm.Instruction]
	data    *dfg.Graph[vm.Instruction]
}

// loadProgram reads a YAML listing and derives its graphs.
func loadProgram(path string) (*loadedProgram, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, expected a file: %s", path)
	}

	program, err := vm.LoadFile(path)
	if err != nil {
		return nil, err
	}
	instrs, err := program.Assemble()
	if err != nil {
		return nil, fmt.Errorf("assembling %q: %w", program.Name, err)
	}
	flow, err := vm.BuildCFG(instrs)
	if err != nil {
		return nil, fmt.Errorf("building control flow graph: %w", err)
	}
	data, err := vm.BuildDFG(flow, program.Parameters)
	if err != nil {
		return nil, fmt.Errorf("building data flow graph: %w", err)
	}
	return &loadedProgram{program: program, instrs: instrs, flow: flow, data: data}, nil
}

// printJSON writes a document as indented JSON to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
