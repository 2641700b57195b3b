package artist

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

var ErrUnknownGenerator = errors.New("unknown generator")

// Generator produces one piece of artwork in outputDir and returns the
// filename of the result, relative to outputDir. A Generator is invoked once
// per paid commission; any error is fatal to that job.
type Generator interface {
	Run(ctx context.Context, outputDir string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, outputDir string) (string, error)

func (f GeneratorFunc) Run(ctx context.Context, outputDir string) (string, error) {
	return f(ctx, outputDir)
}

// Registry holds the vetted set of generators an operator has installed.
// Artists reference generators by name; nothing is ever loaded from uploaded
// code.
type Registry struct {
	mu         sync.RWMutex
	generators map[string]Generator
}

func NewRegistry() *Registry {
	return &Registry{generators: make(map[string]Generator)}
}

// Register adds or replaces a named generator.
func (r *Registry) Register(name string, gen Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[name] = gen
}

// Lookup returns the generator registered under name.
func (r *Registry) Lookup(name string) (Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gen, ok := r.generators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGenerator, name)
	}
	return gen, nil
}

// Names returns the registered generator names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	return names
}

// ExecGenerator runs a generator as a subprocess, keeping third-party artist
// code out of this process. The command receives the output directory as its
// final argument and must print the produced filename on stdout.
type ExecGenerator struct {
	Command string
	Args    []string
}

func (g *ExecGenerator) Run(ctx context.Context, outputDir string) (string, error) {
	args := append(append([]string{}, g.Args...), outputDir)
	out, err := exec.CommandContext(ctx, g.Command, args...).Output()
	if err != nil {
		return "", fmt.Errorf("running generator %s: %w", g.Command, err)
	}
	filename := strings.TrimSpace(string(out))
	if filename == "" {
		return "", fmt.Errorf("generator %s produced no filename", g.Command)
	}
	return filename, nil
}
