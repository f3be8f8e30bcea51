// script.go - Starlark scenario scripts for preparing and checking a run
//
// A scenario runs once after the program is loaded and before the first
// instruction. It sees these builtins:
//
//	set(name, value)     register view, rip, rflags or xmmN (value int or hex string)
//	get(name)            register view, rip or rflags
//	map(addr, size)      back a range with zeroed pages
//	write(addr, data)    store bytes (bytes or list of ints)
//	write64(addr, value) store a little-endian quadword
//	read64(addr)         load a little-endian quadword
//
// and the constants base and stack_top. If it defines check(), check is
// called after the run; a False result fails the run.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/intuitionamiga/amd64core/cpu"
	"github.com/intuitionamiga/amd64core/frontend"
)

var errScriptCheck = errors.New("scenario check failed")

// scenarioHook is a scenario that has run and may still check the result.
type scenarioHook interface {
	check() error
	close()
}

// loadScenario runs filename as Lua when it ends in .lua and as Starlark
// otherwise.
func loadScenario(r *frontend.Runner, filename string, out io.Writer) (scenarioHook, error) {
	if strings.EqualFold(filepath.Ext(filename), ".lua") {
		sc, err := runLuaScenario(r, filename, nil, out)
		if err != nil {
			return nil, err
		}
		return sc, nil
	}
	sc, err := runScenario(r, filename, nil, out)
	if err != nil {
		return nil, err
	}
	return sc, nil
}

type scenario struct {
	runner  *frontend.Runner
	thread  *starlark.Thread
	globals starlark.StringDict
}

// runScenario executes a scenario script against a loaded runner. src is
// nil to read filename from disk.
func runScenario(r *frontend.Runner, filename string, src any, out io.Writer) (*scenario, error) {
	sc := &scenario{
		runner: r,
		thread: &starlark.Thread{
			Name:  filename,
			Print: func(_ *starlark.Thread, msg string) { fmt.Fprintln(out, msg) },
		},
	}
	cfg := r.Config()
	pred := starlark.StringDict{
		"base":      starlark.MakeUint64(cfg.LoadAddr),
		"stack_top": starlark.MakeUint64(cfg.StackTop),
		"set":       starlark.NewBuiltin("set", sc.set),
		"get":       starlark.NewBuiltin("get", sc.get),
		"map":       starlark.NewBuiltin("map", sc.mapRange),
		"write":     starlark.NewBuiltin("write", sc.write),
		"write64":   starlark.NewBuiltin("write64", sc.write64),
		"read64":    starlark.NewBuiltin("read64", sc.read64),
	}

	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, sc.thread, filename, src, pred)
	if err != nil {
		return nil, err
	}
	sc.globals = globals
	return sc, nil
}

// check calls the script's check() if it has one.
func (sc *scenario) check() error {
	fn, ok := sc.globals["check"].(starlark.Callable)
	if !ok {
		return nil
	}
	v, err := starlark.Call(sc.thread, fn, nil, nil)
	if err != nil {
		return err
	}
	if v == starlark.False {
		return errScriptCheck
	}
	return nil
}

func (sc *scenario) close() {}

func toUint64(v starlark.Value) (uint64, error) {
	switch v := v.(type) {
	case starlark.Int:
		if u, ok := v.Uint64(); ok {
			return u, nil
		}
		if i, ok := v.Int64(); ok {
			return uint64(i), nil
		}
		return 0, fmt.Errorf("integer %s out of range", v)
	case starlark.String:
		return parseUint(string(v))
	}
	return 0, fmt.Errorf("got %s, want int", v.Type())
}

func (sc *scenario) set(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var value starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &name, &value); err != nil {
		return nil, err
	}
	var text string
	switch v := value.(type) {
	case starlark.String:
		text = string(v)
	case starlark.Int:
		text = v.String()
	default:
		return nil, fmt.Errorf("%s: got %s, want int or string", b.Name(), value.Type())
	}
	if err := assign(sc.runner.State(), name+"="+text); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.None, nil
}

func (sc *scenario) get(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
		return nil, err
	}
	s := sc.runner.State()
	if name == "rflags" {
		return starlark.MakeUint64(s.RFLAGS()), nil
	}
	r, ok := cpu.LookupRegister(name)
	if !ok {
		return nil, fmt.Errorf("%s: unknown register %q", b.Name(), name)
	}
	return starlark.MakeUint64(s.Get(r)), nil
}

func (sc *scenario) mapRange(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var addr, size starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &addr, &size); err != nil {
		return nil, err
	}
	a, err := toUint64(addr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	n, err := toUint64(size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	sc.runner.Memory().Map(a, n)
	return starlark.None, nil
}

func (sc *scenario) write(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var addr, data starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &addr, &data); err != nil {
		return nil, err
	}
	a, err := toUint64(addr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}

	var buf []byte
	switch d := data.(type) {
	case starlark.Bytes:
		buf = []byte(d)
	case *starlark.List:
		for i := 0; i < d.Len(); i++ {
			v, err := toUint64(d.Index(i))
			if err != nil || v > 0xFF {
				return nil, fmt.Errorf("%s: element %d is not a byte", b.Name(), i)
			}
			buf = append(buf, byte(v))
		}
	default:
		return nil, fmt.Errorf("%s: got %s, want bytes or list", b.Name(), data.Type())
	}

	mem := sc.runner.Memory()
	for i, v := range buf {
		if err := mem.Write8(a+uint64(i), v); err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
	}
	sc.runner.Invalidate()
	return starlark.None, nil
}

func (sc *scenario) write64(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var addr, value starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &addr, &value); err != nil {
		return nil, err
	}
	a, err := toUint64(addr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	v, err := toUint64(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	if err := sc.runner.Memory().Write64(a, v); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	sc.runner.Invalidate()
	return starlark.None, nil
}

func (sc *scenario) read64(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var addr starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &addr); err != nil {
		return nil, err
	}
	a, err := toUint64(addr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	v, err := sc.runner.Memory().Read64(a)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.MakeUint64(v), nil
}
