// script_lua.go - Lua scenario scripts, the same builtins as the Starlark form
//
// Numbers in Lua are doubles. get and read64 return values above 2^53 as
// "0x..." strings, and every builtin taking an integer also accepts one.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"fmt"
	"io"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/intuitionamiga/amd64core/cpu"
	"github.com/intuitionamiga/amd64core/frontend"
)

const luaExactLimit = 1 << 53

type luaScenario struct {
	runner *frontend.Runner
	L      *lua.LState
}

// runLuaScenario executes a Lua scenario. src is nil to read filename from
// disk. The returned scenario owns a Lua state; release it with close.
func runLuaScenario(r *frontend.Runner, filename string, src any, out io.Writer) (*luaScenario, error) {
	sc := &luaScenario{runner: r, L: lua.NewState()}
	L := sc.L

	cfg := r.Config()
	L.SetGlobal("base", luaUint(cfg.LoadAddr))
	L.SetGlobal("stack_top", luaUint(cfg.StackTop))
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, L.GetTop())
		for i := range parts {
			parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
		}
		fmt.Fprintln(out, strings.Join(parts, "\t"))
		return 0
	}))
	L.SetGlobal("set", L.NewFunction(sc.set))
	L.SetGlobal("get", L.NewFunction(sc.get))
	L.SetGlobal("map", L.NewFunction(sc.mapRange))
	L.SetGlobal("write", L.NewFunction(sc.write))
	L.SetGlobal("write64", L.NewFunction(sc.write64))
	L.SetGlobal("read64", L.NewFunction(sc.read64))

	var err error
	switch s := src.(type) {
	case nil:
		err = L.DoFile(filename)
	case string:
		err = L.DoString(s)
	case []byte:
		err = L.DoString(string(s))
	default:
		err = fmt.Errorf("%s: unsupported source type %T", filename, src)
	}
	if err != nil {
		L.Close()
		return nil, err
	}
	return sc, nil
}

func (sc *luaScenario) check() error {
	fn := sc.L.GetGlobal("check")
	if fn.Type() != lua.LTFunction {
		return nil
	}
	if err := sc.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
		return err
	}
	ret := sc.L.Get(-1)
	sc.L.Pop(1)
	if ret == lua.LFalse {
		return errScriptCheck
	}
	return nil
}

func (sc *luaScenario) close() {
	sc.L.Close()
}

func luaUint(v uint64) lua.LValue {
	if v < luaExactLimit {
		return lua.LNumber(v)
	}
	return lua.LString(fmt.Sprintf("0x%x", v))
}

// checkUint reads argument n as an integer or integer string.
func checkUint(L *lua.LState, n int) uint64 {
	switch v := L.CheckAny(n).(type) {
	case lua.LNumber:
		f := float64(v)
		if f < 0 {
			return uint64(int64(f))
		}
		return uint64(f)
	case lua.LString:
		u, err := parseUint(string(v))
		if err != nil {
			L.ArgError(n, err.Error())
		}
		return u
	}
	L.ArgError(n, "integer expected")
	return 0
}

func (sc *luaScenario) set(L *lua.LState) int {
	name := L.CheckString(1)
	var text string
	switch v := L.CheckAny(2).(type) {
	case lua.LNumber:
		text = fmt.Sprint(int64(v))
	case lua.LString:
		text = string(v)
	default:
		L.ArgError(2, "integer or string expected")
	}
	if err := assign(sc.runner.State(), name+"="+text); err != nil {
		L.RaiseError("set: %v", err)
	}
	return 0
}

func (sc *luaScenario) get(L *lua.LState) int {
	name := L.CheckString(1)
	s := sc.runner.State()
	if name == "rflags" {
		L.Push(luaUint(s.RFLAGS()))
		return 1
	}
	r, ok := cpu.LookupRegister(name)
	if !ok {
		L.RaiseError("get: unknown register %q", name)
	}
	L.Push(luaUint(s.Get(r)))
	return 1
}

func (sc *luaScenario) mapRange(L *lua.LState) int {
	sc.runner.Memory().Map(checkUint(L, 1), checkUint(L, 2))
	return 0
}

func (sc *luaScenario) write(L *lua.LState) int {
	addr := checkUint(L, 1)
	var buf []byte
	switch d := L.CheckAny(2).(type) {
	case lua.LString:
		buf = []byte(d)
	case *lua.LTable:
		for i := 1; i <= d.Len(); i++ {
			v, ok := d.RawGetInt(i).(lua.LNumber)
			if !ok || v < 0 || v > 0xFF {
				L.RaiseError("write: element %d is not a byte", i)
			}
			buf = append(buf, byte(v))
		}
	default:
		L.ArgError(2, "string or table expected")
	}

	mem := sc.runner.Memory()
	for i, v := range buf {
		if err := mem.Write8(addr+uint64(i), v); err != nil {
			L.RaiseError("write: %v", err)
		}
	}
	sc.runner.Invalidate()
	return 0
}

func (sc *luaScenario) write64(L *lua.LState) int {
	if err := sc.runner.Memory().Write64(checkUint(L, 1), checkUint(L, 2)); err != nil {
		L.RaiseError("write64: %v", err)
	}
	sc.runner.Invalidate()
	return 0
}

func (sc *luaScenario) read64(L *lua.LState) int {
	v, err := sc.runner.Memory().Read64(checkUint(L, 1))
	if err != nil {
		L.RaiseError("read64: %v", err)
	}
	L.Push(luaUint(v))
	return 1
}
