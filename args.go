// args.go - machine code and register assignment parsing for the CLI
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/intuitionamiga/amd64core/cpu"
	"github.com/intuitionamiga/amd64core/vec"
)

var errAssignment = errors.New("expected name=value")

var hexNoise = strings.NewReplacer(" ", "", "\t", "", "\n", "", ",", "", "0x", "", "\\x", "")

// parseCode accepts machine code as hex text, e.g. "48 31 c0", "4831c0" or
// "\x48\x31\xc0". Several arguments are concatenated.
func parseCode(args []string) ([]byte, error) {
	s := hexNoise.Replace(strings.Join(args, ""))
	if s == "" {
		return nil, fmt.Errorf("no machine code given")
	}
	code, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("bad machine code: %w", err)
	}
	return code, nil
}

func parseUint(s string) (uint64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	if strings.HasPrefix(s, "-") {
		v, err := strconv.ParseInt(s, 0, 64)
		return uint64(v), err
	}
	return strconv.ParseUint(s, 0, 64)
}

func parseVector(s string) (vec.Vector128, error) {
	s = strings.TrimPrefix(strings.TrimSpace(strings.ToLower(s)), "0x")
	if len(s) > 32 {
		return vec.Zero, fmt.Errorf("vector value %q wider than 128 bits", s)
	}
	s = strings.Repeat("0", 32-len(s)) + s
	b, err := hex.DecodeString(s)
	if err != nil {
		return vec.Zero, err
	}
	return vec.FromU64s(binary.BigEndian.Uint64(b[8:]), binary.BigEndian.Uint64(b[:8])), nil
}

// assign applies "name=value" to s. name is any register view, rip,
// rflags or xmm0-xmm15.
func assign(s *cpu.State, kv string) error {
	name, value, ok := strings.Cut(kv, "=")
	if !ok {
		return fmt.Errorf("%q: %w", kv, errAssignment)
	}
	name = strings.ToLower(strings.TrimSpace(name))

	if idx, ok := strings.CutPrefix(name, "xmm"); ok {
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 || i > 15 {
			return fmt.Errorf("unknown register %q", name)
		}
		v, err := parseVector(value)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		s.SetXMM(i, v)
		return nil
	}

	v, err := parseUint(value)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if name == "rflags" {
		s.SetRFLAGS(v)
		return nil
	}
	r, ok := cpu.LookupRegister(name)
	if !ok {
		return fmt.Errorf("unknown register %q", name)
	}
	s.Set(r, v)
	return nil
}
