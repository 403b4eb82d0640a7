// Command skyapi is an interactive shell for poking at the native bridge:
// it parses small literal expressions, routes them through the protocol
// dispatcher and the argument binder, and reports handle table and heap
// statistics.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/rs/zerolog"
	"go.mau.fi/util/exerrors"

	"github.com/mrigankpawagi/skybison/pkg/capi"
	"github.com/mrigankpawagi/skybison/pkg/runtime"
)

func main() {
	debug := flag.Bool("debug", false, "enable trace logging")
	flag.Parse()

	log := zerolog.Nop()
	if *debug {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(zerolog.TraceLevel).With().Timestamp().Logger()
	}

	rt := runtime.NewRuntime()
	state := capi.NewState(rt, capi.WithLogger(log))

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := filepath.Join(exerrors.Must(os.UserCacheDir()), "skyapi_history")
	if f, err := os.Open(historyPath); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(historyPath); err == nil {
			_, _ = line.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Println("skyapi shell; commands: add sub mul div len getitem contains parse gc stats quit")
	for {
		input, err := line.Prompt(">>> ")
		if err != nil {
			break
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" {
			break
		}
		line.AppendHistory(input)
		state.Do(func() {
			evalLine(state, input)
		})
	}
}

func evalLine(s *capi.State, input string) {
	rt := s.Runtime()
	fields, err := splitFields(input)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	cmd, args := fields[0], fields[1:]
	defer func() {
		if rt.HasPendingError() {
			fmt.Println("error:", rt.PendingError())
			rt.ClearPendingError()
		}
	}()

	switch cmd {
	case "stats":
		fmt.Printf("handles=%d heap=%d allocs=%d\n",
			s.LiveHandles(), rt.Heap().Len(), capi.NativeAllocations())
	case "gc":
		before := rt.Heap().Len()
		rt.Heap().Compact()
		fmt.Printf("compacted: %d -> %d cells\n", before, rt.Heap().Len())
	case "add", "sub", "mul", "div":
		binaryCommand(s, cmd, args)
	case "len":
		unaryLen(s, args)
	case "getitem":
		getItem(s, args)
	case "contains":
		containsCmd(s, args)
	case "parse":
		parseCmd(s, args)
	default:
		fmt.Println("unknown command:", cmd)
	}
}

func binaryCommand(s *capi.State, cmd string, args []string) {
	if len(args) != 2 {
		fmt.Printf("usage: %s <value> <value>\n", cmd)
		return
	}
	l, r := literal(s, args[0]), literal(s, args[1])
	if l == nil || r == nil {
		return
	}
	defer l.DecRef()
	defer r.DecRef()
	var res *capi.Handle
	switch cmd {
	case "add":
		res = s.NumberAdd(l, r)
	case "sub":
		res = s.NumberSubtract(l, r)
	case "mul":
		res = s.NumberMultiply(l, r)
	case "div":
		res = s.NumberTrueDivide(l, r)
	}
	printResult(s, res)
}

func unaryLen(s *capi.State, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: len <value>")
		return
	}
	h := literal(s, args[0])
	if h == nil {
		return
	}
	defer h.DecRef()
	if n, ok := s.ObjectLength(h); ok {
		fmt.Println(n)
	}
}

func getItem(s *capi.State, args []string) {
	if len(args) != 2 {
		fmt.Println("usage: getitem <value> <index>")
		return
	}
	h := literal(s, args[0])
	if h == nil {
		return
	}
	defer h.DecRef()
	i, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Println("error: index must be an integer")
		return
	}
	printResult(s, s.SequenceGetItem(h, i))
}

func containsCmd(s *capi.State, args []string) {
	if len(args) != 2 {
		fmt.Println("usage: contains <sequence> <item>")
		return
	}
	seq, item := literal(s, args[0]), literal(s, args[1])
	if seq == nil || item == nil {
		return
	}
	defer seq.DecRef()
	defer item.DecRef()
	if found, ok := s.SequenceContains(seq, item); ok {
		fmt.Println(found)
	}
}

// parseCmd drives the argument binder with integer and float codes, e.g.
// parse ii|i 1 2.
func parseCmd(s *capi.State, args []string) {
	if len(args) < 1 {
		fmt.Println("usage: parse <format> <values...>")
		return
	}
	format := args[0]
	rt := s.Runtime()
	values := make([]runtime.Object, 0, len(args)-1)
	for _, a := range args[1:] {
		h := literal(s, a)
		if h == nil {
			return
		}
		values = append(values, h.Object())
		h.DecRef()
	}
	tuple := s.Wrap(rt.NewTuple(values...))
	defer tuple.DecRef()

	var targets []any
	for _, c := range format {
		switch c {
		case 'i':
			targets = append(targets, new(int32))
		case 'n':
			targets = append(targets, new(int))
		case 'l':
			targets = append(targets, new(int64))
		case 'd':
			targets = append(targets, new(float64))
		case 's':
			targets = append(targets, new(string))
		case '|', '$':
		default:
			fmt.Printf("unsupported demo format code %q\n", string(c))
			return
		}
	}
	if !s.ParseTuple(tuple, format, targets...) {
		return
	}
	parts := make([]string, len(targets))
	for i, t := range targets {
		switch v := t.(type) {
		case *int32:
			parts[i] = strconv.FormatInt(int64(*v), 10)
		case *int:
			parts[i] = strconv.Itoa(*v)
		case *int64:
			parts[i] = strconv.FormatInt(*v, 10)
		case *float64:
			parts[i] = strconv.FormatFloat(*v, 'g', -1, 64)
		case *string:
			parts[i] = strconv.Quote(*v)
		}
	}
	fmt.Println("bound:", strings.Join(parts, " "))
}

func printResult(s *capi.State, res *capi.Handle) {
	if res == nil {
		return
	}
	defer res.DecRef()
	fmt.Println(s.Runtime().Repr(res.Object()))
}

// literal parses a value token: int, float, quoted string, b"..." bytes
// or [v,v,...] list.
func literal(s *capi.State, tok string) *capi.Handle {
	rt := s.Runtime()
	switch {
	case strings.HasPrefix(tok, "[") && strings.HasSuffix(tok, "]"):
		inner := strings.TrimSuffix(strings.TrimPrefix(tok, "["), "]")
		var items []runtime.Object
		if inner != "" {
			for _, part := range strings.Split(inner, ",") {
				h := literal(s, strings.TrimSpace(part))
				if h == nil {
					return nil
				}
				items = append(items, h.Object())
				h.DecRef()
			}
		}
		return s.Wrap(rt.NewList(items...))
	case strings.HasPrefix(tok, "b\"") && strings.HasSuffix(tok, "\""):
		return s.Wrap(rt.NewBytes([]byte(tok[2 : len(tok)-1])))
	case strings.HasPrefix(tok, "\"") && strings.HasSuffix(tok, "\"") && len(tok) >= 2:
		return s.Wrap(rt.NewStr(tok[1 : len(tok)-1]))
	}
	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return s.Wrap(rt.NewInt(n))
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return s.Wrap(rt.NewFloat(f))
	}
	fmt.Printf("error: cannot parse literal %q\n", tok)
	return nil
}

// splitFields tokenizes a command line, keeping quoted strings and
// bracketed lists intact.
func splitFields(input string) ([]string, error) {
	var fields []string
	var cur strings.Builder
	depth := 0
	inQuote := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		switch {
		case c == '"':
			inQuote = !inQuote
			cur.WriteByte(c)
		case c == '[' && !inQuote:
			depth++
			cur.WriteByte(c)
		case c == ']' && !inQuote:
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced ']'")
			}
			cur.WriteByte(c)
		case c == ' ' && !inQuote && depth == 0:
			if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated string")
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced '['")
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty input")
	}
	return fields, nil
}
