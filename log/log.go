// Package log provides the leveled, structured logger used throughout the
// node. The calling convention (message followed by alternating key/value
// pairs) mirrors the one used across the node, work and networks packages:
//
//	log.Info("Block accepted", "index", block.Index, "hash", block.Hash())
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Lvl is a logging priority, highest importance first.
type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Lvl) String() string {
	switch l {
	case LvlCrit:
		return "CRIT"
	case LvlError:
		return "ERROR"
	case LvlWarn:
		return "WARN"
	case LvlInfo:
		return "INFO"
	case LvlDebug:
		return "DEBUG"
	case LvlTrace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

// Record is a single log event, ready to be formatted and written out.
type Record struct {
	Time  time.Time
	Lvl   Lvl
	Msg   string
	Ctx   []interface{}
	Call  stack.Call
}

// Handler receives a Record and emits it somewhere.
type Handler interface {
	Log(r *Record) error
}

// Logger writes structured, leveled log events carrying its own context.
type Logger interface {
	New(ctx ...interface{}) Logger

	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
}

type logger struct {
	ctx []interface{}
	h   *swapHandler
}

type swapHandler struct {
	mu sync.RWMutex
	h  Handler
}

func (s *swapHandler) Log(r *Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.h.Log(r)
}

func (s *swapHandler) Swap(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h = h
}

func (s *swapHandler) Get() Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.h
}

func normalize(ctx []interface{}) []interface{} {
	if len(ctx)%2 != 0 {
		ctx = append(ctx, nil, "lvl_ctx_error")
	}
	return ctx
}

func (l *logger) write(lvl Lvl, msg string, ctx []interface{}) {
	r := &Record{
		Time: time.Now(),
		Lvl:  lvl,
		Msg:  msg,
		Ctx:  newContext(l.ctx, ctx),
		Call: stack.Caller(2),
	}
	l.h.Log(r)
}

func newContext(prefix []interface{}, suffix []interface{}) []interface{} {
	normalizedSuffix := normalize(suffix)
	newCtx := make([]interface{}, len(prefix)+len(normalizedSuffix))
	n := copy(newCtx, prefix)
	copy(newCtx[n:], normalizedSuffix)
	return newCtx
}

func (l *logger) New(ctx ...interface{}) Logger {
	child := &logger{ctx: newContext(l.ctx, ctx), h: new(swapHandler)}
	child.SetHandler(l.h.Get())
	return child
}

func (l *logger) SetHandler(h Handler) {
	l.h.Swap(h)
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(LvlTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(LvlDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(LvlInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(LvlWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(LvlError, msg, ctx) }
func (l *logger) Crit(msg string, ctx ...interface{})  { l.write(LvlCrit, msg, ctx) }

// New creates a fresh Logger carrying the given key/value context, backed by
// the current root handler.
func New(ctx ...interface{}) Logger {
	l := &logger{ctx: normalize(ctx), h: new(swapHandler)}
	l.SetHandler(root.GetHandler())
	return l
}

// root is the package-level default logger, the one Trace/Debug/.../Crit
// package functions write through.
var root = &logger{h: new(swapHandler)}

func init() {
	root.SetHandler(StreamHandler(colorable.NewColorableStderr(), TerminalFormat(isatty.IsTerminal(os.Stderr.Fd()))))
}

// GetHandler returns the root logger's current handler.
func (l *logger) GetHandler() Handler { return l.h.Get() }

// Root returns the root logger.
func Root() Logger { return root }

// SetRootHandler replaces the handler used by the root logger and the
// package-level functions. Loggers already created with New keep the
// handler they copied at creation.
func SetRootHandler(h Handler) { root.SetHandler(h) }

// RootHandler returns the root logger's current handler, useful for wrapping
// it (e.g. with LvlFilterHandler) without discarding its existing format.
func RootHandler() Handler { return root.GetHandler() }

// LvlFilterHandler returns a Handler that only passes records at or above
// the given level through to h.
func LvlFilterHandler(maxLvl Lvl, h Handler) Handler {
	return FuncHandler(func(r *Record) error {
		if r.Lvl > maxLvl {
			return nil
		}
		return h.Log(r)
	})
}

// FuncHandler turns a function into a Handler.
type FuncHandler func(r *Record) error

func (f FuncHandler) Log(r *Record) error { return f(r) }

// StreamHandler writes log records to wr, one line per record, formatted by
// format.
func StreamHandler(wr io.Writer, format Format) Handler {
	h := FuncHandler(func(r *Record) error {
		_, err := wr.Write(format.Format(r))
		return err
	})
	return &syncHandler{h: h}
}

type syncHandler struct {
	mu sync.Mutex
	h  Handler
}

func (s *syncHandler) Log(r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h.Log(r)
}

// Format turns a Record into bytes ready to be written out.
type Format interface {
	Format(r *Record) []byte
}

type FormatFunc func(r *Record) []byte

func (f FormatFunc) Format(r *Record) []byte { return f(r) }

// TerminalFormat formats records the way klaytn/geth-derived nodes print to
// a terminal: "LVL[timestamp] message key=value key=value ...", colorized
// by level when useColor is set.
func TerminalFormat(useColor bool) Format {
	return FormatFunc(func(r *Record) []byte {
		var color = ""
		if useColor {
			switch r.Lvl {
			case LvlCrit:
				color = "35"
			case LvlError:
				color = "31"
			case LvlWarn:
				color = "33"
			case LvlInfo:
				color = "32"
			case LvlDebug:
				color = "36"
			}
		}
		b := new(fmtBuffer)
		if color != "" {
			fmt.Fprintf(b, "\x1b[%sm%s\x1b[0m[%s] %s", color, r.Lvl.String(), r.Time.Format("01-02|15:04:05.000"), r.Msg)
		} else {
			fmt.Fprintf(b, "%s[%s] %s", r.Lvl.String(), r.Time.Format("01-02|15:04:05.000"), r.Msg)
		}
		for i := 0; i < len(r.Ctx); i += 2 {
			fmt.Fprintf(b, " %v=%v", r.Ctx[i], r.Ctx[i+1])
		}
		b.WriteByte('\n')
		return b.Bytes()
	})
}

type fmtBuffer struct {
	buf []byte
}

func (b *fmtBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}
func (b *fmtBuffer) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}
func (b *fmtBuffer) Bytes() []byte { return b.buf }

// Package-level convenience wrappers over the root logger.
func Trace(msg string, ctx ...interface{}) { root.write(LvlTrace, msg, ctx) }
func Debug(msg string, ctx ...interface{}) { root.write(LvlDebug, msg, ctx) }
func Info(msg string, ctx ...interface{})  { root.write(LvlInfo, msg, ctx) }
func Warn(msg string, ctx ...interface{})  { root.write(LvlWarn, msg, ctx) }
func Error(msg string, ctx ...interface{}) { root.write(LvlError, msg, ctx) }
func Crit(msg string, ctx ...interface{})  { root.write(LvlCrit, msg, ctx) }
