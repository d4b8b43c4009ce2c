// Package vm implements the Concordia executor: the per-invocation
// Context and the opcode dispatch loop that walks a loaded program's
// code stream to encode or decode one packet. The dispatch shape and
// the "freeze the first error, keep running state queryable" contract
// follow KTStephano-GVM's vm.go/exec.go (execInstructions' switch over
// Bytecode, vm.errcode), narrowed to Concordia's op set.
package vm

import (
	"log"
	"unsafe"

	"concordia/callback"
	"concordia/cursor"
	"concordia/program"
)

// State is the per-context lifecycle spec.md §4.5 describes:
// Idle -> Executing -> {Done, Failed}.
type State uint8

const (
	Idle State = iota
	Executing
	Done
	Failed
)

const (
	maxStructDepth = 64
)

// Context is the mutable, per-invocation state a single Execute call
// owns. A Program is immutable and may be shared across any number of
// concurrent Contexts, each with its own buffer (spec.md §5).
type Context struct {
	mode    callback.Mode
	prog    *program.Program
	cur     *cursor.Cursor
	cb      callback.Func
	userPtr unsafe.Pointer

	pc    int
	state State

	structStack [maxStructDepth]uint16
	structDepth int

	crcActive bool
	crcStart  int
	crcKind   program.CRCKind

	// pendingTransform carries an OP_TRANSFORM_BEGIN's payload across to
	// the single scalar op it wraps; it is consumed (cleared) by that op.
	pendingTransform    bool
	pendingTransformIdx uint16
	pendingRawWidth     uint8
	pendingRawSigned    bool

	// rawBytesLen carries the width for OP_RAW_BYTES transfers, since the
	// callback signature itself has no length parameter (spec.md's
	// design notes, open question; see DESIGN.md).
	rawBytesLen int

	// trace, when set via SetTrace, prints one line per dispatched op —
	// an opt-in stand-in for the teacher's interactive breakpoint REPL
	// (vm.go's RunProgramDebugMode), narrowed to a plain execution log
	// since Concordia's VM has no interactive terminal loop in its API.
	trace *log.Logger

	err      error
	failedAt int
}

// SetTrace enables a per-opcode execution trace on logger l, or disables
// tracing entirely when l is nil. Call after Init.
func (ctx *Context) SetTrace(l *log.Logger) { ctx.trace = l }

// Init populates ctx for a new execution. A Context may be reused across
// calls as long as each call's Init fully re-initializes it; no dynamic
// allocation occurs here beyond wrapping buf in a *cursor.Cursor.
func (ctx *Context) Init(mode callback.Mode, prog *program.Program, buf []byte, cb callback.Func, userPtr unsafe.Pointer) {
	*ctx = Context{
		mode:    mode,
		prog:    prog,
		cur:     cursor.New(buf),
		cb:      cb,
		userPtr: userPtr,
		state:   Executing,
	}
}

// Mode implements callback.Context.
func (ctx *Context) Mode() callback.Mode { return ctx.mode }

// UserPtr implements callback.Context.
func (ctx *Context) UserPtr() unsafe.Pointer { return ctx.userPtr }

// Cursor reports the number of bytes consumed (decode) or produced
// (encode) so far.
func (ctx *Context) Cursor() int { return ctx.cur.Pos() }

// State reports the context's current lifecycle state.
func (ctx *Context) State() State { return ctx.state }

// LastError returns the terminal error code and the code-stream offset
// where it occurred, or (OK, 0) if the context has not failed.
func (ctx *Context) LastError() (ErrorCode, int) {
	if e, ok := ctx.err.(*Error); ok {
		return e.Code, e.Offset
	}
	if ctx.err != nil {
		return UserErr, ctx.failedAt
	}
	return OK, 0
}

// Err returns the raw terminal error, or nil.
func (ctx *Context) Err() error { return ctx.err }

func (ctx *Context) fail(code ErrorCode, cause error) error {
	e := &Error{Code: code, Offset: ctx.pc, Err: cause}
	ctx.err = e
	ctx.state = Failed
	return e
}

func (ctx *Context) pushStructScope(keyID uint16) error {
	if ctx.structDepth >= maxStructDepth {
		return ctx.fail(UnknownOp, errBadImage)
	}
	ctx.structStack[ctx.structDepth] = keyID
	ctx.structDepth++
	return nil
}

func (ctx *Context) popStructScope() {
	if ctx.structDepth > 0 {
		ctx.structDepth--
	}
}

func (ctx *Context) callLoadCtx(keyID uint16) (uint64, error) {
	var slot uint64
	err := ctx.cb(ctx, keyID, callback.OpLoadCtx, unsafe.Pointer(&slot))
	return slot, err
}

func (ctx *Context) callCtxQuery(keyID uint16) (uint64, error) {
	var slot uint64
	err := ctx.cb(ctx, keyID, callback.OpCtxQuery, unsafe.Pointer(&slot))
	return slot, err
}

// callArrCount asks the callback for a dynamic array's element count
// (OP_ARR_FIXED with count==0xFFFFFFFF in the IL): on encode the callback
// reports how many elements its own structure holds; on decode it reports
// how many the host wants staged (often simply what it just read via a
// preceding length-prefixed field).
func (ctx *Context) callArrCount(keyID uint16) (uint64, error) {
	var slot uint64
	err := ctx.cb(ctx, keyID, callback.OpArrFixed, unsafe.Pointer(&slot))
	return slot, err
}
