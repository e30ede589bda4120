package evaluator

import "log/slog"

type binding struct {
	value   Value
	mutable bool
}

// Frame is the variable scope of one function activation. Scopes are flat:
// declarations inside nested blocks land in the same frame.
type Frame struct {
	fn        string
	vars      map[string]*binding
	matchName string
}

func newFrame(fn string) *Frame {
	return &Frame{fn: fn, vars: make(map[string]*binding)}
}

// Function returns the name of the function that owns the frame.
func (f *Frame) Function() string {
	return f.fn
}

// Declare binds name in this frame. It reports false if name is already bound.
func (f *Frame) Declare(name string, val Value, mutable bool) bool {
	if _, ok := f.vars[name]; ok {
		return false
	}
	f.vars[name] = &binding{value: val, mutable: mutable}
	return true
}

// Get looks up a variable by name.
func (f *Frame) Get(name string) (Value, bool) {
	if b, ok := f.vars[name]; ok {
		return b.value, true
	}
	return nil, false
}

// Has checks whether a variable is bound in this frame.
func (f *Frame) Has(name string) bool {
	_, ok := f.vars[name]
	return ok
}

func (f *Frame) lookup(name string) *binding {
	return f.vars[name]
}

func (f *Frame) remove(name string) {
	delete(f.vars, name)
}

// CallStack holds one Frame per active function call.
type CallStack struct {
	frames []*Frame
	logger *slog.Logger
}

func newCallStack(logger *slog.Logger) *CallStack {
	return &CallStack{logger: logger}
}

// Push opens a fresh frame for fn and makes it current.
func (s *CallStack) Push(fn string) *Frame {
	f := newFrame(fn)
	s.frames = append(s.frames, f)
	s.logger.Debug("push frame",
		slog.String("function", fn),
		slog.Int("depth", len(s.frames)))
	return f
}

// Pop discards the current frame, restoring the caller's.
func (s *CallStack) Pop() {
	if len(s.frames) == 0 {
		return
	}
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	s.logger.Debug("pop frame",
		slog.String("function", top.fn),
		slog.Int("depth", len(s.frames)))
}

// Current returns the innermost frame, or nil when no call is active.
func (s *CallStack) Current() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// Depth is the number of active calls.
func (s *CallStack) Depth() int {
	return len(s.frames)
}
