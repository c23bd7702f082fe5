package debugger

import (
	"github.com/dshills/luadap/internal/dap"
	"github.com/dshills/luadap/internal/interp"
)

// rootFrameID is the id of the synthetic outermost frame.
const rootFrameID = 10000

// TranslateStack converts the interpreter call stack into protocol
// stack frames, innermost first.
//
// The two models disagree: the interpreter records where each frame was
// called FROM, while the protocol wants where each frame currently IS.
// Walking the stack from the innermost frame outward, each frame is
// therefore paired with the location one step closer to the pause
// point: the innermost frame gets the pause span itself, and each
// outer frame gets the call site recorded by the frame inside it. The
// synthetic "Root" frame for the top-level chunk receives the outermost
// call site.
func TranslateStack(pause interp.Span, frames []interp.Frame) []dap.StackFrame {
	out := make([]dap.StackFrame, 0, len(frames)+1)

	next := &pause
	for i := len(frames) - 1; i >= 0; i-- {
		out = append(out, convertFrame(len(out), frames[i].Name, next))
		next = frames[i].Location
	}
	out = append(out, convertFrame(rootFrameID, "Root", next))
	return out
}

// convertFrame builds one protocol frame, converting the span's 0-based
// lines and columns to the protocol's 1-based ones. A frame without a
// location keeps zero position fields and no source.
func convertFrame(id int, name string, loc *interp.Span) dap.StackFrame {
	frame := dap.StackFrame{
		ID:   id,
		Name: name,
	}
	if loc != nil {
		frame.Line = loc.Line + 1
		frame.Column = loc.Col + 1
		frame.EndLine = loc.EndLine + 1
		frame.EndColumn = loc.EndCol + 1
		frame.Source = &dap.Source{Path: loc.File}
	}
	return frame
}
