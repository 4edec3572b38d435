// internal/trace/models.go
package trace

// UnknownType is the exception type assigned when a header line does not
// match the exception header grammar.
const UnknownType = "Unknown"

// Frame is one call site of a stack trace.
//
// Empty strings and a zero LineNumber mean the value was not present in the
// source text.
type Frame struct {
	// The original frame line, trimmed.
	FullText string `json:"full_text"`
	// Everything before the class name in the qualified method path.
	Namespace string `json:"namespace,omitempty"`
	ClassName string `json:"class_name,omitempty"`
	// The method name with its parameter list removed.
	MethodName string `json:"method_name,omitempty"`
	// Source location, only set when the frame carried an "in <file>:line <n>" suffix.
	FileName   string `json:"file_name,omitempty"`
	LineNumber int    `json:"line_number,omitempty"`

	Filtered    bool `json:"filtered"`
	Highlighted bool `json:"highlighted"`
}

// HasLocation reports whether the frame carries a source file and line.
func (f *Frame) HasLocation() bool {
	return f.FileName != "" && f.LineNumber > 0
}

// FullMethodName returns Namespace.ClassName.MethodName, or the raw frame text
// when the class or method could not be determined.
func (f *Frame) FullMethodName() string {
	if f.ClassName == "" || f.MethodName == "" {
		return f.FullText
	}
	if f.Namespace == "" {
		return f.ClassName + "." + f.MethodName
	}
	return f.Namespace + "." + f.ClassName + "." + f.MethodName
}

// ExceptionNode is one exception in a chain. Inner links to the exception
// that caused it; the chain is a singly linked list owned from the outside in.
type ExceptionNode struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	Frames  []*Frame `json:"frames"`
	// Inner is omitted from JSON; AnalysisResult.Chain carries the order.
	Inner   *ExceptionNode `json:"-"`
	RawText string         `json:"raw_text,omitempty"`
}

// VisibleFrames returns the frames that were not filtered, in original order.
func (n *ExceptionNode) VisibleFrames() []*Frame {
	visible := make([]*Frame, 0, len(n.Frames))
	for _, f := range n.Frames {
		if !f.Filtered {
			visible = append(visible, f)
		}
	}
	return visible
}

// HighlightedFrames returns the highlighted frames, in original order.
func (n *ExceptionNode) HighlightedFrames() []*Frame {
	var highlighted []*Frame
	for _, f := range n.Frames {
		if f.Highlighted {
			highlighted = append(highlighted, f)
		}
	}
	return highlighted
}

// Chain walks the Inner links starting at n and returns every node from
// outermost to innermost.
func (n *ExceptionNode) Chain() []*ExceptionNode {
	var chain []*ExceptionNode
	for cur := n; cur != nil; cur = cur.Inner {
		chain = append(chain, cur)
	}
	return chain
}

// Root returns the innermost node of the chain starting at n.
func (n *ExceptionNode) Root() *ExceptionNode {
	cur := n
	for cur != nil && cur.Inner != nil {
		cur = cur.Inner
	}
	return cur
}

// AnalysisResult is the aggregate produced for one analyzed exception report.
type AnalysisResult struct {
	// RootException is the innermost node of Chain, the presumed root cause.
	RootException *ExceptionNode `json:"-"`
	// Chain holds every node from outermost to innermost.
	Chain   []*ExceptionNode `json:"chain"`
	Summary string           `json:"summary"`

	TotalFrames    int `json:"total_frames"`
	VisibleFrames  int `json:"visible_frames"`
	FilteredFrames int `json:"filtered_frames"`
}
