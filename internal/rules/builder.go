// internal/rules/builder.go
package rules

// Builder assembles a RuleSet with fluent setters.
type Builder struct {
	rs *RuleSet
}

// NewBuilder starts from Default().
func NewBuilder() *Builder {
	return &Builder{rs: Default()}
}

// NewBuilderFrom starts from a copy of base. A nil base behaves like NewBuilder.
func NewBuilderFrom(base *RuleSet) *Builder {
	if base == nil {
		return NewBuilder()
	}
	return &Builder{rs: base.Clone()}
}

// FilterNamespace adds a namespace prefix whose frames are hidden.
func (b *Builder) FilterNamespace(prefix string) *Builder {
	b.rs.FilteredNamespaces = append(b.rs.FilteredNamespaces, prefix)
	return b
}

// HighlightNamespace adds a namespace prefix whose frames are marked as key frames.
func (b *Builder) HighlightNamespace(prefix string) *Builder {
	b.rs.HighlightedNamespaces = append(b.rs.HighlightedNamespaces, prefix)
	return b
}

// FilterClass adds a class name whose frames are hidden.
func (b *Builder) FilterClass(className string) *Builder {
	b.rs.FilteredClassNames = append(b.rs.FilteredClassNames, className)
	return b
}

// HighlightClass adds a class name whose frames are marked as key frames.
func (b *Builder) HighlightClass(className string) *Builder {
	b.rs.HighlightedClassNames = append(b.rs.HighlightedClassNames, className)
	return b
}

// WithFilterFrameworkCalls turns the filter pass on or off.
func (b *Builder) WithFilterFrameworkCalls(filter bool) *Builder {
	b.rs.FilterFrameworkCalls = filter
	return b
}

// WithHighlightApplicationCode sets whether frames outside filtered namespaces are highlighted.
func (b *Builder) WithHighlightApplicationCode(highlight bool) *Builder {
	b.rs.HighlightApplicationCode = highlight
	return b
}

// Build returns a copy of the assembled rule set, so further builder calls
// never change a set that is already in use.
func (b *Builder) Build() *RuleSet {
	return b.rs.Clone()
}
