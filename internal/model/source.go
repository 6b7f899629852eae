package model

// Path represents a file system path.
type Path string

// File represents a source code file.
type File struct {
	ShortPath Path // relative to the project root
	FullPath  Path
	Lines     []string
}

// Module is a single parsed Go file addressed by its dotted name.
//
// Regular files are named after their directory and base name
// (shop/orders/filters.go -> shop.orders.filters). Test files are named
// <dir>.tests.test_<base> so they can be matched against the module they
// cover (shop/orders/filters_test.go -> shop.orders.tests.test_filters).
// Files that map to the same name (orders/filters_test.go and
// orders/tests/filters_test.go) are merged into one module.
type Module struct {
	Name   string
	Files  []*File
	IsTest bool
	Types  []TypeDecl
	Funcs  []FuncDecl
	Tests  []TestFunc
}

// TypeDecl is a type declared directly in a module.
type TypeDecl struct {
	Name    string
	Line    int
	Embeds  []string // base identifiers of embedded fields
	Methods []Method // methods declared anywhere in the same package
}

// Method is a method bound to a declared type.
type Method struct {
	Name string
	Line int
}

// FuncDecl is a top-level function without a receiver.
type FuncDecl struct {
	Name      string
	StartLine int
	EndLine   int
}

// TestFunc is a Test* function or a Test* method of a suite type.
type TestFunc struct {
	Name      string
	Receiver  string // suite type, empty for top-level test functions
	StartLine int
	EndLine   int
	Source    string
}
