package adapter

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"unicode"
	"unicode/utf8"

	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

const testPrefix = "Test"

// GoFileAdapter encapsulates Go-specific parsing and declaration extraction so
// the domain layer can focus on naming conventions while delegating syntax
// details to an infrastructure component.
type GoFileAdapter interface {
	// Parse builds an AST using the provided file set and optional source bytes.
	Parse(fileSet *token.FileSet, filename string, src []byte) (*ast.File, error)

	// ExtractTypes returns the types declared directly in the file. Methods
	// are not populated; they may live in sibling files of the package.
	ExtractTypes(fileSet *token.FileSet, file *ast.File) []m.TypeDecl

	// ExtractFuncs returns top-level functions without a receiver.
	ExtractFuncs(fileSet *token.FileSet, file *ast.File) []m.FuncDecl

	// ExtractMethods groups the file's methods by receiver base type.
	ExtractMethods(fileSet *token.FileSet, file *ast.File) map[string][]m.Method

	// ExtractTests returns Test* functions and Test* suite methods along with
	// their own source text.
	ExtractTests(fileSet *token.FileSet, file *ast.File, src []byte) []m.TestFunc
}

// LocalGoFileAdapter provides a concrete GoFileAdapter backed by go/parser.
type LocalGoFileAdapter struct{}

// NewLocalGoFileAdapter constructs a LocalGoFileAdapter.
func NewLocalGoFileAdapter() *LocalGoFileAdapter {
	return &LocalGoFileAdapter{}
}

// Parse builds an AST for the provided filename/source pair.
func (a *LocalGoFileAdapter) Parse(fileSet *token.FileSet, filename string, src []byte) (*ast.File, error) {
	return parser.ParseFile(fileSet, filename, src, parser.ParseComments)
}

// ExtractTypes inspects type declarations and records embedded bases.
func (a *LocalGoFileAdapter) ExtractTypes(fileSet *token.FileSet, file *ast.File) []m.TypeDecl {
	var types []m.TypeDecl

	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}

		for _, spec := range gen.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}

			types = append(types, m.TypeDecl{
				Name:   ts.Name.Name,
				Line:   fileSet.Position(ts.Pos()).Line,
				Embeds: embeddedBases(ts.Type),
			})
		}
	}

	return types
}

// ExtractFuncs records plain functions. init is skipped since it can never be
// addressed by a test name.
func (a *LocalGoFileAdapter) ExtractFuncs(fileSet *token.FileSet, file *ast.File) []m.FuncDecl {
	var funcs []m.FuncDecl

	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil || fn.Name.Name == "init" {
			continue
		}

		funcs = append(funcs, m.FuncDecl{
			Name:      fn.Name.Name,
			StartLine: fileSet.Position(fn.Pos()).Line,
			EndLine:   fileSet.Position(fn.End()).Line,
		})
	}

	return funcs
}

// ExtractMethods groups methods by the base name of their receiver type.
func (a *LocalGoFileAdapter) ExtractMethods(fileSet *token.FileSet, file *ast.File) map[string][]m.Method {
	methods := make(map[string][]m.Method)

	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv == nil || len(fn.Recv.List) == 0 {
			continue
		}

		receiver := baseIdent(fn.Recv.List[0].Type)
		if receiver == "" {
			continue
		}

		methods[receiver] = append(methods[receiver], m.Method{
			Name: fn.Name.Name,
			Line: fileSet.Position(fn.Pos()).Line,
		})
	}

	return methods
}

// ExtractTests collects go test entry points and testify suite methods.
func (a *LocalGoFileAdapter) ExtractTests(fileSet *token.FileSet, file *ast.File, src []byte) []m.TestFunc {
	var tests []m.TestFunc

	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || !IsTestName(fn.Name.Name) {
			continue
		}

		receiver := ""

		if fn.Recv != nil && len(fn.Recv.List) > 0 {
			receiver = baseIdent(fn.Recv.List[0].Type)
			if fn.Type.Params.NumFields() != 0 {
				continue
			}
		} else if !takesTestingT(fn.Type) {
			continue
		}

		start := fileSet.Position(fn.Pos())
		end := fileSet.Position(fn.End())

		test := m.TestFunc{
			Name:      fn.Name.Name,
			Receiver:  receiver,
			StartLine: start.Line,
			EndLine:   end.Line,
		}

		if src != nil && start.Offset >= 0 && end.Offset <= len(src) && start.Offset < end.Offset {
			test.Source = string(src[start.Offset:end.Offset])
		}

		tests = append(tests, test)
	}

	return tests
}

// IsTestName reports whether name follows the go test TestXxx convention.
func IsTestName(name string) bool {
	if !strings.HasPrefix(name, testPrefix) || len(name) == len(testPrefix) {
		return false
	}

	r, _ := utf8.DecodeRuneInString(name[len(testPrefix):])

	return !unicode.IsLower(r)
}

func takesTestingT(ft *ast.FuncType) bool {
	if ft.Params == nil || len(ft.Params.List) != 1 {
		return false
	}

	star, ok := ft.Params.List[0].Type.(*ast.StarExpr)
	if !ok {
		return false
	}

	sel, ok := star.X.(*ast.SelectorExpr)

	return ok && sel.Sel.Name == "T"
}

// embeddedBases returns the identifiers a type builds on: embedded struct
// fields, or the named type of a defined type (type X pkg.Y).
func embeddedBases(expr ast.Expr) []string {
	switch t := expr.(type) {
	case *ast.StructType:
		var bases []string

		for _, field := range t.Fields.List {
			if len(field.Names) != 0 {
				continue
			}

			if name := baseIdent(field.Type); name != "" {
				bases = append(bases, name)
			}
		}

		return bases
	case *ast.Ident, *ast.SelectorExpr, *ast.StarExpr, *ast.IndexExpr, *ast.IndexListExpr:
		if name := baseIdent(t); name != "" {
			return []string{name}
		}
	}

	return nil
}

// baseIdent unwraps pointers, qualifiers and type parameters down to the
// type's identifier.
func baseIdent(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return t.Sel.Name
	case *ast.StarExpr:
		return baseIdent(t.X)
	case *ast.IndexExpr:
		return baseIdent(t.X)
	case *ast.IndexListExpr:
		return baseIdent(t.X)
	case *ast.ParenExpr:
		return baseIdent(t.X)
	}

	return ""
}
