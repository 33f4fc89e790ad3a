package extract

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"strconv"
	"strings"

	"golang.org/x/tools/go/ast/inspector"

	"github.com/kolah/routedoc/internal/jsonx"
	"github.com/kolah/routedoc/internal/naming"
	"github.com/kolah/routedoc/internal/registry"
	"github.com/kolah/routedoc/internal/rules"
)

// Source reads the rule map literal from the validator's Go source file without
// compiling or running it. It looks for <Scenario>Rules and Rules methods on the type,
// then a package-level <Type>Rules variable.
type Source struct{}

func (Source) Name() string { return "source" }

func (Source) Extract(v *registry.Validator, scenario string) (Found, error) {
	if v.Source == "" {
		return Found{}, nil
	}
	src, err := os.ReadFile(v.Source)
	if err != nil {
		return Found{}, fmt.Errorf("reading validator source: %w", err)
	}
	return ParseSource(v.Source, src, v.SourceTypeName(), scenario)
}

// ParseSource extracts the rule literal for typeName from Go source.
func ParseSource(filename string, src []byte, typeName, scenario string) (Found, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.SkipObjectResolution)
	if err != nil {
		return Found{}, fmt.Errorf("parsing %s: %w", filename, err)
	}

	methods := make(map[string]*ast.FuncDecl)
	vars := make(map[string]ast.Expr)

	insp := inspector.New([]*ast.File{file})
	insp.Preorder([]ast.Node{(*ast.FuncDecl)(nil), (*ast.ValueSpec)(nil)}, func(n ast.Node) {
		switch n := n.(type) {
		case *ast.FuncDecl:
			if n.Recv != nil && n.Body != nil && receiverName(n.Recv) == typeName {
				methods[n.Name.Name] = n
			}
		case *ast.ValueSpec:
			for i, name := range n.Names {
				if i < len(n.Values) {
					vars[name.Name] = n.Values[i]
				}
			}
		}
	})

	if scenario != "" {
		if fn, ok := methods[naming.Studly(scenario)+"Rules"]; ok {
			if lit := returnedLiteral(fn.Body); lit != nil {
				if value, ok := evalExpr(lit); ok {
					return Found{Value: value, Scoped: true}, nil
				}
			}
		}
	}
	if fn, ok := methods["Rules"]; ok {
		if lit := returnedLiteral(fn.Body); lit != nil {
			if value, ok := evalExpr(lit); ok {
				return Found{Value: value}, nil
			}
		}
	}
	if expr, ok := vars[typeName+"Rules"]; ok {
		if value, ok := evalExpr(expr); ok {
			return Found{Value: value}, nil
		}
	}
	return Found{}, nil
}

func receiverName(recv *ast.FieldList) string {
	if recv == nil || len(recv.List) == 0 {
		return ""
	}
	expr := recv.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return id.Name
		}
	}
	return ""
}

// returnedLiteral finds the composite literal a function returns, either directly or
// through a local variable assigned from one.
func returnedLiteral(body *ast.BlockStmt) ast.Expr {
	assigned := make(map[string]ast.Expr)
	var result ast.Expr

	ast.Inspect(body, func(n ast.Node) bool {
		if result != nil {
			return false
		}
		switch n := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.AssignStmt:
			for i, lhs := range n.Lhs {
				if id, ok := lhs.(*ast.Ident); ok && i < len(n.Rhs) {
					assigned[id.Name] = n.Rhs[i]
				}
			}
		case *ast.ValueSpec:
			for i, name := range n.Names {
				if i < len(n.Values) {
					assigned[name.Name] = n.Values[i]
				}
			}
		case *ast.ReturnStmt:
			if len(n.Results) == 0 {
				return false
			}
			expr := n.Results[0]
			if id, ok := expr.(*ast.Ident); ok {
				expr = assigned[id.Name]
			}
			if isLiteral(expr) {
				result = expr
			}
			return false
		}
		return true
	})
	return result
}

func isLiteral(e ast.Expr) bool {
	if u, ok := e.(*ast.UnaryExpr); ok && u.Op == token.AND {
		e = u.X
	}
	_, ok := e.(*ast.CompositeLit)
	return ok
}

// evalExpr evaluates the constant subset of Go used in rule maps: string literals and
// their concatenation, strings.Join, map and slice literals, and rule object literals.
func evalExpr(e ast.Expr) (any, bool) {
	switch e := e.(type) {
	case *ast.BasicLit:
		if e.Kind == token.STRING {
			s, err := strconv.Unquote(e.Value)
			return s, err == nil
		}
		return e.Value, true
	case *ast.ParenExpr:
		return evalExpr(e.X)
	case *ast.UnaryExpr:
		if e.Op == token.AND {
			return evalExpr(e.X)
		}
	case *ast.BinaryExpr:
		if e.Op != token.ADD {
			return nil, false
		}
		l, lok := evalExpr(e.X)
		r, rok := evalExpr(e.Y)
		ls, lstr := l.(string)
		rs, rstr := r.(string)
		if lok && rok && lstr && rstr {
			return ls + rs, true
		}
	case *ast.CallExpr:
		return evalCall(e)
	case *ast.CompositeLit:
		return evalComposite(e)
	}
	return nil, false
}

func evalCall(e *ast.CallExpr) (any, bool) {
	sel, ok := e.Fun.(*ast.SelectorExpr)
	if !ok || len(e.Args) != 2 {
		return nil, false
	}
	if pkg, ok := sel.X.(*ast.Ident); !ok || pkg.Name != "strings" || sel.Sel.Name != "Join" {
		return nil, false
	}
	items, ok := evalExpr(e.Args[0])
	sep, sok := evalExpr(e.Args[1])
	list, lok := items.([]any)
	sepStr, sstr := sep.(string)
	if !ok || !sok || !lok || !sstr {
		return nil, false
	}
	parts := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sepStr), true
}

func evalComposite(lit *ast.CompositeLit) (any, bool) {
	switch t := lit.Type.(type) {
	case *ast.MapType:
		return evalMap(lit)
	case *ast.ArrayType:
		return evalSlice(lit)
	case *ast.Ident:
		return rules.TokenForType(t.Name), true
	case *ast.SelectorExpr:
		return rules.TokenForType(t.Sel.Name), true
	case nil:
		// elided type inside an enclosing literal
		if len(lit.Elts) > 0 {
			if _, ok := lit.Elts[0].(*ast.KeyValueExpr); ok {
				return evalMap(lit)
			}
		}
		return evalSlice(lit)
	}
	return nil, false
}

func evalMap(lit *ast.CompositeLit) (any, bool) {
	obj := jsonx.NewObject()
	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			return nil, false
		}
		key, ok := evalExpr(kv.Key)
		keyStr, isStr := key.(string)
		if !ok || !isStr {
			continue
		}
		if value, ok := evalExpr(kv.Value); ok {
			obj.Set(keyStr, value)
		}
	}
	return obj, true
}

func evalSlice(lit *ast.CompositeLit) (any, bool) {
	out := make([]any, 0, len(lit.Elts))
	for _, elt := range lit.Elts {
		if value, ok := evalExpr(elt); ok {
			out = append(out, value)
		}
	}
	return out, true
}
