package builder

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/p4ir/internal/ir"
	"github.com/roach88/p4ir/internal/table"
)

var (
	// ErrSealed is returned by DeclareGlobal after Program has been called.
	ErrSealed = errors.New("builder is sealed")

	// ErrPoisoned wraps the original failure for every call made after a build error.
	ErrPoisoned = errors.New("builder failed earlier")

	// ErrNoMain is returned by Program when no package instance named "main" was declared.
	ErrNoMain = errors.New(`no package instance named "main"`)
)

// MainInstance is the name of the instance the evaluator runs.
const MainInstance = "main"

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger for declaration tracing. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// RequireMain controls whether Program fails without a "main" instance. Defaults to true.
func RequireMain(v bool) Option {
	return func(b *Builder) { b.requireMain = v }
}

// Builder owns the declaration table during construction.
//
// Builder is not safe for concurrent use. The Program it produces is.
type Builder struct {
	table       *table.Table
	logger      *slog.Logger
	requireMain bool

	err    error
	sealed bool

	// globals holds the types of top-level extern instances, usable as variables.
	globals map[string]ir.TypeRef

	parsers  map[string]*ir.ParserGraph
	controls map[string]*ir.ControlModel
	packages []*ir.ResolvedPackage

	// forward holds parameter types of signatures and prototypes that named a
	// declaration not yet in the table. Program resolves them.
	forward []forwardRef
}

// forwardRef is a parameter type accepted before the name it references existed.
type forwardRef struct {
	decl  string
	param string
	typ   ir.TypeRef
	scope []string

	// role is set for package parameters, which must name a parser or control type.
	role bool
}

// New creates an empty builder.
func New(opts ...Option) *Builder {
	b := &Builder{
		table:       table.New(),
		logger:      slog.Default(),
		requireMain: true,
		globals:     make(map[string]ir.TypeRef),
		parsers:     make(map[string]*ir.ParserGraph),
		controls:    make(map[string]*ir.ControlModel),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Program is the sealed result of a successful build.
type Program struct {
	// View is the read-only declaration table.
	View *table.View

	// Main is the resolved "main" package instance, or nil when not required.
	Main *ir.ResolvedPackage

	// Packages lists every resolved package instance in declaration order.
	Packages []*ir.ResolvedPackage

	// Parsers and Controls hold the checked model of every concrete block.
	Parsers  map[string]*ir.ParserGraph
	Controls map[string]*ir.ControlModel
}

// Build declares every decl in order and returns the sealed program.
func Build(decls []ir.Declaration, opts ...Option) (*Program, error) {
	b := New(opts...)
	for _, d := range decls {
		if err := b.DeclareGlobal(d); err != nil {
			return nil, err
		}
	}
	return b.Program()
}

// Err returns the error that poisoned the builder, if any.
func (b *Builder) Err() error { return b.err }

// Table exposes the underlying table for lookups during construction.
func (b *Builder) Table() *table.Table { return b.table }

// DeclareGlobal validates d against everything declared so far and appends it.
// The first failure poisons the builder.
func (b *Builder) DeclareGlobal(d ir.Declaration) error {
	if b.sealed {
		return ErrSealed
	}
	if b.err != nil {
		return fmt.Errorf("%w: %w", ErrPoisoned, b.err)
	}
	if err := b.declare(d); err != nil {
		var be *ir.BuildError
		if errors.As(err, &be) && be.Decl == "" {
			be.Decl = d.Name
		}
		b.err = err
		b.logger.Debug("declaration rejected", "name", d.Name, "kind", d.Kind.String(), "error", err)
		return err
	}
	b.logger.Debug("declaration accepted", "name", d.Name, "kind", d.Kind.String())
	return nil
}

func (b *Builder) declare(d ir.Declaration) error {
	d = normalize(d)

	var (
		graph *ir.ParserGraph
		model *ir.ControlModel
		pkg   *ir.ResolvedPackage
	)
	switch d.Kind {
	case ir.DeclType:
		if err := b.checkTypeDecl(d); err != nil {
			return err
		}
	case ir.DeclExtern:
		if err := b.checkExtern(d); err != nil {
			return err
		}
	case ir.DeclMethod:
		if d.Signature == nil {
			return ir.Errorf(ir.ErrInvalidDeclaration, "method has no signature")
		}
		if err := b.checkSignature(d.Name, *d.Signature, d.Signature.TypeParams.Params, ""); err != nil {
			return err
		}
	case ir.DeclControl, ir.DeclParser, ir.DeclPackage:
		switch {
		case d.Proto != nil:
			if err := b.checkPrototype(d); err != nil {
				return err
			}
		case d.Block != nil && d.Kind == ir.DeclParser:
			g, err := b.checkParser(d)
			if err != nil {
				return err
			}
			graph = g
		case d.Block != nil && d.Kind == ir.DeclControl:
			m, err := b.checkControl(d)
			if err != nil {
				return err
			}
			model = m
		default:
			return ir.Errorf(ir.ErrInvalidDeclaration, "%s has neither a prototype nor a body", d.Kind)
		}
	case ir.DeclAction:
		if d.Action == nil {
			return ir.Errorf(ir.ErrInvalidDeclaration, "action has no body")
		}
		sc := b.newScope(d.Name, b.table, nil)
		if _, err := sc.checkAction(d); err != nil {
			return err
		}
	case ir.DeclInstance:
		p, err := b.checkInstance(d)
		if err != nil {
			return err
		}
		pkg = p
	case ir.DeclMatchKind:
	case ir.DeclTable:
		return ir.Errorf(ir.ErrInvalidDeclaration, "table %q must be declared inside a control", d.Name)
	default:
		return ir.Errorf(ir.ErrInvalidDeclaration, "unsupported declaration kind %s", d.Kind)
	}

	if err := b.table.Declare(d); err != nil {
		return err
	}
	switch {
	case graph != nil:
		b.parsers[d.Name] = graph
	case model != nil:
		b.controls[d.Name] = model
	case pkg != nil:
		b.packages = append(b.packages, pkg)
	case d.Kind == ir.DeclInstance:
		b.globals[d.Name] = d.Instance.Type
	}
	return nil
}

// MainPackage returns the resolved "main" instance once it has been declared.
func (b *Builder) MainPackage() (*ir.ResolvedPackage, bool) {
	if b.err != nil {
		return nil, false
	}
	for _, p := range b.packages {
		if p.Name == MainInstance {
			return p, true
		}
	}
	return nil, false
}

// Program seals the table and returns the built program. It fails if the builder
// was poisoned, if a parameter type still names an undeclared type or, unless
// disabled with RequireMain(false), if no "main" exists.
func (b *Builder) Program() (*Program, error) {
	if b.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPoisoned, b.err)
	}
	if err := b.resolveForward(); err != nil {
		b.err = err
		b.logger.Debug("forward reference unresolved", "error", err)
		return nil, err
	}
	main, ok := b.MainPackage()
	if !ok && b.requireMain {
		return nil, ErrNoMain
	}
	view := b.table.Seal()
	b.sealed = true
	if main != nil {
		b.logger.Info("package resolved", "name", main.Name, "package", main.Package, "stages", len(main.Stages))
	}
	b.logger.Debug("table sealed", "declarations", view.Len(), "packages", len(b.packages))
	return &Program{
		View:     view,
		Main:     main,
		Packages: append([]*ir.ResolvedPackage(nil), b.packages...),
		Parsers:  b.parsers,
		Controls: b.controls,
	}, nil
}

// resolveType looks up a Named reference and checks it can be used as a type.
func (b *Builder) resolveType(t ir.TypeRef) (*ir.Declaration, error) {
	d, err := b.table.Resolve(t.Name)
	if err != nil {
		return nil, err
	}
	if !d.IsTypeLike() {
		return nil, ir.Errorf(ir.ErrInvalidDeclaration, "%s %q is not a type", d.Kind, t.Name)
	}
	return d, nil
}

// checkType validates t: positive widths, known names, type-argument arity and
// only in-scope parameters.
func (b *Builder) checkType(t ir.TypeRef, scope []string) error {
	switch t.Kind {
	case ir.KindBits:
		if t.Width <= 0 {
			return ir.Errorf(ir.ErrInvalidDeclaration, "bit width must be positive, got %d", t.Width)
		}
		return nil
	case ir.KindBool:
		return nil
	case ir.KindParam:
		for _, s := range scope {
			if s == t.Name {
				return nil
			}
		}
		return ir.Errorf(ir.ErrUnboundTypeParameter, "type parameter %s is not in scope", t.Name)
	}
	d, err := b.resolveType(t)
	if err != nil {
		return err
	}
	if want := typeParamsOf(d); len(want) != len(t.Args) {
		return ir.Errorf(ir.ErrArityMismatch, "%s expects %d type arguments, got %d", t.Name, len(want), len(t.Args))
	}
	for _, a := range t.Args {
		if err := b.checkType(a, scope); err != nil {
			return err
		}
	}
	return nil
}

func typeParamsOf(d *ir.Declaration) []string {
	switch {
	case d.Type != nil:
		return d.Type.TypeParams
	case d.Extern != nil:
		return d.Extern.TypeParams
	case d.Proto != nil:
		return d.Proto.TypeParams
	case d.Block != nil:
		return d.Block.TypeParams
	}
	return nil
}

func (b *Builder) checkParams(params []ir.Parameter, scope []string) error {
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if seen[p.Name] {
			return ir.Errorf(ir.ErrDuplicateName, "parameter %q declared twice", p.Name)
		}
		seen[p.Name] = true
		if err := b.checkType(p.Type, scope); err != nil {
			return fmt.Errorf("parameter %s: %w", p.Name, err)
		}
	}
	return nil
}

// checkForwardParams is checkParams for signatures and prototypes: a parameter
// whose type names something not declared yet is recorded instead of rejected.
// A parameter of type self is always accepted.
func (b *Builder) checkForwardParams(decl string, params []ir.Parameter, scope []string, self string, role bool) error {
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if seen[p.Name] {
			return ir.Errorf(ir.ErrDuplicateName, "parameter %q declared twice", p.Name)
		}
		seen[p.Name] = true
		if p.Type.Kind == ir.KindNamed && p.Type.Name == self {
			continue
		}
		err := b.checkType(p.Type, scope)
		switch {
		case err == nil:
		case ir.IsKind(err, ir.ErrUnknownName):
			b.forward = append(b.forward, forwardRef{decl: decl, param: p.Name, typ: p.Type, scope: scope, role: role})
			b.logger.Debug("forward reference recorded", "decl", decl, "param", p.Name, "type", p.Type.String())
		default:
			return fmt.Errorf("parameter %s: %w", p.Name, err)
		}
	}
	return nil
}

// resolveForward checks every recorded forward reference against the final table.
func (b *Builder) resolveForward() error {
	for _, f := range b.forward {
		err := b.checkType(f.typ, f.scope)
		if err == nil && f.role {
			err = checkRole(b.table, f.param, f.typ)
		}
		if err != nil {
			var be *ir.BuildError
			if errors.As(err, &be) && be.Decl == "" {
				be.Decl = f.decl
			}
			return fmt.Errorf("%s: parameter %s: %w", f.decl, f.param, err)
		}
	}
	b.forward = nil
	return nil
}

// checkRole reports whether t names a parser or control type.
func checkRole(tbl table.Resolver, param string, t ir.TypeRef) error {
	role, err := tbl.Resolve(t.Name)
	if err != nil {
		return err
	}
	if !role.IsPrototype() || (role.Kind != ir.DeclControl && role.Kind != ir.DeclParser) {
		return ir.Errorf(ir.ErrInvalidDeclaration,
			"package parameter %s has type %s, not a parser or control type", param, t)
	}
	return nil
}

func checkTypeParamNames(names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return ir.Errorf(ir.ErrDuplicateName, "type parameter %s declared twice", n)
		}
		seen[n] = true
	}
	return nil
}

// checkSignature checks a method signature. The return type must resolve now;
// parameter types may name later declarations. The extern's own name, self, may
// appear anywhere (constructors and methods returning the extern).
func (b *Builder) checkSignature(decl string, sig ir.Signature, scope []string, self string) error {
	if err := checkTypeParamNames(sig.TypeParams.Params); err != nil {
		return err
	}
	if r := sig.TypeParams.Return; r != nil && (r.Kind != ir.KindNamed || r.Name != self) {
		if err := b.checkType(*r, scope); err != nil {
			return fmt.Errorf("return type: %w", err)
		}
	}
	return b.checkForwardParams(decl, sig.Params, scope, self, false)
}

func (b *Builder) checkTypeDecl(d ir.Declaration) error {
	td := d.Type
	if td == nil {
		return ir.Errorf(ir.ErrInvalidDeclaration, "type has no definition")
	}
	if err := checkTypeParamNames(td.TypeParams); err != nil {
		return err
	}
	if td.Class == ir.ClassEnum {
		seen := make(map[string]bool, len(td.Members))
		for _, m := range td.Members {
			if seen[m] {
				return ir.Errorf(ir.ErrDuplicateName, "enum member %s declared twice", m)
			}
			seen[m] = true
		}
		return nil
	}
	seen := make(map[string]bool, len(td.Fields))
	for _, f := range td.Fields {
		if seen[f.Name] {
			return ir.Errorf(ir.ErrDuplicateName, "field %q declared twice", f.Name)
		}
		seen[f.Name] = true
		if refersTo(f.Type, d.Name) {
			return ir.Errorf(ir.ErrCyclicDefinition, "field %q contains %s itself", f.Name, d.Name)
		}
		if err := b.checkType(f.Type, td.TypeParams); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
		if f.Type.Kind == ir.KindNamed {
			fd, _ := b.table.Resolve(f.Type.Name)
			if fd.Kind != ir.DeclType {
				return ir.Errorf(ir.ErrInvalidDeclaration, "field %q has %s type %s without layout", f.Name, fd.Kind, f.Type)
			}
		}
	}
	return nil
}

func refersTo(t ir.TypeRef, name string) bool {
	if t.Kind != ir.KindNamed {
		return false
	}
	if t.Name == name {
		return true
	}
	for _, a := range t.Args {
		if refersTo(a, name) {
			return true
		}
	}
	return false
}

func (b *Builder) checkExtern(d ir.Declaration) error {
	ext := d.Extern
	if ext == nil {
		return ir.Errorf(ir.ErrInvalidDeclaration, "extern has no interface")
	}
	if err := checkTypeParamNames(ext.TypeParams); err != nil {
		return err
	}
	// Method overloads are checked in a scratch table so they stay out of the
	// global namespace.
	scratch := table.New()
	for _, m := range ext.Methods {
		if m.Signature == nil {
			return ir.Errorf(ir.ErrInvalidDeclaration, "method %s.%s has no signature", d.Name, m.Name)
		}
		scope := append(append([]string(nil), ext.TypeParams...), m.Signature.TypeParams.Params...)
		if err := b.checkSignature(d.Name+"."+m.Name, *m.Signature, scope, d.Name); err != nil {
			return fmt.Errorf("method %s: %w", m.Name, err)
		}
		if err := scratch.Declare(m); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) checkPrototype(d ir.Declaration) error {
	if err := checkTypeParamNames(d.Proto.TypeParams); err != nil {
		return err
	}
	isPackage := d.Kind == ir.DeclPackage
	if isPackage {
		for _, p := range d.Proto.Params {
			if p.Type.Kind != ir.KindNamed {
				return ir.Errorf(ir.ErrInvalidDeclaration, "package parameter %s must be a parser or control type", p.Name)
			}
		}
	}
	if err := b.checkForwardParams(d.Name, d.Proto.Params, d.Proto.TypeParams, "", isPackage); err != nil {
		return err
	}
	if !isPackage {
		return nil
	}
	for _, p := range d.Proto.Params {
		if _, err := b.table.Resolve(p.Type.Name); err != nil {
			continue // recorded as a forward reference
		}
		if err := checkRole(b.table, p.Name, p.Type); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) checkInstance(d ir.Declaration) (*ir.ResolvedPackage, error) {
	inst := d.Instance
	if inst == nil || inst.Type.Kind != ir.KindNamed {
		return nil, ir.Errorf(ir.ErrInvalidDeclaration, "instance must name a package or extern")
	}
	target, err := b.table.Resolve(inst.Type.Name)
	if err != nil {
		return nil, err
	}
	switch {
	case target.Kind == ir.DeclPackage && target.Proto != nil:
		return b.Instantiate(d.Name, target, inst.Type.Args, inst.Args)
	case target.Kind == ir.DeclExtern:
		sc := b.newScope(d.Name, b.table, nil)
		return nil, sc.checkConstructor(inst.Type, target, inst.Args)
	}
	return nil, ir.Errorf(ir.ErrInvalidDeclaration, "cannot instantiate %s %q", target.Kind, target.Name)
}
