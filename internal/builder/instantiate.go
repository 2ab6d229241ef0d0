package builder

import (
	"fmt"

	"github.com/roach88/p4ir/internal/generic"
	"github.com/roach88/p4ir/internal/ir"
)

// Instantiate binds pkg's type parameters to typeArgs and fills each package
// parameter with the concrete parser or control named by the matching argument.
//
// Each argument must be a zero-argument construction of an already declared,
// non-generic block of the kind its role requires, whose parameter list equals the
// role's after substitution: same arity, same directions, structurally equal types.
// Any deviation is a PackageShapeMismatch.
func (b *Builder) Instantiate(name string, pkg *ir.Declaration, typeArgs []ir.TypeRef, args []ir.Expr) (*ir.ResolvedPackage, error) {
	if pkg.Kind != ir.DeclPackage || pkg.Proto == nil {
		return nil, ir.Errorf(ir.ErrInvalidDeclaration, "%s %q is not a package", pkg.Kind, pkg.Name)
	}
	for _, ta := range typeArgs {
		if err := b.checkType(ta, nil); err != nil {
			return nil, err
		}
	}
	subst, err := generic.BindList(pkg.Proto.TypeParams, typeArgs)
	if err != nil {
		return nil, fmt.Errorf("package %s: %w", pkg.Name, err)
	}
	params := subst.ApplyParams(pkg.Proto.Params)
	if len(args) != len(params) {
		return nil, ir.Errorf(ir.ErrPackageShapeMismatch,
			"package %s takes %d arguments, got %d", pkg.Name, len(params), len(args))
	}

	out := &ir.ResolvedPackage{
		Name:     name,
		Package:  pkg.Name,
		TypeArgs: subst.ApplyTypes(typeArgs),
	}
	for i, p := range params {
		stage, err := b.bindStage(p, args[i])
		if err != nil {
			return nil, fmt.Errorf("package %s argument %s: %w", pkg.Name, p.Name, err)
		}
		if stage.HasRole && out.Stage(stage.Role) != nil {
			return nil, ir.Errorf(ir.ErrPackageShapeMismatch, "role %s bound twice", stage.Role)
		}
		out.Stages = append(out.Stages, stage)
	}
	b.logger.Debug("package instantiated", "name", name, "package", pkg.Name, "stages", len(out.Stages))
	return out, nil
}

func (b *Builder) bindStage(p ir.Parameter, arg ir.Expr) (ir.Stage, error) {
	// The role may have been a forward reference when the package was declared.
	if err := checkRole(b.table, p.Name, p.Type); err != nil {
		return ir.Stage{}, err
	}
	proto, _ := b.table.Resolve(p.Type.Name)
	psub, err := generic.BindList(proto.Proto.TypeParams, p.Type.Args)
	if err != nil {
		return ir.Stage{}, err
	}
	required := psub.ApplyParams(proto.Proto.Params)
	for _, r := range required {
		if err := b.checkType(r.Type, nil); err != nil {
			return ir.Stage{}, fmt.Errorf("%s parameter %s: %w", proto.Name, r.Name, err)
		}
	}

	if arg.Kind != ir.ExprConstCall {
		return ir.Stage{}, ir.Errorf(ir.ErrPackageShapeMismatch, "expected a construction like name(), got %s", arg)
	}
	d, err := b.table.Resolve(arg.Name)
	if err != nil {
		return ir.Stage{}, err
	}
	if d.Block == nil || d.Kind != proto.Kind {
		return ir.Stage{}, ir.Errorf(ir.ErrPackageShapeMismatch,
			"%s requires a %s, but %q is %s", p.Type, proto.Kind, d.Name, describe(d))
	}
	if len(d.Block.TypeParams) > 0 {
		return ir.Stage{}, ir.Errorf(ir.ErrPackageShapeMismatch, "%s %q is generic and cannot be constructed without type arguments", d.Kind, d.Name)
	}
	for _, c := range d.Block.ConstParams {
		if c.Default == nil {
			return ir.Stage{}, ir.Errorf(ir.ErrPackageShapeMismatch,
				"%s %q needs constructor argument %s", d.Kind, d.Name, c.Name)
		}
	}
	if err := matchShape(required, d.Block.Params); err != nil {
		return ir.Stage{}, ir.Errorf(ir.ErrPackageShapeMismatch, "%q does not satisfy %s: %s", d.Name, p.Type, err)
	}

	stage := ir.Stage{
		Param:    p.Name,
		RoleType: p.Type,
		Decl:     d,
		Parser:   b.parsers[d.Name],
		Control:  b.controls[d.Name],
	}
	stage.Role, stage.HasRole = ir.RoleByName(proto.Name)
	return stage, nil
}

func matchShape(required, got []ir.Parameter) error {
	if len(required) != len(got) {
		return fmt.Errorf("expected %d parameters, got %d", len(required), len(got))
	}
	for i := range required {
		r, g := required[i], got[i]
		if r.Direction != g.Direction {
			return fmt.Errorf("parameter %d (%s) is %s, expected %s", i, g.Name, g.Direction, r.Direction)
		}
		if !r.Type.Equal(g.Type) {
			return fmt.Errorf("parameter %d (%s) has type %s, expected %s", i, g.Name, g.Type, r.Type)
		}
	}
	return nil
}

func describe(d *ir.Declaration) string {
	if d.IsPrototype() {
		return "a " + d.Kind.String() + " type"
	}
	return "a " + d.Kind.String()
}
