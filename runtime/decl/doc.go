// Package decl defines the declaration model produced by the metadata
// generator and served by the registry and discovery index.
//
// # Overview
//
// Every program entity is represented by an immutable value:
//
//   - Package, Library, Asset: module-level containers
//   - ClassDeclaration, EnumDeclaration, MixinDeclaration, TypedefDeclaration,
//     RecordDeclaration, TypeVariableDeclaration, ExtensionDeclaration and
//     BasicDeclaration: type declarations
//   - FieldDeclaration, MethodDeclaration, ConstructorDeclaration,
//     ParameterDeclaration: members
//   - Annotation, AnnotationField: metadata attached to source declarations
//   - Link: a lazy, acyclic reference to another type's shape
//
// Declarations never hold other full type declarations that could form a
// cycle. A type refers to its supertypes, interfaces, mixins and type
// arguments through Links only, and a Link's type arguments are Links.
//
// # Equality
//
// Equal and Hash compare declarations by a canonical key built from debug
// identifiers. Ordered collections (type arguments, parameters, positional
// record fields) contribute in order; unordered collections (annotations,
// fields, methods, constructors) are sorted first.
//
//	a := decl.NewClass(info, decl.ClassBody{Fields: []*decl.FieldDeclaration{id, name}})
//	b := decl.NewClass(info, decl.ClassBody{Fields: []*decl.FieldDeclaration{name, id}})
//	decl.Equal(a, b) // true
//
// # Invocation
//
// Members never execute anything themselves. ConstructorDeclaration.NewInstance,
// MethodDeclaration.Invoke and FieldDeclaration.Set validate an Arguments
// value against the declared parameters and then delegate to a Resolver.
package decl
