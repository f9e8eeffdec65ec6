package udl

// Document is the raw declaration tree for one UDL source file. It is purely
// syntactic: type references are not resolved, names are not checked for
// uniqueness, and attributes are recorded as written.
type Document struct {
	Namespace *NamespaceDecl
	Enums     []EnumDecl
	Records   []DictionaryDecl
	Objects   []InterfaceDecl
	Callbacks []CallbackDecl
	Typedefs  []TypedefDecl
}

// NamespaceDecl is the top-level namespace block holding free functions.
type NamespaceDecl struct {
	Name      string
	Functions []MethodDecl
	Doc       string
	Pos       Position
}

// EnumDecl is a plain `enum` declaration with string-named variants,
// or the variant-carrying form parsed from an `[Enum] interface` block.
type EnumDecl struct {
	Name     string
	Variants []VariantDecl
	IsError  bool // declared with the [Error] attribute
	Doc      string
	Pos      Position
}

// VariantDecl is one enum variant; Fields is non-empty only for the
// `[Enum] interface` associated-data form.
type VariantDecl struct {
	Name   string
	Fields []FieldDecl
	Pos    Position
}

// DictionaryDecl is a `dictionary` declaration (a record of named fields).
type DictionaryDecl struct {
	Name   string
	Fields []FieldDecl
	Doc    string
	Pos    Position
}

// InterfaceDecl is an `interface` declaration (an opaque object with
// constructors and methods).
type InterfaceDecl struct {
	Name         string
	Constructors []ConstructorDecl
	Methods      []MethodDecl
	Threadsafe   bool // declared with the [Threadsafe] attribute
	Doc          string
	Pos          Position
}

// ConstructorDecl is one `constructor(...)` member. Name is empty for the
// primary constructor and set by a [Name=...] attribute otherwise.
type ConstructorDecl struct {
	Name      string
	Args      []ArgDecl
	Throws    string
	HasThrows bool
	Pos       Position
}

// CallbackDecl is a `callback interface` declaration, implemented by the
// foreign side and invoked from the native side.
type CallbackDecl struct {
	Name    string
	Methods []MethodDecl
	Doc     string
	Pos     Position
}

// TypedefDecl is a `typedef` alias; the resolver inlines it transparently.
type TypedefDecl struct {
	Name string
	Type TypeExpr
	Doc  string
	Pos  Position
}

// MethodDecl is a method or free-function declaration. Return is nil when
// the declared return type is `void` or omitted. HasThrows is true whenever
// a [Throws] attribute was present, even without a named error type.
type MethodDecl struct {
	Name      string
	Args      []ArgDecl
	Return    *TypeExpr
	Throws    string
	HasThrows bool
	Doc       string
	Pos       Position
}

// ArgDecl is a named, typed argument with an optional default literal.
type ArgDecl struct {
	Name    string
	Type    TypeExpr
	Default *LiteralExpr
	Pos     Position
}

// FieldDecl is a named, typed field with an optional default literal.
type FieldDecl struct {
	Name    string
	Type    TypeExpr
	Default *LiteralExpr
	Doc     string
	Pos     Position
}

// TypeExpr is a syntactic type reference: a bare name, possibly nullable,
// possibly parameterized (sequence<T>, record<K, V>).
type TypeExpr struct {
	Name     string
	Args     []TypeExpr
	Nullable bool
	Pos      Position
}

// LiteralKind identifies the syntactic class of a default literal.
type LiteralKind int

const (
	LiteralInt LiteralKind = iota
	LiteralFloat
	LiteralString
	LiteralBool
	LiteralNull
	LiteralEnum // a bare identifier, expected to name an enum variant
)

// LiteralExpr is a default-value literal as written in the source.
type LiteralExpr struct {
	Kind  LiteralKind
	Int   int64
	Float float64
	Str   string // string contents, or the identifier for LiteralEnum
	Bool  bool
	Pos   Position
}
