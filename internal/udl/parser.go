package udl

import "strconv"

// Parse parses UDL source text into a raw Document. It performs no semantic
// validation: undefined type references, duplicate names and invalid defaults
// are all accepted here and rejected by later pipeline stages.
func Parse(src string) (*Document, error) {
	p := &parser{lex: NewLexer(src)}
	if err := p.fill(); err != nil {
		return nil, err
	}
	return p.parseDocument()
}

type tokenInfo struct {
	Token
	Doc string
}

type parser struct {
	lex *Lexer
	buf []tokenInfo
}

// fill keeps a two-token lookahead window.
func (p *parser) fill() error {
	for len(p.buf) < 2 {
		tok, err := p.lex.Next()
		if err != nil {
			return err
		}
		doc := p.lex.PendingDoc()
		p.buf = append(p.buf, tokenInfo{Token: tok, Doc: doc})
	}
	return nil
}

func (p *parser) peek() Token {
	return p.buf[0].Token
}

func (p *parser) peek2() Token {
	return p.buf[1].Token
}

func (p *parser) peekDoc() string {
	return p.buf[0].Doc
}

func (p *parser) next() (Token, error) {
	tok := p.buf[0].Token
	p.buf = p.buf[1:]
	if err := p.fill(); err != nil {
		return Token{}, err
	}
	return tok, nil
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	tok := p.peek()
	if tok.Kind != kind {
		return Token{}, syntaxErrorf(tok.Pos, "expected %s, found %s", kind, describe(tok))
	}
	return p.next()
}

func (p *parser) expectKeyword(kw string) (Token, error) {
	tok := p.peek()
	if tok.Kind != TokenIdent || tok.Lit != kw {
		return Token{}, syntaxErrorf(tok.Pos, "expected '%s', found %s", kw, describe(tok))
	}
	return p.next()
}

func describe(tok Token) string {
	switch tok.Kind {
	case TokenIdent:
		return "'" + tok.Lit + "'"
	case TokenEOF:
		return "end of input"
	default:
		return tok.Kind.String()
	}
}

// attributes holds the result of parsing one [...] attribute list.
type attributes struct {
	Error      bool
	Enum       bool
	Threadsafe bool
	Throws     string
	HasThrows  bool
	Name       string
}

func (p *parser) parseDocument() (*Document, error) {
	doc := &Document{}
	for p.peek().Kind != TokenEOF {
		declDoc := p.peekDoc()
		attrs, err := p.parseAttributes()
		if err != nil {
			return nil, err
		}

		tok := p.peek()
		if tok.Kind != TokenIdent {
			return nil, syntaxErrorf(tok.Pos, "expected a declaration, found %s", describe(tok))
		}

		switch tok.Lit {
		case "namespace":
			ns, err := p.parseNamespace(declDoc)
			if err != nil {
				return nil, err
			}
			if doc.Namespace != nil {
				return nil, syntaxErrorf(tok.Pos, "duplicate namespace declaration '%s'", ns.Name)
			}
			doc.Namespace = ns
		case "enum":
			enum, err := p.parseEnum(declDoc, attrs)
			if err != nil {
				return nil, err
			}
			doc.Enums = append(doc.Enums, *enum)
		case "dictionary":
			rec, err := p.parseDictionary(declDoc)
			if err != nil {
				return nil, err
			}
			doc.Records = append(doc.Records, *rec)
		case "interface":
			if err := p.parseInterface(doc, declDoc, attrs); err != nil {
				return nil, err
			}
		case "callback":
			cb, err := p.parseCallback(declDoc)
			if err != nil {
				return nil, err
			}
			doc.Callbacks = append(doc.Callbacks, *cb)
		case "typedef":
			td, err := p.parseTypedef(declDoc)
			if err != nil {
				return nil, err
			}
			doc.Typedefs = append(doc.Typedefs, *td)
		default:
			return nil, syntaxErrorf(tok.Pos, "expected a declaration keyword, found %s", describe(tok))
		}
	}

	if doc.Namespace == nil {
		return nil, syntaxErrorf(Position{Line: 1, Column: 1}, "missing namespace declaration")
	}
	return doc, nil
}

func (p *parser) parseAttributes() (attributes, error) {
	var attrs attributes
	if p.peek().Kind != TokenLBracket {
		return attrs, nil
	}
	if _, err := p.next(); err != nil {
		return attrs, err
	}
	for {
		name, err := p.expect(TokenIdent)
		if err != nil {
			return attrs, err
		}
		value := ""
		hasValue := false
		if p.peek().Kind == TokenEquals {
			if _, err := p.next(); err != nil {
				return attrs, err
			}
			val, err := p.expect(TokenIdent)
			if err != nil {
				return attrs, err
			}
			value = val.Lit
			hasValue = true
		}
		switch name.Lit {
		case "Error":
			attrs.Error = true
		case "Enum":
			attrs.Enum = true
		case "Threadsafe":
			attrs.Threadsafe = true
		case "Throws":
			attrs.HasThrows = true
			attrs.Throws = value
		case "Name":
			attrs.Name = value
		default:
			return attrs, syntaxErrorf(name.Pos, "unknown attribute '%s'", name.Lit)
		}
		if name.Lit == "Name" && !hasValue {
			return attrs, syntaxErrorf(name.Pos, "attribute 'Name' requires a value")
		}

		if p.peek().Kind == TokenComma {
			if _, err := p.next(); err != nil {
				return attrs, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(TokenRBracket); err != nil {
		return attrs, err
	}
	return attrs, nil
}

func (p *parser) parseNamespace(doc string) (*NamespaceDecl, error) {
	kw, err := p.expectKeyword("namespace")
	if err != nil {
		return nil, err
	}
	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	ns := &NamespaceDecl{Name: name.Lit, Doc: doc, Pos: kw.Pos}

	if _, err := p.expect(TokenLBrace); err != nil {
		return nil, err
	}
	for p.peek().Kind != TokenRBrace {
		fnDoc := p.peekDoc()
		attrs, err := p.parseAttributes()
		if err != nil {
			return nil, err
		}
		fn, err := p.parseMethod(fnDoc, attrs)
		if err != nil {
			return nil, err
		}
		ns.Functions = append(ns.Functions, *fn)
	}
	if err := p.closeBlock(); err != nil {
		return nil, err
	}
	return ns, nil
}

func (p *parser) parseEnum(doc string, attrs attributes) (*EnumDecl, error) {
	kw, err := p.expectKeyword("enum")
	if err != nil {
		return nil, err
	}
	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	enum := &EnumDecl{Name: name.Lit, IsError: attrs.Error, Doc: doc, Pos: kw.Pos}

	if _, err := p.expect(TokenLBrace); err != nil {
		return nil, err
	}
	for p.peek().Kind != TokenRBrace {
		variant, err := p.expect(TokenString)
		if err != nil {
			return nil, err
		}
		enum.Variants = append(enum.Variants, VariantDecl{Name: variant.Lit, Pos: variant.Pos})
		if p.peek().Kind == TokenComma {
			if _, err := p.next(); err != nil {
				return nil, err
			}
		} else {
			break
		}
	}
	if _, err := p.expect(TokenRBrace); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	return enum, nil
}

// parseInterface handles three declaration forms that share the `interface`
// keyword: plain objects, `[Enum] interface` tagged unions, and
// `[Error] interface` error enums with associated data.
func (p *parser) parseInterface(doc *Document, declDoc string, attrs attributes) error {
	kw, err := p.expectKeyword("interface")
	if err != nil {
		return err
	}
	name, err := p.expect(TokenIdent)
	if err != nil {
		return err
	}
	if _, err := p.expect(TokenLBrace); err != nil {
		return err
	}

	if attrs.Enum || attrs.Error {
		enum := &EnumDecl{Name: name.Lit, IsError: attrs.Error, Doc: declDoc, Pos: kw.Pos}
		for p.peek().Kind != TokenRBrace {
			variant, err := p.parseVariant()
			if err != nil {
				return err
			}
			enum.Variants = append(enum.Variants, *variant)
		}
		if err := p.closeBlock(); err != nil {
			return err
		}
		doc.Enums = append(doc.Enums, *enum)
		return nil
	}

	obj := &InterfaceDecl{Name: name.Lit, Threadsafe: attrs.Threadsafe, Doc: declDoc, Pos: kw.Pos}
	for p.peek().Kind != TokenRBrace {
		memberDoc := p.peekDoc()
		memberAttrs, err := p.parseAttributes()
		if err != nil {
			return err
		}
		if p.peek().Kind == TokenIdent && p.peek().Lit == "constructor" {
			ctor, err := p.parseConstructor(memberAttrs)
			if err != nil {
				return err
			}
			obj.Constructors = append(obj.Constructors, *ctor)
			continue
		}
		m, err := p.parseMethod(memberDoc, memberAttrs)
		if err != nil {
			return err
		}
		obj.Methods = append(obj.Methods, *m)
	}
	if err := p.closeBlock(); err != nil {
		return err
	}
	doc.Objects = append(doc.Objects, *obj)
	return nil
}

// parseVariant parses `Name(type field, ...);` inside an [Enum]/[Error]
// interface block.
func (p *parser) parseVariant() (*VariantDecl, error) {
	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	variant := &VariantDecl{Name: name.Lit, Pos: name.Pos}
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	for p.peek().Kind != TokenRParen {
		typ, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		fieldName, err := p.expect(TokenIdent)
		if err != nil {
			return nil, err
		}
		variant.Fields = append(variant.Fields, FieldDecl{
			Name: fieldName.Lit,
			Type: typ,
			Pos:  fieldName.Pos,
		})
		if p.peek().Kind == TokenComma {
			if _, err := p.next(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	return variant, nil
}

func (p *parser) parseConstructor(attrs attributes) (*ConstructorDecl, error) {
	kw, err := p.expectKeyword("constructor")
	if err != nil {
		return nil, err
	}
	ctor := &ConstructorDecl{
		Name:      attrs.Name,
		Throws:    attrs.Throws,
		HasThrows: attrs.HasThrows,
		Pos:       kw.Pos,
	}
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	ctor.Args = args
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	return ctor, nil
}

func (p *parser) parseDictionary(doc string) (*DictionaryDecl, error) {
	kw, err := p.expectKeyword("dictionary")
	if err != nil {
		return nil, err
	}
	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	rec := &DictionaryDecl{Name: name.Lit, Doc: doc, Pos: kw.Pos}

	if _, err := p.expect(TokenLBrace); err != nil {
		return nil, err
	}
	for p.peek().Kind != TokenRBrace {
		fieldDoc := p.peekDoc()
		typ, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		fieldName, err := p.expect(TokenIdent)
		if err != nil {
			return nil, err
		}
		field := FieldDecl{Name: fieldName.Lit, Type: typ, Doc: fieldDoc, Pos: fieldName.Pos}
		if p.peek().Kind == TokenEquals {
			if _, err := p.next(); err != nil {
				return nil, err
			}
			lit, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			field.Default = lit
		}
		if _, err := p.expect(TokenSemicolon); err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, field)
	}
	if err := p.closeBlock(); err != nil {
		return nil, err
	}
	return rec, nil
}

func (p *parser) parseCallback(doc string) (*CallbackDecl, error) {
	kw, err := p.expectKeyword("callback")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("interface"); err != nil {
		return nil, err
	}
	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	cb := &CallbackDecl{Name: name.Lit, Doc: doc, Pos: kw.Pos}

	if _, err := p.expect(TokenLBrace); err != nil {
		return nil, err
	}
	for p.peek().Kind != TokenRBrace {
		methodDoc := p.peekDoc()
		attrs, err := p.parseAttributes()
		if err != nil {
			return nil, err
		}
		m, err := p.parseMethod(methodDoc, attrs)
		if err != nil {
			return nil, err
		}
		cb.Methods = append(cb.Methods, *m)
	}
	if err := p.closeBlock(); err != nil {
		return nil, err
	}
	return cb, nil
}

func (p *parser) parseTypedef(doc string) (*TypedefDecl, error) {
	kw, err := p.expectKeyword("typedef")
	if err != nil {
		return nil, err
	}
	typ, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	return &TypedefDecl{Name: name.Lit, Type: typ, Doc: doc, Pos: kw.Pos}, nil
}

// parseMethod parses `ReturnType name(args);` where ReturnType may be `void`.
func (p *parser) parseMethod(doc string, attrs attributes) (*MethodDecl, error) {
	var ret *TypeExpr
	start := p.peek().Pos
	if p.peek().Kind == TokenIdent && p.peek().Lit == "void" {
		if _, err := p.next(); err != nil {
			return nil, err
		}
	} else {
		typ, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		ret = &typ
	}

	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	return &MethodDecl{
		Name:      name.Lit,
		Args:      args,
		Return:    ret,
		Throws:    attrs.Throws,
		HasThrows: attrs.HasThrows,
		Doc:       doc,
		Pos:       start,
	}, nil
}

func (p *parser) parseArgList() ([]ArgDecl, error) {
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	var args []ArgDecl
	for p.peek().Kind != TokenRParen {
		typ, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		name, err := p.expect(TokenIdent)
		if err != nil {
			return nil, err
		}
		arg := ArgDecl{Name: name.Lit, Type: typ, Pos: name.Pos}
		if p.peek().Kind == TokenEquals {
			if _, err := p.next(); err != nil {
				return nil, err
			}
			lit, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			arg.Default = lit
		}
		args = append(args, arg)
		if p.peek().Kind == TokenComma {
			if _, err := p.next(); err != nil {
				return nil, err
			}
		} else {
			break
		}
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return args, nil
}

// parseTypeExpr parses a type reference: `name`, `sequence<T>`,
// `record<K, V>`, each optionally followed by `?`.
func (p *parser) parseTypeExpr() (TypeExpr, error) {
	name, err := p.expect(TokenIdent)
	if err != nil {
		return TypeExpr{}, err
	}
	expr := TypeExpr{Name: name.Lit, Pos: name.Pos}

	if p.peek().Kind == TokenLAngle {
		if _, err := p.next(); err != nil {
			return TypeExpr{}, err
		}
		for {
			arg, err := p.parseTypeExpr()
			if err != nil {
				return TypeExpr{}, err
			}
			expr.Args = append(expr.Args, arg)
			if p.peek().Kind == TokenComma {
				if _, err := p.next(); err != nil {
					return TypeExpr{}, err
				}
				continue
			}
			break
		}
		if _, err := p.expect(TokenRAngle); err != nil {
			return TypeExpr{}, err
		}
	}

	if p.peek().Kind == TokenQuestion {
		if _, err := p.next(); err != nil {
			return TypeExpr{}, err
		}
		expr.Nullable = true
	}
	return expr, nil
}

func (p *parser) parseLiteral() (*LiteralExpr, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokenString:
		if _, err := p.next(); err != nil {
			return nil, err
		}
		return &LiteralExpr{Kind: LiteralString, Str: tok.Lit, Pos: tok.Pos}, nil
	case TokenMinus, TokenInt, TokenFloat:
		return p.parseNumberLiteral()
	case TokenIdent:
		if _, err := p.next(); err != nil {
			return nil, err
		}
		switch tok.Lit {
		case "true", "false":
			return &LiteralExpr{Kind: LiteralBool, Bool: tok.Lit == "true", Pos: tok.Pos}, nil
		case "null":
			return &LiteralExpr{Kind: LiteralNull, Pos: tok.Pos}, nil
		default:
			return &LiteralExpr{Kind: LiteralEnum, Str: tok.Lit, Pos: tok.Pos}, nil
		}
	default:
		return nil, syntaxErrorf(tok.Pos, "expected a literal value, found %s", describe(tok))
	}
}

func (p *parser) parseNumberLiteral() (*LiteralExpr, error) {
	neg := false
	start := p.peek().Pos
	if p.peek().Kind == TokenMinus {
		if _, err := p.next(); err != nil {
			return nil, err
		}
		neg = true
	}
	tok := p.peek()
	switch tok.Kind {
	case TokenInt:
		if _, err := p.next(); err != nil {
			return nil, err
		}
		v, err := strconv.ParseInt(tok.Lit, 10, 64)
		if err != nil {
			return nil, syntaxErrorf(tok.Pos, "integer literal out of range: %s", tok.Lit)
		}
		if neg {
			v = -v
		}
		return &LiteralExpr{Kind: LiteralInt, Int: v, Pos: start}, nil
	case TokenFloat:
		if _, err := p.next(); err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(tok.Lit, 64)
		if err != nil {
			return nil, syntaxErrorf(tok.Pos, "float literal out of range: %s", tok.Lit)
		}
		if neg {
			v = -v
		}
		return &LiteralExpr{Kind: LiteralFloat, Float: v, Pos: start}, nil
	default:
		return nil, syntaxErrorf(tok.Pos, "expected a number, found %s", describe(tok))
	}
}

// closeBlock consumes the `};` that terminates a declaration block.
func (p *parser) closeBlock() error {
	if _, err := p.expect(TokenRBrace); err != nil {
		return err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return err
	}
	return nil
}
