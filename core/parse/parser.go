// Copyright 2026 The QueryCore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parse

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tupledb/querycore/core/errkit"
	"github.com/tupledb/querycore/core/expression"
	"github.com/tupledb/querycore/core/expression/function"
	"github.com/tupledb/querycore/core/types"
)

// Parser implements a recursive-descent parser over the full query
// token stream: tokenize once, then walk with index-based lookahead.
type Parser struct {
	tokens   []Token
	current  int
	rowType  *types.TupleType
	registry *function.FunctionFinder
	nextAuto int // next auto-numbered "?" ordinal
}

// Parse parses text as "[{ProjExprs}] [Filter]" against rowType,
// resolving function calls through registry. The filter defaults to
// the constant true when omitted.
func Parse(text string, rowType *types.TupleType, registry *function.FunctionFinder) ([]*expression.ProjExpr, expression.Expr, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, nil, err
	}
	p := &Parser{tokens: toks, rowType: rowType, registry: registry, nextAuto: 1}

	var projs []*expression.ProjExpr
	if p.check(TkLBrace) {
		projs, err = p.parseProjections()
		if err != nil {
			return nil, nil, err
		}
	}

	var filter expression.Expr = expression.True
	if !p.isAtEnd() {
		filter, err = p.parseExpr()
		if err != nil {
			return nil, nil, err
		}
		if !filter.Type().IsBoolean() {
			return nil, nil, errkit.At(0, len(text), errkit.ErrTypeMismatch.New("filter must be boolean"))
		}
	}

	if !p.isAtEnd() {
		tok := p.peek()
		return nil, nil, errkit.At(tok.Start, tok.End, errkit.ErrParse.New("unexpected trailing input "+tok.Text))
	}

	return projs, filter, nil
}

func tokenize(text string) ([]Token, error) {
	lex := NewLexer(text)
	var toks []Token
	for {
		tok, err := lex.NextToken()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Type == TkEOF {
			break
		}
	}
	return toks, nil
}

// --- token cursor helpers, in the pack's "tokenize fully, index-walk"
// style: peek/peekAhead/advance/check/match/isAtEnd/expect. ---

func (p *Parser) peek() Token {
	if p.current >= len(p.tokens) {
		return Token{Type: TkEOF}
	}
	return p.tokens[p.current]
}

func (p *Parser) peekAhead(n int) Token {
	pos := p.current + n
	if pos >= len(p.tokens) {
		return Token{Type: TkEOF}
	}
	return p.tokens[pos]
}

func (p *Parser) advance() Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.tokens[p.current-1]
}

func (p *Parser) check(t TokenType) bool {
	return !p.isAtEnd() && p.peek().Type == t
}

func (p *Parser) match(types ...TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) isAtEnd() bool {
	return p.current >= len(p.tokens) || p.peek().Type == TkEOF
}

func (p *Parser) expect(t TokenType, what string) (Token, error) {
	if !p.check(t) {
		tok := p.peek()
		return tok, errkit.At(tok.Start, tok.End, errkit.ErrParse.New("expected "+what+", found "+describeToken(tok)))
	}
	return p.advance(), nil
}

func describeToken(t Token) string {
	if t.Type == TkEOF {
		return "end of input"
	}
	return "'" + t.Text + "'"
}

// --- projections ---

func (p *Parser) parseProjections() ([]*expression.ProjExpr, error) {
	if _, err := p.expect(TkLBrace, "'{'"); err != nil {
		return nil, err
	}
	var projs []*expression.ProjExpr
	seen := map[string]bool{}
	for {
		proj, err := p.parseProjExpr()
		if err != nil {
			return nil, err
		}
		for _, pr := range proj {
			if pr.Name != "" {
				if seen[pr.Name] {
					return nil, errkit.ErrDuplicateBinding.New("duplicate projection name " + pr.Name)
				}
				seen[pr.Name] = true
			}
		}
		projs = append(projs, proj...)
		if !p.match(TkComma) {
			break
		}
	}
	if _, err := p.expect(TkRBrace, "'}'"); err != nil {
		return nil, err
	}
	return projs, nil
}

// parseProjExpr parses one ProjExpr. "*" expands to one plain ProjExpr
// per row column, in row order.
func (p *Parser) parseProjExpr() ([]*expression.ProjExpr, error) {
	if p.check(TkStar) {
		p.advance()
		return p.expandWildcard()
	}

	var flags expression.ProjFlag
	if p.match(TkTilde) {
		flags |= expression.ProjExclude
	}
	if p.match(TkPlus) {
		flags |= expression.ProjOrderBy
	} else if p.match(TkMinus) {
		flags |= expression.ProjOrderBy | expression.ProjDescending
	}
	if flags.Has(expression.ProjOrderBy) && p.match(TkBang) {
		flags |= expression.ProjNullLow
	}

	nameTok, err := p.expect(TkIdent, "projection name")
	if err != nil {
		return nil, err
	}
	name := nameTok.Text

	var child expression.Expr
	if p.match(TkEq) {
		child, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	} else {
		col, ok := p.rowType.TryColumnFor(name)
		if !ok {
			return nil, errkit.At(nameTok.Start, nameTok.End, errkit.ErrUnresolvedName.New("unknown column "+name))
		}
		idx := p.baseIndex(name)
		child = expression.NewBaseColumn(p.rowType, idx, &col)
	}

	proj, err := expression.NewProj(name, child, flags)
	if err != nil {
		return nil, err
	}
	return []*expression.ProjExpr{proj}, nil
}

func (p *Parser) baseIndex(name string) int {
	for i, c := range p.rowType.Columns() {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (p *Parser) expandWildcard() ([]*expression.ProjExpr, error) {
	cols := p.rowType.Columns()
	out := make([]*expression.ProjExpr, 0, len(cols))
	for i, c := range cols {
		col := c
		child := expression.NewBaseColumn(p.rowType, i, &col)
		proj, err := expression.NewProj(c.Name, child, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, proj)
	}
	return out, nil
}

// --- expressions: LogicalOr -> LogicalAnd -> BitOr -> BitXor -> BitAnd
// -> Equality -> Relational -> Shift -> Additive -> Multiplicative ->
// Unary -> Entity ---

func (p *Parser) parseExpr() (expression.Expr, error) { return p.parseLogicalOr() }

func (p *Parser) parseLogicalOr() (expression.Expr, error) {
	left, err := p.parseLogicalAnd()
	if err != nil {
		return nil, err
	}
	for p.check(TkPipePipe) {
		p.advance()
		right, err := p.parseLogicalAnd()
		if err != nil {
			return nil, err
		}
		if left, err = expression.Make(expression.OpLogOr, left, right); err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parseLogicalAnd() (expression.Expr, error) {
	left, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	for p.check(TkAmpAmp) {
		p.advance()
		right, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		if left, err = expression.Make(expression.OpLogAnd, left, right); err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parseBitOr() (expression.Expr, error) {
	left, err := p.parseBitXor()
	if err != nil {
		return nil, err
	}
	for p.check(TkPipe) {
		p.advance()
		right, err := p.parseBitXor()
		if err != nil {
			return nil, err
		}
		if left, err = expression.Make(expression.OpBitOr, left, right); err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parseBitXor() (expression.Expr, error) {
	left, err := p.parseBitAnd()
	if err != nil {
		return nil, err
	}
	for p.check(TkCaret) {
		p.advance()
		right, err := p.parseBitAnd()
		if err != nil {
			return nil, err
		}
		if left, err = expression.Make(expression.OpBitXor, left, right); err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parseBitAnd() (expression.Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.check(TkAmp) {
		p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		if left, err = expression.Make(expression.OpBitAnd, left, right); err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parseEquality() (expression.Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.check(TkEqEq) || p.check(TkNotEq) {
		op := expression.OpEq
		if p.peek().Type == TkNotEq {
			op = expression.OpNe
		}
		p.advance()
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		if left, err = expression.Make(op, left, right); err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parseRelational() (expression.Expr, error) {
	left, err := p.parseShift()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.check(TkLt), p.check(TkLe), p.check(TkGt), p.check(TkGe):
			var op expression.BinOp
			switch p.peek().Type {
			case TkLt:
				op = expression.OpLt
			case TkLe:
				op = expression.OpLe
			case TkGt:
				op = expression.OpGt
			default:
				op = expression.OpGe
			}
			p.advance()
			right, err := p.parseShift()
			if err != nil {
				return nil, err
			}
			if left, err = expression.Make(op, left, right); err != nil {
				return nil, err
			}
			continue
		case p.check(TkIdent) && p.peek().Text == "in":
			p.advance()
			rng, err := p.parseRangeLiteral(left.Type())
			if err != nil {
				return nil, err
			}
			left = expression.NewIn(left, rng)
			continue
		}
		break
	}
	return left, nil
}

func (p *Parser) parseShift() (expression.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.check(TkShl) || p.check(TkShr) {
		op := expression.OpShl
		if p.peek().Type == TkShr {
			op = expression.OpShr
		}
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if left, err = expression.Make(op, left, right); err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (expression.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.check(TkPlus) || p.check(TkMinus) {
		op := expression.OpAdd
		if p.peek().Type == TkMinus {
			op = expression.OpSub
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		if left, err = expression.Make(op, left, right); err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (expression.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.check(TkStar) || p.check(TkSlash) || p.check(TkPercent) {
		op := expression.OpMul
		switch p.peek().Type {
		case TkSlash:
			op = expression.OpDiv
		case TkPercent:
			op = expression.OpMod
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if left, err = expression.Make(op, left, right); err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parseUnary() (expression.Expr, error) {
	if p.match(TkBang) {
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return expression.MakeNot(child)
	}
	if p.match(TkMinus) {
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return expression.MakeNeg(child)
	}
	if p.match(TkPlus) {
		return p.parseUnary()
	}
	return p.parseEntity()
}

// --- entity: "(" Expr ")" | Literal | "?" [UInt] | Path ["(" [Exprs] ")"] ---

func (p *Parser) parseEntity() (expression.Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case TkLParen:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TkRParen, "')'"); err != nil {
			return nil, err
		}
		return e, nil
	case TkTrue:
		p.advance()
		return expression.NewConstant(true, types.Boolean), nil
	case TkFalse:
		p.advance()
		return expression.NewConstant(false, types.Boolean), nil
	case TkNull:
		p.advance()
		return expression.Null(types.Any), nil
	case TkString:
		p.advance()
		return expression.NewConstant(tok.Text, types.String), nil
	case TkInt:
		p.advance()
		return parseIntLiteral(tok)
	case TkLong:
		p.advance()
		return parseLongLiteral(tok)
	case TkBigInteger:
		p.advance()
		return parseBigIntLiteral(tok)
	case TkFloat:
		p.advance()
		return parseFloatLiteral(tok)
	case TkDouble:
		p.advance()
		return parseDoubleLiteral(tok)
	case TkBigDecimal:
		p.advance()
		return parseBigDecimalLiteral(tok)
	case TkQuestion:
		p.advance()
		return p.parseParam(tok)
	case TkIdent:
		return p.parsePathOrCall()
	}
	return nil, errkit.At(tok.Start, tok.End, errkit.ErrParse.New("unexpected token "+describeToken(tok)))
}

func parseIntLiteral(tok Token) (expression.Expr, error) {
	n, err := strconv.ParseInt(tok.Text, 10, 64)
	if err != nil {
		return nil, errkit.At(tok.Start, tok.End, errkit.ErrParse.New("malformed integer literal "+tok.Text))
	}
	return expression.NewConstant(n, types.Int), nil
}

func parseLongLiteral(tok Token) (expression.Expr, error) {
	n, err := strconv.ParseInt(tok.Text, 10, 64)
	if err != nil {
		return nil, errkit.At(tok.Start, tok.End, errkit.ErrParse.New("malformed long literal "+tok.Text))
	}
	return expression.NewConstant(n, types.Long), nil
}

func parseBigIntLiteral(tok Token) (expression.Expr, error) {
	n, ok := new(big.Int).SetString(tok.Text, 10)
	if !ok {
		return nil, errkit.At(tok.Start, tok.End, errkit.ErrParse.New("malformed BigInteger literal "+tok.Text))
	}
	return expression.NewConstant(n, types.BigInt), nil
}

func parseFloatLiteral(tok Token) (expression.Expr, error) {
	f, err := strconv.ParseFloat(tok.Text, 32)
	if err != nil {
		return nil, errkit.At(tok.Start, tok.End, errkit.ErrParse.New("malformed float literal "+tok.Text))
	}
	return expression.NewConstant(float32(f), types.Float), nil
}

func parseDoubleLiteral(tok Token) (expression.Expr, error) {
	f, err := strconv.ParseFloat(tok.Text, 64)
	if err != nil {
		return nil, errkit.At(tok.Start, tok.End, errkit.ErrParse.New("malformed double literal "+tok.Text))
	}
	return expression.NewConstant(f, types.Double), nil
}

func parseBigDecimalLiteral(tok Token) (expression.Expr, error) {
	d, err := decimal.NewFromString(tok.Text)
	if err != nil {
		return nil, errkit.At(tok.Start, tok.End, errkit.ErrParse.New("malformed BigDecimal literal "+tok.Text))
	}
	return expression.NewConstant(d, types.BigDecimal), nil
}

// parseParam handles "?" and "?n" (explicit 1-based ordinal, 1<=n<=100).
// Bare "?" auto-numbers using the next unclaimed ordinal in source order.
func (p *Parser) parseParam(questionTok Token) (expression.Expr, error) {
	if p.check(TkInt) {
		tok := p.peek()
		n, err := strconv.Atoi(tok.Text)
		if err != nil || n < 1 || n > 100 {
			return nil, errkit.At(questionTok.Start, tok.End, errkit.ErrArgumentCount.New("explicit parameter number must be between 1 and 100"))
		}
		p.advance()
		if n >= p.nextAuto {
			p.nextAuto = n + 1
		}
		return expression.NewParam(n, types.Any), nil
	}
	ord := p.nextAuto
	p.nextAuto++
	return expression.NewParam(ord, types.Any), nil
}

// parsePathOrCall parses Path ["(" [Exprs] ")"]: a dotted column
// access, or a function call when Path is followed directly by "(".
func (p *Parser) parsePathOrCall() (expression.Expr, error) {
	first, err := p.expect(TkIdent, "identifier")
	if err != nil {
		return nil, err
	}
	segments := []string{first.Text}
	for p.check(TkDot) {
		p.advance()
		seg, err := p.expect(TkIdent, "identifier")
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg.Text)
	}

	if p.check(TkLParen) {
		name := strings.Join(segments, ".")
		return p.parseCall(name, first)
	}

	return p.resolvePath(segments, first)
}

func (p *Parser) resolvePath(segments []string, first Token) (expression.Expr, error) {
	path := strings.Join(segments, ".")
	base, rest, ok := p.rowType.TryFindColumn(path)
	if !ok {
		return nil, errkit.At(first.Start, first.End, errkit.ErrUnresolvedName.New("unknown column "+segments[0]))
	}
	idx := p.baseIndex(base.Name)
	baseCol := expression.NewBaseColumn(p.rowType, idx, &base)
	if rest == "" {
		return baseCol, nil
	}
	return expression.NewSubColumn(baseCol, rest, &types.Column{Name: rest, Type: types.Any}), nil
}

// parseCall parses the "(" [Exprs] ")" tail of a function call. Each
// argument is either a positional Expr or a "name: value" named
// argument; values that look like a range ("a..b", with either bound
// optional) parse as a RangeExpr so window-function frame arguments
// (rows:/groups:/range:) can be expressed without special-casing those
// three names in the grammar.
func (p *Parser) parseCall(name string, nameTok Token) (expression.Expr, error) {
	if _, err := p.expect(TkLParen, "'('"); err != nil {
		return nil, err
	}

	var args []expression.Expr
	namedArgs := map[string]expression.Expr{}
	if !p.check(TkRParen) {
		for {
			argName, val, err := p.parseCallArg()
			if err != nil {
				return nil, err
			}
			if argName != "" {
				namedArgs[argName] = val
			} else {
				args = append(args, val)
			}
			if !p.match(TkComma) {
				break
			}
		}
	}
	if _, err := p.expect(TkRParen, "')'"); err != nil {
		return nil, err
	}

	applier, err := p.registry.Resolve(name, args, namedArgs)
	if err != nil {
		return nil, errkit.At(nameTok.Start, nameTok.End, err)
	}
	return expression.NewCall(name, args, namedArgs, applier)
}

func (p *Parser) parseCallArg() (string, expression.Expr, error) {
	if p.check(TkIdent) && p.peekAhead(1).Type == TkColon {
		name := p.advance().Text
		p.advance() // ":"
		val, err := p.parseRangeOrExpr()
		if err != nil {
			return "", nil, err
		}
		return name, val, nil
	}
	val, err := p.parseRangeOrExpr()
	if err != nil {
		return "", nil, err
	}
	return "", val, nil
}

// parseRangeOrExpr parses an "a..b" range (either bound optional) or,
// absent "..", a plain Expr.
func (p *Parser) parseRangeOrExpr() (expression.Expr, error) {
	if p.check(TkDotDot) {
		p.advance()
		end, err := p.maybeRangeBound()
		if err != nil {
			return nil, err
		}
		return expression.NewRange(nil, end, elementTypeOf(nil, end), true), nil
	}

	start, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if !p.check(TkDotDot) {
		return start, nil
	}
	p.advance()
	end, err := p.maybeRangeBound()
	if err != nil {
		return nil, err
	}
	return expression.NewRange(start, end, elementTypeOf(start, end), true), nil
}

func (p *Parser) maybeRangeBound() (expression.Expr, error) {
	switch p.peek().Type {
	case TkComma, TkRParen, TkEOF:
		return nil, nil
	}
	return p.parseAdditive()
}

func elementTypeOf(start, end expression.Expr) types.Type {
	if start != nil {
		return start.Type()
	}
	if end != nil {
		return end.Type()
	}
	return types.Any
}

// parseRangeLiteral parses the "a..b" operand of an "in" test; valType
// seeds the element type when both bounds are open (never in practice,
// since "in" requires at least one bound to be meaningful).
func (p *Parser) parseRangeLiteral(valType types.Type) (*expression.RangeExpr, error) {
	e, err := p.parseRangeOrExpr()
	if err != nil {
		return nil, err
	}
	rng, ok := e.(*expression.RangeExpr)
	if !ok {
		return expression.NewRange(e, e, valType, false), nil
	}
	return rng, nil
}
