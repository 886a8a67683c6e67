// Package compiler implements the single-pass Pratt parser/emitter: no
// intermediate AST, tokens flow straight into Chunk bytecode (spec §4.4).
// Structure is grounded on rami3l-golox's vm/compiler.go (Parser driving
// a rule table keyed by precedence), adapted to this language's smaller
// grammar (no functions/classes/break/continue) and to this spec's exact
// diagnostic wording.
package compiler

import (
	"math"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"rlox/internal/chunk"
	"rlox/internal/scanner"
	"rlox/internal/token"
	"rlox/internal/value"
)

const (
	uninitialized = -1
	maxLocals     = 256
)

type local struct {
	Name  token.Token
	Depth int
}

// Parser drives the scanner one token ahead of itself (prev/curr) and
// emits directly into chunk as it recognizes grammar productions,
// tracking locals for the active compile in a single flat table (no
// nested function frames, since functions are out of scope here).
type Parser struct {
	scan    *scanner.Scanner
	chunk   *chunk.Chunk
	interns *value.StringInterns

	prev, curr token.Token

	locals     []local
	scopeDepth int

	errs      *multierror.Error
	panicMode bool
}

// Compile parses source in full and returns the resulting chunk, or an
// error describing every diagnostic accumulated along the way. interns
// is shared with the VM so string constants compiled here and values
// produced at runtime share one identity table.
func Compile(source string, interns *value.StringInterns) (*chunk.Chunk, error) {
	p := &Parser{
		scan:    scanner.New(source),
		chunk:   chunk.New(),
		interns: interns,
	}

	p.advance()
	for !p.match(token.EOF) {
		p.declaration()
	}
	p.emitByte(byte(chunk.OpReturn))

	if p.errs == nil {
		return p.chunk, nil
	}
	p.errs.ErrorFormat = formatCompileErrors
	return nil, p.errs.ErrorOrNil()
}

/* Declarations & statements */

func (p *Parser) declaration() {
	switch {
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *Parser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")
	if p.match(token.EQUAL) {
		p.expression()
	} else {
		p.emitByte(byte(chunk.OpNil))
	}
	p.consume(token.SEMI, "Expect ';' after variable declaration.")
	p.defineVariable(global)
}

func (p *Parser) statement() {
	switch {
	case p.match(token.PRINT):
		p.printStatement()
	case p.match(token.IF):
		p.ifStatement()
	case p.match(token.WHILE):
		p.whileStatement()
	case p.match(token.FOR):
		p.forStatement()
	case p.match(token.LBRACE):
		p.beginScope()
		p.block()
		p.popScope()
	default:
		p.expressionStatement()
	}
}

func (p *Parser) block() {
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RBRACE, "Expect '}' after block.")
}

func (p *Parser) printStatement() {
	p.expression()
	p.consume(token.SEMI, "Expect ';' after value.")
	p.emitByte(byte(chunk.OpPrint))
}

func (p *Parser) expressionStatement() {
	p.expression()
	p.consume(token.SEMI, "Expect ';' after expression.")
	p.emitByte(byte(chunk.OpPop))
}

func (p *Parser) ifStatement() {
	p.consume(token.LPAREN, "Expect '(' after 'if'.")
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after condition.")

	thenJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitByte(byte(chunk.OpPop))
	p.statement()

	elseJump := p.emitJump(chunk.OpJump)
	p.patchJump(thenJump)
	p.emitByte(byte(chunk.OpPop))

	if p.match(token.ELSE) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *Parser) whileStatement() {
	loopStart := len(p.chunk.Code)
	p.consume(token.LPAREN, "Expect '(' after 'while'.")
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after condition.")

	exitJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitByte(byte(chunk.OpPop))
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitByte(byte(chunk.OpPop))
}

// forStatement desugars into a while loop under its own scope: an
// optional init, a condition guard, and a step relocated to run just
// before each re-test of the condition (spec §4.4).
func (p *Parser) forStatement() {
	p.beginScope()

	p.consume(token.LPAREN, "Expect '(' after 'for'.")
	switch {
	case p.match(token.SEMI):
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.chunk.Code)
	exitJump := -1
	if !p.match(token.SEMI) {
		p.expression()
		p.consume(token.SEMI, "Expect ';' after loop condition.")
		exitJump = p.emitJump(chunk.OpJumpIfFalse)
		p.emitByte(byte(chunk.OpPop))
	}

	if !p.match(token.RPAREN) {
		bodyJump := p.emitJump(chunk.OpJump)
		incrementStart := len(p.chunk.Code)
		p.expression()
		p.emitByte(byte(chunk.OpPop))
		p.consume(token.RPAREN, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitByte(byte(chunk.OpPop))
	}
	p.popScope()
}

/* Expressions */

func (p *Parser) expression() {
	p.parsePrecedence(precAssignment)
}

func (p *Parser) number(_ bool) {
	n, err := strconv.ParseFloat(p.prev.Lexeme, 64)
	if err != nil {
		p.error("Invalid number literal.")
		return
	}
	p.emitConstant(value.NewNumber(n))
}

func (p *Parser) grouping(_ bool) {
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after expression.")
}

func (p *Parser) unary(_ bool) {
	opType := p.prev.Type
	p.parsePrecedence(precUnary)
	switch opType {
	case token.BANG:
		p.emitByte(byte(chunk.OpNot))
	case token.MINUS:
		p.emitByte(byte(chunk.OpNegate))
	}
}

func (p *Parser) binary(_ bool) {
	opType := p.prev.Type
	rule := rules[opType]
	p.parsePrecedence(rule.Prec + 1)

	switch opType {
	case token.BANG_EQUAL:
		p.emitBytes(byte(chunk.OpEqual), byte(chunk.OpNot))
	case token.EQUAL_EQUAL:
		p.emitByte(byte(chunk.OpEqual))
	case token.GREATER:
		p.emitByte(byte(chunk.OpGreater))
	case token.GREATER_EQUAL:
		p.emitBytes(byte(chunk.OpLess), byte(chunk.OpNot))
	case token.LESS:
		p.emitByte(byte(chunk.OpLess))
	case token.LESS_EQUAL:
		p.emitBytes(byte(chunk.OpGreater), byte(chunk.OpNot))
	case token.PLUS:
		p.emitByte(byte(chunk.OpAdd))
	case token.MINUS:
		p.emitByte(byte(chunk.OpSubtract))
	case token.STAR:
		p.emitByte(byte(chunk.OpMultiply))
	case token.SLASH:
		p.emitByte(byte(chunk.OpDivide))
	}
}

func (p *Parser) literal(_ bool) {
	switch p.prev.Type {
	case token.FALSE:
		p.emitByte(byte(chunk.OpFalse))
	case token.NIL:
		p.emitByte(byte(chunk.OpNil))
	case token.TRUE:
		p.emitByte(byte(chunk.OpTrue))
	}
}

func (p *Parser) string_(_ bool) {
	lexeme := p.prev.Lexeme
	text := lexeme[1 : len(lexeme)-1]
	p.emitConstant(p.interns.BuildStringValue(text))
}

func (p *Parser) variable(canAssign bool) {
	p.namedVariable(p.prev, canAssign)
}

func (p *Parser) namedVariable(name token.Token, canAssign bool) {
	var getOp, setOp chunk.OpCode
	var arg byte

	if slot := p.resolveLocal(name); slot != uninitialized {
		arg = byte(slot)
		getOp, setOp = chunk.OpGetLocal, chunk.OpSetLocal
	} else {
		arg = p.identifierConstant(name)
		getOp, setOp = chunk.OpGetGlobal, chunk.OpSetGlobal
	}

	if canAssign && p.match(token.EQUAL) {
		p.expression()
		p.emitBytes(byte(setOp), arg)
	} else {
		p.emitBytes(byte(getOp), arg)
	}
}

func (p *Parser) and_(_ bool) {
	endJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitByte(byte(chunk.OpPop))
	p.parsePrecedence(precAnd)
	p.patchJump(endJump)
}

func (p *Parser) or_(_ bool) {
	elseJump := p.emitJump(chunk.OpJumpIfFalse)
	endJump := p.emitJump(chunk.OpJump)
	p.patchJump(elseJump)
	p.emitByte(byte(chunk.OpPop))
	p.parsePrecedence(precOr)
	p.patchJump(endJump)
}

/* Pratt engine */

type prec int

const (
	precNone prec = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

type parseFn func(p *Parser, canAssign bool)

type parseRule struct {
	Prefix, Infix parseFn
	Prec          prec
}

// rules is keyed by token kind; entries absent from this map resolve to
// the zero parseRule (no prefix/infix, precNone), which is exactly
// "no rule" for parsePrecedence's purposes.
var rules map[token.TokenType]parseRule

func init() {
	rules = map[token.TokenType]parseRule{
		token.LPAREN:        {(*Parser).grouping, nil, precNone},
		token.MINUS:         {(*Parser).unary, (*Parser).binary, precTerm},
		token.PLUS:          {nil, (*Parser).binary, precTerm},
		token.SLASH:         {nil, (*Parser).binary, precFactor},
		token.STAR:          {nil, (*Parser).binary, precFactor},
		token.BANG:          {(*Parser).unary, nil, precNone},
		token.BANG_EQUAL:    {nil, (*Parser).binary, precEquality},
		token.EQUAL_EQUAL:   {nil, (*Parser).binary, precEquality},
		token.GREATER:       {nil, (*Parser).binary, precComparison},
		token.GREATER_EQUAL: {nil, (*Parser).binary, precComparison},
		token.LESS:          {nil, (*Parser).binary, precComparison},
		token.LESS_EQUAL:    {nil, (*Parser).binary, precComparison},
		token.IDENTIFIER:    {(*Parser).variable, nil, precNone},
		token.STRING:        {(*Parser).string_, nil, precNone},
		token.NUMBER:        {(*Parser).number, nil, precNone},
		token.AND:           {nil, (*Parser).and_, precAnd},
		token.OR:            {nil, (*Parser).or_, precOr},
		token.FALSE:         {(*Parser).literal, nil, precNone},
		token.NIL:           {(*Parser).literal, nil, precNone},
		token.TRUE:          {(*Parser).literal, nil, precNone},
	}
}

func (p *Parser) parsePrecedence(level prec) {
	p.advance()
	prefix := rules[p.prev.Type].Prefix
	if prefix == nil {
		p.error("Expect expression.")
		return
	}

	canAssign := level <= precAssignment
	prefix(p, canAssign)

	for level <= rules[p.curr.Type].Prec {
		p.advance()
		infix := rules[p.prev.Type].Infix
		infix(p, canAssign)
	}

	if canAssign && p.check(token.EQUAL) {
		p.errorAtCurrent("Invalid assignment target.")
	}
}

/* Locals & scope */

func (p *Parser) beginScope() {
	p.scopeDepth++
}

// popScope closes the current scope and emits one Pop per local that
// falls out of it, matching CompilerState.end_scope's drop-count
// contract (spec §4.3).
func (p *Parser) popScope() {
	p.scopeDepth--
	for len(p.locals) > 0 && p.locals[len(p.locals)-1].Depth > p.scopeDepth {
		p.locals = p.locals[:len(p.locals)-1]
		p.emitByte(byte(chunk.OpPop))
	}
}

func (p *Parser) parseVariable(errMsg string) byte {
	p.consume(token.IDENTIFIER, errMsg)
	name := p.prev
	p.declareLocal(name)
	if p.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(name)
}

func (p *Parser) declareLocal(name token.Token) {
	if p.scopeDepth == 0 {
		return
	}
	for i := len(p.locals) - 1; i >= 0; i-- {
		existing := p.locals[i]
		if existing.Depth != uninitialized && existing.Depth < p.scopeDepth {
			break
		}
		if existing.Name.Lexeme == name.Lexeme {
			p.error("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(name)
}

func (p *Parser) addLocal(name token.Token) {
	if len(p.locals) >= maxLocals {
		p.error("Too many local variables in function.")
		return
	}
	p.locals = append(p.locals, local{Name: name, Depth: uninitialized})
}

func (p *Parser) markInitialized() {
	if p.scopeDepth == 0 {
		return
	}
	p.locals[len(p.locals)-1].Depth = p.scopeDepth
}

func (p *Parser) defineVariable(global byte) {
	if p.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitBytes(byte(chunk.OpDefineGlobal), global)
}

// resolveLocal scans top-down (innermost first) and reports an error if
// the match is still uninitialized (spec §4.3).
func (p *Parser) resolveLocal(name token.Token) int {
	for i := len(p.locals) - 1; i >= 0; i-- {
		candidate := p.locals[i]
		if candidate.Name.Lexeme == name.Lexeme {
			if candidate.Depth == uninitialized {
				p.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return uninitialized
}

/* Emission */

func (p *Parser) emitByte(b byte) {
	p.chunk.Write(b, p.prev.Line)
}

func (p *Parser) emitBytes(bs ...byte) {
	for _, b := range bs {
		p.emitByte(b)
	}
}

func (p *Parser) emitConstant(v value.Value) {
	idx, ok := p.chunk.AddConstant(v)
	if !ok {
		p.error("Too many constants in one chunk.")
		return
	}
	p.emitBytes(byte(chunk.OpConstant), byte(idx))
}

func (p *Parser) identifierConstant(name token.Token) byte {
	idx, ok := p.chunk.AddConstant(p.interns.BuildStringValue(name.Lexeme))
	if !ok {
		p.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

// emitJump writes a placeholder 0xFFFF operand and returns the offset of
// its first byte, to be overwritten by patchJump once the target is
// known (spec §4.4's jump-patching protocol).
func (p *Parser) emitJump(op chunk.OpCode) int {
	p.emitBytes(byte(op), 0xff, 0xff)
	return len(p.chunk.Code) - 2
}

func (p *Parser) patchJump(offset int) {
	jump := len(p.chunk.Code) - (offset + 2)
	if jump > math.MaxUint16 {
		p.error("Too much code to jump over.")
		return
	}
	p.chunk.Code[offset] = byte(uint16(jump) >> 8)
	p.chunk.Code[offset+1] = byte(uint16(jump) & 0xff)
}

// emitLoop accounts for its own 3-byte footprint (1 opcode + 2 operand)
// in the computed backward delta (spec §4.2/§9).
func (p *Parser) emitLoop(loopStart int) {
	before := len(p.chunk.Code)
	p.emitByte(byte(chunk.OpLoop))
	offset := before - loopStart + 3
	if offset > math.MaxUint16 {
		p.error("Too much code to jump over.")
		return
	}
	p.emitBytes(byte(uint16(offset)>>8), byte(uint16(offset)&0xff))
}

/* Token stream helpers */

func (p *Parser) advance() {
	p.prev = p.curr
	for {
		tok, scanErr := p.scan.ScanToken()
		if scanErr == nil {
			p.curr = tok
			return
		}
		p.errorFromScan(scanErr)
	}
}

func (p *Parser) check(t token.TokenType) bool {
	return p.curr.Type == t
}

func (p *Parser) match(t token.TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(t token.TokenType, errMsg string) {
	if p.check(t) {
		p.advance()
		return
	}
	p.errorAtCurrent(errMsg)
}

/* Error handling */

func (p *Parser) synchronize() {
	p.panicMode = false
	for p.curr.Type != token.EOF {
		if p.prev.Type == token.SEMI {
			return
		}
		switch p.curr.Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		p.advance()
	}
}

func (p *Parser) error(msg string) {
	p.errorAt(p.prev, msg)
}

func (p *Parser) errorAtCurrent(msg string) {
	p.errorAt(p.curr, msg)
}

func (p *Parser) errorAt(tok token.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true

	var ce *CompileError
	if tok.Type == token.EOF {
		ce = &CompileError{Line: tok.Line, AtEnd: true, Message: msg}
	} else {
		ce = &CompileError{Line: tok.Line, Lexeme: tok.Lexeme, Message: msg}
	}
	logrus.Debugln(ce)
	p.errs = multierror.Append(p.errs, ce)
}

func (p *Parser) errorFromScan(err *scanner.ScanError) {
	if p.panicMode {
		return
	}
	p.panicMode = true

	ce := &ScanCompileError{Line: err.Line, Message: err.Message}
	logrus.Debugln(ce)
	p.errs = multierror.Append(p.errs, ce)
}
