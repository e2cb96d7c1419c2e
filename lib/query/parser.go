package query

import (
	"strconv"
	"strings"

	"github.com/ValentinKolb/dQuery/lib/db"
)

// --------------------------------------------------------------------------
// Parser
// --------------------------------------------------------------------------

// parseState is the clause the scanner is in
type parseState uint8

const (
	stateWhere parseState = iota
	stateSelect
	stateFrom
	stateOn
	stateOrderBy
	stateGroupBy
)

// scope is one query level of the parse
type scope struct {
	q       *Query
	state   parseState
	aliases map[string]*Table
	pending *Table // table of a join whose on condition is being read
}

// parser is a single forward pass over the text. There is no token list:
// every rule peeks at the characters under the cursor and consumes them.
type parser struct {
	text   string
	pos    int
	scopes []*scope
}

// Parse parses text into a new query over table resolved against r. The
// text may be a full select statement or a bare predicate; table may be nil
// when the text names it in a from clause.
func Parse(r Resolver, table *db.Table, text string) (*Query, error) {
	q := NewWith(r, table)
	if err := q.Parse(text); err != nil {
		return q, err
	}
	return q, nil
}

// Parse appends the clauses of text to q. Unrecognized tokens are read as
// string literals rather than rejected. The returned error is Err().
func (q *Query) Parse(text string) error {
	p := &parser{text: text}
	p.parseQuery(q, false)
	return q.err
}

func (p *parser) parseQuery(q *Query, nested bool) {
	s := &scope{q: q, state: stateWhere, aliases: make(map[string]*Table)}
	p.scopes = append(p.scopes, s)
	defer func() { p.scopes = p.scopes[:len(p.scopes)-1] }()

	for {
		p.skipSpace()
		if p.eof() || (nested && p.peek() == ')') {
			return
		}
		start := p.pos
		switch p.peekWord() {
		case "select":
			p.word()
			s.state = stateSelect
			p.lookaheadFrom(s)
			p.parseSelect(s)
		case "from":
			p.word()
			s.state = stateFrom
			p.parseFrom(s)
		case "where":
			p.word()
			s.state = stateWhere
			p.parseConditions(s, func(c *Param) { q.params = appendItem(Item(q), q.params, c) })
		case "order", "group":
			kw := p.word()
			p.skipSpace()
			if p.peekWord() == "by" {
				p.word()
			}
			if kw == "order" {
				s.state = stateOrderBy
				p.parseOrder(s)
			} else {
				s.state = stateGroupBy
				p.parseGroup(s)
			}
		default:
			if s.state == stateWhere {
				p.parseConditions(s, func(c *Param) { q.params = appendItem(Item(q), q.params, c) })
			}
		}
		if p.pos == start {
			log.Debugf("skipping %q at %d", p.text[p.pos:p.pos+1], p.pos)
			p.pos++
		}
	}
}

// ----------------------------------------
// Scanning
// ----------------------------------------

func (p *parser) eof() bool { return p.pos >= len(p.text) }

func (p *parser) peek() byte { return p.peekAt(0) }

func (p *parser) peekAt(offset int) byte {
	if p.pos+offset >= len(p.text) {
		return 0
	}
	return p.text[p.pos+offset]
}

func (p *parser) skipSpace() {
	for !p.eof() && isSpace(p.peek()) {
		p.pos++
	}
}

func (p *parser) expect(ch byte) {
	p.skipSpace()
	if p.peek() == ch {
		p.pos++
	}
}

// peekWord returns the lower case word under the cursor without consuming
func (p *parser) peekWord() string {
	end := p.pos
	for end < len(p.text) && isIdentChar(p.text[end]) {
		end++
	}
	return strings.ToLower(p.text[p.pos:end])
}

// word consumes the word under the cursor and returns it in lower case
func (p *parser) word() string {
	w := p.peekWord()
	p.pos += len(w)
	return w
}

// readName consumes a possibly quoted, possibly dotted identifier and
// returns its segments
func (p *parser) readName() []string {
	var parts []string
	for {
		var part string
		switch open := p.peek(); open {
		case '"', '`', '[':
			closing := open
			if open == '[' {
				closing = ']'
			}
			p.pos++
			start := p.pos
			for !p.eof() && p.peek() != closing {
				p.pos++
			}
			part = p.text[start:p.pos]
			if !p.eof() {
				p.pos++
			}
		default:
			start := p.pos
			for !p.eof() && isIdentChar(p.peek()) {
				p.pos++
			}
			part = p.text[start:p.pos]
		}
		if part == "" {
			return parts
		}
		parts = append(parts, part)
		if p.peek() != '.' || !isNameStart(p.peekAt(1)) {
			return parts
		}
		p.pos++
	}
}

// readString consumes a quoted literal; '' escapes a quote
func (p *parser) readString() string {
	p.pos++
	var b strings.Builder
	for !p.eof() {
		ch := p.peek()
		p.pos++
		if ch == '\'' {
			if p.peek() == '\'' {
				b.WriteByte('\'')
				p.pos++
				continue
			}
			break
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// readNumber consumes a numeric literal. Hex literals stay text so the
// column decides how to read them.
func (p *parser) readNumber() (string, any) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for !p.eof() && (isIdentChar(p.peek()) || p.peek() == '.') {
		p.pos++
	}
	text := p.text[start:p.pos]
	if strings.HasPrefix(strings.ToLower(strings.TrimPrefix(text, "-")), "0x") {
		return text, text
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return text, i
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return text, f
	}
	return text, text
}

// lookaheadFrom binds the table of the from clause before the select list
// is read so its columns resolve. The cursor is not moved.
func (p *parser) lookaheadFrom(s *scope) {
	la := parser{text: p.text, pos: p.pos, scopes: p.scopes}
	depth := 0
	for !la.eof() {
		ch := la.peek()
		switch {
		case ch == '\'':
			la.readString()
			continue
		case ch == '(':
			depth++
		case ch == ')':
			if depth == 0 {
				return
			}
			depth--
		case depth == 0 && isNameStart(ch) && (la.pos == 0 || !isIdentChar(la.text[la.pos-1])):
			if la.word() == "from" {
				la.skipSpace()
				name, alias := la.readTableRef()
				la.bindBase(s, name, alias)
				return
			}
			continue
		}
		la.pos++
	}
}

// ----------------------------------------
// Clauses
// ----------------------------------------

// atClause reports whether the cursor is on a keyword ending the current
// clause
func (p *parser) atClause(s *scope) bool {
	switch p.peekWord() {
	case "from", "where", "order", "group":
		return true
	case "join", "inner", "left", "right", "cross":
		return s.state == stateOn || s.state == stateFrom
	}
	return false
}

func (p *parser) parseSelect(s *scope) {
	for {
		p.skipSpace()
		if p.eof() || p.peek() == ')' || p.atClause(s) {
			return
		}
		if ch := p.peek(); ch == ',' || ch == '*' {
			p.pos++
			continue
		}
		start := p.pos
		it := p.parseOperand(s, nil)
		p.skipSpace()
		if it != nil && p.peekWord() == "as" {
			p.word()
			p.skipSpace()
			if a, ok := it.(interface{ SetAlias(string) }); ok {
				a.SetAlias(strings.Join(p.readName(), "."))
			}
		}
		if it != nil {
			s.q.columns = appendItem(Item(s.q), s.q.columns, it)
		}
		if p.pos == start {
			p.pos++
		}
	}
}

// reserved words never read as a table alias
var reserved = map[string]bool{
	"where": true, "join": true, "inner": true, "left": true, "right": true, "outer": true,
	"cross": true, "on": true, "order": true, "group": true, "from": true, "select": true,
}

// readTableRef consumes "name [[as] alias]"
func (p *parser) readTableRef() (name, alias string) {
	p.skipSpace()
	parts := p.readName()
	if len(parts) == 0 {
		return "", ""
	}
	name = parts[len(parts)-1]
	p.skipSpace()
	if p.peekWord() == "as" {
		p.word()
		p.skipSpace()
	}
	if w := p.peekWord(); w != "" && !reserved[w] && isNameStart(p.peek()) {
		alias = p.word()
	}
	return name, alias
}

// bindBase makes the table named in a from clause the base of the query
func (p *parser) bindBase(s *scope, name, alias string) {
	if name == "" {
		return
	}
	t := s.q.lookupTable(name)
	if t == nil {
		s.q.fail(db.NewError(db.ErrCUnknownTable, "table %q", name))
		return
	}
	qt := s.q.table(t)
	if qt == nil {
		if len(s.q.tables) > 0 {
			s.q.fail(db.NewError(db.ErrCInvalidOperation, "query over %s cannot select from %s", s.q.tables[0].Table.Name(), name))
			return
		}
		qt = s.q.addTable(newTable(t, JoinNone))
	}
	if alias != "" {
		s.aliases[alias] = qt
	}
}

func (p *parser) parseFrom(s *scope) {
	name, alias := p.readTableRef()
	p.bindBase(s, name, alias)
	for {
		p.skipSpace()
		kind, ok := p.joinKeyword()
		if !ok {
			return
		}
		name, alias := p.readTableRef()
		t := s.q.lookupTable(name)
		if t == nil {
			s.q.fail(db.NewError(db.ErrCUnknownTable, "table %q", name))
			return
		}
		pending := newTable(t, kind)
		if alias != "" {
			s.aliases[alias] = pending
		}
		p.skipSpace()
		if p.peekWord() != "on" {
			s.q.fail(db.NewError(db.ErrCMissingJoin, "join %s without on condition", name))
			return
		}
		p.word()
		s.state, s.pending = stateOn, pending
		group := &Param{}
		p.parseConditions(s, func(c *Param) { _ = group.Add(c) })
		s.state, s.pending = stateFrom, nil

		switch len(group.Parameters) {
		case 0:
			s.q.fail(db.NewError(db.ErrCMissingJoin, "join %s with an empty on condition", name))
			return
		case 1:
			pending.On = group.Parameters[0]
			pending.On.Logic = Logic{}
		default:
			pending.On = group
		}
		qt := pending
		for _, existing := range s.q.tables {
			if existing.Equal(pending) {
				qt = existing
				break
			}
		}
		if qt == pending {
			s.q.addTable(pending)
		}
		if alias != "" {
			s.aliases[alias] = qt
		}
	}
}

// joinKeyword consumes "[inner|left|right] [outer] join"
func (p *parser) joinKeyword() (JoinType, bool) {
	start := p.pos
	kind := JoinInner
	switch p.peekWord() {
	case "inner":
		p.word()
	case "left":
		p.word()
		kind = JoinLeft
	case "right":
		p.word()
		kind = JoinRight
	}
	p.skipSpace()
	if p.peekWord() == "outer" {
		p.word()
		p.skipSpace()
	}
	if p.peekWord() != "join" {
		p.pos = start
		return JoinNone, false
	}
	p.word()
	return kind, true
}

func (p *parser) parseOrder(s *scope) {
	for {
		p.skipSpace()
		if p.eof() || p.peek() == ')' || p.atClause(s) {
			return
		}
		if p.peek() == ',' {
			p.pos++
			continue
		}
		start := p.pos
		it := p.parseOperand(s, nil)
		p.skipSpace()
		desc := false
		switch p.peekWord() {
		case "asc":
			p.word()
		case "desc":
			p.word()
			desc = true
		}
		if it != nil {
			s.q.appendOrder(it, desc)
		}
		if p.pos == start {
			p.pos++
		}
	}
}

func (p *parser) parseGroup(s *scope) {
	for {
		p.skipSpace()
		if p.eof() || p.peek() == ')' || p.atClause(s) {
			return
		}
		if p.peek() == ',' {
			p.pos++
			continue
		}
		start := p.pos
		if it := p.parseOperand(s, nil); it != nil {
			s.q.groups = appendItem(Item(s.q), s.q.groups, it)
		}
		if p.pos == start {
			p.pos++
		}
	}
}

// ----------------------------------------
// Predicates
// ----------------------------------------

// parseConditions reads a logic separated predicate list up to a closing
// parenthesis, a clause keyword or the end of the text
func (p *parser) parseConditions(s *scope, add func(*Param)) {
	var logic Logic
	for {
		p.skipSpace()
		if p.eof() || p.peek() == ')' || p.atClause(s) {
			return
		}
		switch p.peekWord() {
		case "and":
			p.word()
			logic.Type = LogicAnd
			continue
		case "or":
			p.word()
			logic.Type = LogicOr
			continue
		case "not":
			p.word()
			logic.Not = !logic.Not
			continue
		}
		start := p.pos
		if c := p.parseCondition(s); c != nil {
			c.Logic = Logic{Type: logic.Type, Not: c.Logic.Not != logic.Not}
			add(c)
		}
		logic = Logic{}
		if p.pos == start {
			p.pos++
		}
	}
}

// parseCondition reads one predicate. A parenthesis that does not open a
// sub-query opens a compound group; a group of one is flattened.
func (p *parser) parseCondition(s *scope) *Param {
	if p.peek() == '(' && !p.sniffSelect() {
		p.pos++
		group := &Param{}
		p.parseConditions(s, func(c *Param) { _ = group.Add(c) })
		p.expect(')')
		switch len(group.Parameters) {
		case 0:
			return nil
		case 1:
			return group.Parameters[0]
		default:
			return group
		}
	}

	left := p.parseOperand(s, nil)
	if left == nil {
		return nil
	}
	ctx := columnOf(left)
	p.skipSpace()
	c, ok := p.parseComparer()
	if !ok {
		if ctx != nil && ctx.DataType().Kind == db.KindBool {
			return NewLeaf(Logic{}, left, db.Equal, &Value{Val: true, Column: ctx})
		}
		return NewLeaf(Logic{}, left, db.Comparer{}, nil)
	}

	var right Item
	p.skipSpace()
	switch c.Type {
	case db.CompareIs:
		if p.peekWord() == "null" {
			p.word()
			right = NewValue(nil)
		} else {
			right = p.parseOperand(s, ctx)
		}
	case db.CompareIn:
		right = p.parseIn(s, ctx)
	case db.CompareBetween:
		lo := p.parseOperand(s, ctx)
		p.skipSpace()
		if lo != nil && p.peekWord() == "and" {
			p.word()
			if hi := p.parseOperand(s, ctx); hi != nil {
				right = NewBetween(lo, hi)
				break
			}
		}
		right = lo
	case db.CompareLike:
		right = p.parseOperand(s, nil)
	default:
		right = p.parseOperand(s, ctx)
	}
	if right == nil {
		right = NewValue(nil)
	}
	if v, ok := right.(*Value); ok && !v.Raw && db.Unwrap(v.Val) == nil && c.Type == db.CompareEqual {
		c.Type = db.CompareIs
	}
	return NewLeaf(Logic{}, left, c, right)
}

// parseComparer reads an operator character by character; word operators
// follow. The cursor is restored when nothing matches.
func (p *parser) parseComparer() (db.Comparer, bool) {
	start := p.pos
	switch p.peek() {
	case '=':
		p.pos++
		if p.peek() == '=' {
			p.pos++
		}
		return db.Equal, true
	case '!':
		if p.peekAt(1) == '=' {
			p.pos += 2
			return db.NotEqual, true
		}
		return db.Comparer{}, false
	case '<':
		p.pos++
		switch p.peek() {
		case '>':
			p.pos++
			return db.NotEqual, true
		case '=':
			p.pos++
			return db.Comparer{Type: db.CompareLessOrEqual}, true
		}
		return db.Less, true
	case '>':
		p.pos++
		if p.peek() == '=' {
			p.pos++
			return db.Comparer{Type: db.CompareGreaterOrEqual}, true
		}
		return db.Greater, true
	}

	var c db.Comparer
	if p.peekWord() == "not" {
		p.word()
		p.skipSpace()
		c.Not = true
	}
	switch p.peekWord() {
	case "like":
		c.Type = db.CompareLike
	case "in":
		c.Type = db.CompareIn
	case "between":
		c.Type = db.CompareBetween
	case "is":
		p.word()
		p.skipSpace()
		if p.peekWord() == "not" {
			p.word()
			c.Not = !c.Not
		}
		c.Type = db.CompareIs
		return c, true
	default:
		p.pos = start
		return db.Comparer{}, false
	}
	p.word()
	return c, true
}

// parseIn reads the operand list of In. Empty entries and nulls are
// skipped; a leading select makes it a sub-query.
func (p *parser) parseIn(s *scope, ctx db.Column) Item {
	if p.peek() != '(' {
		return p.parseOperand(s, ctx)
	}
	if p.sniffSelect() {
		return p.parseSubQuery(s)
	}
	p.pos++
	arr := &Array{}
	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		if p.peek() == ')' {
			p.pos++
			break
		}
		if p.peek() == ',' {
			p.pos++
			continue
		}
		start := p.pos
		it := p.parseOperand(s, ctx)
		if v, ok := it.(*Value); ok && !v.Raw && db.Unwrap(v.Val) == nil {
			it = nil
		}
		if it != nil {
			arr.Add(it)
		}
		if p.pos == start {
			p.pos++
		}
	}
	return arr
}

// sniffSelect reports whether the parenthesis under the cursor opens a
// sub-query
func (p *parser) sniffSelect() bool {
	i := p.pos + 1
	for i < len(p.text) && isSpace(p.text[i]) {
		i++
	}
	end := i
	for end < len(p.text) && isIdentChar(p.text[end]) {
		end++
	}
	return strings.EqualFold(p.text[i:end], "select")
}

func (p *parser) parseSubQuery(s *scope) *Query {
	p.pos++
	sub := NewWith(s.q.resolver, nil)
	p.parseQuery(sub, true)
	p.expect(')')
	s.q.fail(sub.err)
	return sub
}

// ----------------------------------------
// Operands
// ----------------------------------------

// parseOperand reads an arithmetic expression: terms joined by + and -.
// ctx types the literals of the expression, nil keeps them untyped.
func (p *parser) parseOperand(s *scope, ctx db.Column) Item {
	left := p.parseTerm(s, ctx)
	for left != nil {
		p.skipSpace()
		op := p.peek()
		if op != '+' && op != '-' {
			return left
		}
		p.pos++
		right := p.parseTerm(s, ctx)
		if right == nil {
			return left
		}
		left = NewExpression(left, op, right)
	}
	return left
}

func (p *parser) parseTerm(s *scope, ctx db.Column) Item {
	left := p.parseFactor(s, ctx)
	for left != nil {
		p.skipSpace()
		op := p.peek()
		if op != '*' && op != '/' && op != '%' {
			return left
		}
		p.pos++
		right := p.parseFactor(s, ctx)
		if right == nil {
			return left
		}
		left = NewExpression(left, op, right)
	}
	return left
}

func (p *parser) parseFactor(s *scope, ctx db.Column) Item {
	p.skipSpace()
	if p.eof() {
		return nil
	}
	ch := p.peek()
	switch {
	case ch == '(':
		if p.sniffSelect() {
			return p.parseSubQuery(s)
		}
		p.pos++
		it := p.parseOperand(s, ctx)
		p.expect(')')
		return it
	case ch == '\'':
		raw := p.readString()
		return p.literal(s, ctx, db.QuoteLiteral(raw), raw, true)
	case isDigit(ch) || (ch == '-' || ch == '.') && isDigit(p.peekAt(1)):
		text, v := p.readNumber()
		return p.literal(s, ctx, text, v, true)
	case ch == ')' || ch == ',':
		return nil
	case isNameStart(ch) || ch == '"' || ch == '`' || ch == '[':
		return p.parseIdentifier(s, ctx)
	default:
		start := p.pos
		for !p.eof() && !isSpace(p.peek()) && p.peek() != ')' && p.peek() != ',' {
			p.pos++
		}
		text := p.text[start:p.pos]
		log.Debugf("unrecognized token %q read as literal", text)
		return p.literal(s, ctx, text, text, false)
	}
}

// literal creates a value typed by ctx. Strict literals record a parse
// failure on the query; permissive ones stay untyped text.
func (p *parser) literal(s *scope, ctx db.Column, text string, v any, strict bool) Item {
	val := &Value{itemBase: itemBase{text: text}, Val: v}
	if ctx == nil || v == nil {
		return val
	}
	typed, err := ctx.ParseValue(v)
	if err != nil {
		if strict {
			s.q.fail(err)
		}
		return val
	}
	val.Val, val.Column = typed, ctx
	return val
}

func (p *parser) parseIdentifier(s *scope, ctx db.Column) Item {
	parts := p.readName()
	text := strings.Join(parts, ".")
	switch strings.ToLower(text) {
	case "true", "false":
		return p.literal(s, ctx, text, strings.EqualFold(text, "true"), true)
	case "null":
		return &Value{itemBase: itemBase{text: text}}
	}
	if len(parts) == 1 {
		save := p.pos
		p.skipSpace()
		if p.peek() == '(' && IsFunction(parts[0]) {
			return p.parseFunction(s, strings.ToLower(parts[0]))
		}
		p.pos = save
	}
	if it := p.resolve(s, parts); it != nil {
		return it
	}
	log.Debugf("unresolved name %q read as literal", text)
	return p.literal(s, ctx, text, text, false)
}

func (p *parser) parseFunction(s *scope, name string) Item {
	p.pos++
	f := NewFunction(name)
	f.text = name
	arg := 0
	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		switch p.peek() {
		case ')':
			p.pos++
			return f
		case ',':
			p.pos++
			arg++
			continue
		}
		start := p.pos
		switch {
		case arg == 0 && rawFirstArg(name):
			if w := p.word(); w != "" {
				f.AddArg(newRaw(w))
			}
		case name == "parse" && p.peekWord() == "as":
			p.word()
			p.skipSpace()
			if w := p.word(); w != "" {
				f.AddArg(newRaw(w))
			}
		default:
			if it := p.parseOperand(s, nil); it != nil {
				f.AddArg(it)
			}
		}
		if p.pos == start {
			p.pos++
		}
	}
	return f
}

// ----------------------------------------
// Name Resolution
// ----------------------------------------

// resolve binds a name: a column of the scoped tables (innermost query
// first, so sub-queries may correlate), a table or alias qualified column,
// dotted navigation over references, and finally a dynamic member
func (p *parser) resolve(s *scope, parts []string) Item {
	name := parts[len(parts)-1]

	if len(parts) == 1 {
		for i := len(p.scopes) - 1; i >= 0; i-- {
			sc := p.scopes[i]
			for _, qt := range sc.tables() {
				if col := qt.Table.ParseColumn(name); col != nil {
					return NewColumn(col, qt)
				}
			}
		}
	}

	if len(parts) == 2 {
		for i := len(p.scopes) - 1; i >= 0; i-- {
			if qt := p.scopes[i].lookupAlias(parts[0]); qt != nil {
				if col := qt.Table.ParseColumn(name); col != nil {
					return NewColumn(col, qt)
				}
			}
		}
		if t := s.q.lookupTable(parts[0]); t != nil {
			if col := t.ParseColumn(name); col != nil {
				qt, err := s.q.JoinPath(t)
				if err != nil {
					s.q.fail(err)
					return nil
				}
				return NewColumn(col, qt)
			}
		}
	}

	if len(parts) > 1 {
		if c := p.navigate(s, parts); c != nil {
			return c
		}
	}

	if len(parts) == 1 {
		for _, qt := range s.tables() {
			if get, ok := qt.Table.Property(name); ok {
				return &Member{itemBase: itemBase{text: name}, Table: qt, Get: get}
			}
		}
	}
	return nil
}

// navigate follows a dotted path from the base table: each segment but the
// last names a reference column or a referencing table. Joins are created
// only once the whole path resolved, and reused when already present.
func (p *parser) navigate(s *scope, parts []string) *Column {
	cur := s.q.Base()
	if cur == nil {
		return nil
	}
	if qt := s.lookupAlias(parts[0]); qt != nil && len(parts) > 2 {
		cur, parts = qt, parts[1:]
	}

	var hops []db.Column
	t := cur.Table
	for _, seg := range parts[:len(parts)-1] {
		col := p.hopColumn(s, t, seg)
		if col == nil {
			return nil
		}
		hops = append(hops, col)
		if col.Table() == t {
			t = col.ReferenceTable()
		} else {
			t = col.Table()
		}
	}
	last := t.ParseColumn(parts[len(parts)-1])
	if last == nil {
		return nil
	}
	for _, col := range hops {
		next, err := s.q.joinVia(cur, col, JoinInner)
		if err != nil {
			s.q.fail(err)
			return nil
		}
		cur = next
	}
	return NewColumn(last, cur)
}

// hopColumn finds the column crossed by a path segment from t: a reference
// column of t, or a column of another table referencing t whose table (or
// own) name matches
func (p *parser) hopColumn(s *scope, t *db.Table, seg string) db.Column {
	if col := t.ParseColumn(seg); col != nil && col.IsReference() && col.ReferenceTable() != nil {
		return col
	}
	for _, ref := range s.q.referencing(t) {
		if strings.EqualFold(ref.Table().Name(), seg) {
			return ref
		}
	}
	return nil
}

// tables returns the tables a name can bind to in this scope
func (s *scope) tables() []*Table {
	if s.pending == nil {
		return s.q.tables
	}
	return append(append([]*Table(nil), s.q.tables...), s.pending)
}

// lookupAlias finds a table by explicit alias, generated alias or name
func (s *scope) lookupAlias(name string) *Table {
	if qt, ok := s.aliases[strings.ToLower(name)]; ok {
		return qt
	}
	for _, qt := range s.tables() {
		if strings.EqualFold(qt.Alias(), name) || strings.EqualFold(qt.Table.Name(), name) {
			return qt
		}
	}
	return nil
}

// columnOf returns the db column behind a column reference
func columnOf(it Item) db.Column {
	if c, ok := it.(*Column); ok && c.IsReference() {
		return c.Col
	}
	return nil
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isNameStart(ch byte) bool {
	return ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}

func isIdentChar(ch byte) bool {
	return isNameStart(ch) || isDigit(ch) || ch == '$' || ch == '#'
}
