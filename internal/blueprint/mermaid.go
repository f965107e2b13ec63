package blueprint

import (
	"fmt"
	"path"
	"strings"
	"unicode"
)

// SyntaxError reports a malformed flowchart line.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("blueprint: line %d: %s", e.Line, e.Msg)
}

// ---- Tokenizer ----

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokEnd           // newline or ';'
	tokIdent
	tokRect  // [text]
	tokRound // (text)
	tokBrace // {text}
	tokArrow
	tokPipe // |text|
	tokDirective
)

type token struct {
	kind    tokenKind
	text    string
	line    int
	derived bool // dotted arrow
}

type lexer struct {
	src  []rune
	pos  int
	line int
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src), line: 1}
}

func (l *lexer) peek(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

func (l *lexer) next() (token, error) {
	for {
		for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t' || l.src[l.pos] == '\r') {
			l.pos++
		}
		if l.pos >= len(l.src) {
			return token{kind: tokEOF, line: l.line}, nil
		}

		c := l.src[l.pos]
		switch {
		case c == '\n':
			tok := token{kind: tokEnd, line: l.line}
			l.pos++
			l.line++
			return tok, nil
		case c == ';':
			l.pos++
			return token{kind: tokEnd, line: l.line}, nil
		case c == '%' && l.peek(1) == '%':
			text := strings.TrimSpace(l.readLine()[2:])
			if rest, ok := strings.CutPrefix(text, "@instructions"); ok {
				return token{kind: tokDirective, text: strings.TrimSpace(rest), line: l.line}, nil
			}
			continue // plain comment
		case c == '[':
			return l.readDelimited(tokRect, ']')
		case c == '(':
			return l.readDelimited(tokRound, ')')
		case c == '{':
			return l.readDelimited(tokBrace, '}')
		case c == '|':
			return l.readDelimited(tokPipe, '|')
		case c == '-' && l.peek(1) == '.':
			return l.readArrow(true)
		case (c == '-' && l.peek(1) == '-') || (c == '=' && l.peek(1) == '='):
			return l.readArrow(false)
		case isIdentRune(c):
			return token{kind: tokIdent, text: l.readIdent(), line: l.line}, nil
		default:
			return token{}, &SyntaxError{Line: l.line, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
}

// readLine consumes up to, not including, the next newline.
func (l *lexer) readLine() string {
	start := l.pos
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.pos++
	}
	return string(l.src[start:l.pos])
}

// skipStatement consumes up to the next newline or ';'.
func (l *lexer) skipStatement() {
	for l.pos < len(l.src) && l.src[l.pos] != '\n' && l.src[l.pos] != ';' {
		l.pos++
	}
}

func (l *lexer) readDelimited(kind tokenKind, closer rune) (token, error) {
	line := l.line
	l.pos++ // opener
	start := l.pos
	for l.pos < len(l.src) && l.src[l.pos] != closer {
		if l.src[l.pos] == '\n' {
			return token{}, &SyntaxError{Line: line, Msg: fmt.Sprintf("missing %q", closer)}
		}
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{}, &SyntaxError{Line: line, Msg: fmt.Sprintf("missing %q", closer)}
	}
	text := strings.TrimSpace(string(l.src[start:l.pos]))
	l.pos++ // closer
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = text[1 : len(text)-1]
	}
	return token{kind: kind, text: text, line: line}, nil
}

// readArrow consumes "-->", "---", "==>", "-.->" and their longer forms.
func (l *lexer) readArrow(dotted bool) (token, error) {
	line := l.line
	if dotted {
		l.pos += 2 // "-."
		for l.peek(0) == '.' {
			l.pos++
		}
		if l.peek(0) != '-' {
			return token{}, &SyntaxError{Line: line, Msg: "malformed dotted link"}
		}
	}
	body := l.peek(0)
	for l.peek(0) == body {
		l.pos++
	}
	if l.peek(0) == '>' {
		l.pos++
	}
	return token{kind: tokArrow, line: line, derived: dotted}, nil
}

func (l *lexer) readIdent() string {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '-' && (l.peek(1) == '-' || l.peek(1) == '.') {
			break // start of a link
		}
		if !isIdentRune(c) && c != '-' {
			break
		}
		l.pos++
	}
	return string(l.src[start:l.pos])
}

func isIdentRune(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || strings.ContainsRune("_./@:", c)
}

// ---- Parser ----

// parseState is the position within one flowchart statement.
type parseState int

const (
	stateStatement parseState = iota // expecting a node or keyword
	stateNode                        // after a node reference
	stateLink                        // after a link, expecting its target
	stateSkip                        // ignoring the rest of the statement
)

// ignoredKeywords start statements that carry no graph structure.
var ignoredKeywords = map[string]bool{
	"graph": true, "flowchart": true, "subgraph": true, "end": true,
	"classDef": true, "class": true, "style": true, "linkStyle": true,
	"click": true, "direction": true,
}

type mermaidParser struct {
	lex     *lexer
	state   parseState
	nodes   []*RawNode
	byID    map[string]*RawNode
	shaped  map[string]bool
	edges   []RawEdge
	current string // node reference that a shape or link attaches to
	link    RawEdge
	pending bool // current may still take a shape
}

// ParseMermaid reads a Mermaid flowchart subset into a Payload:
//
//	graph TD
//	  api[src/api.ts] --> db[src/db.ts]
//	  api -.->|derived| cache(Cache layer)
//	  %% @instructions api add retry around db calls
//
// Square brackets bind a node to a file path, round and curly brackets make
// a draft labeled with their text. A bare id that looks like a path is an
// Actual node for that path.
func ParseMermaid(src string) (Payload, error) {
	p := &mermaidParser{
		lex:    newLexer(src),
		byID:   make(map[string]*RawNode),
		shaped: make(map[string]bool),
	}
	if err := p.run(); err != nil {
		return Payload{}, err
	}

	out := Payload{Edges: p.edges}
	for _, n := range p.nodes {
		if !p.shaped[n.ID] && looksLikePath(n.ID) {
			n.Data.Kind = KindActual.String()
			n.Data.Path = n.ID
		}
		out.Nodes = append(out.Nodes, *n)
	}
	return out, nil
}

func (p *mermaidParser) run() error {
	for {
		tok, err := p.lex.next()
		if err != nil {
			return err
		}
		if tok.kind == tokEOF {
			return p.endStatement(tok)
		}
		if err := p.step(tok); err != nil {
			return err
		}
	}
}

func (p *mermaidParser) step(tok token) error {
	if tok.kind == tokEnd {
		return p.endStatement(tok)
	}
	if tok.kind == tokDirective {
		if p.state == stateLink {
			return &SyntaxError{Line: tok.line, Msg: "link has no target"}
		}
		return p.directive(tok)
	}
	if p.state == stateSkip {
		return nil
	}

	switch p.state {
	case stateStatement:
		switch tok.kind {
		case tokIdent:
			if ignoredKeywords[tok.text] {
				p.lex.skipStatement() // styling syntax is not tokenized
				p.state = stateSkip
				return nil
			}
			p.reference(tok.text)
			p.state = stateNode
			return nil
		}

	case stateNode:
		switch tok.kind {
		case tokRect, tokRound, tokBrace:
			if !p.pending {
				return unexpected(tok)
			}
			p.shape(tok)
			p.pending = false
			return nil
		case tokArrow:
			p.link = RawEdge{Source: p.current}
			if tok.derived {
				p.link.Kind = string(EdgeDerived)
			}
			p.state = stateLink
			p.pending = false
			return nil
		}

	case stateLink:
		switch tok.kind {
		case tokPipe:
			if p.link.Label != "" {
				return unexpected(tok)
			}
			p.link.Label = tok.text
			return nil
		case tokIdent:
			p.reference(tok.text)
			p.link.Target = tok.text
			p.edges = append(p.edges, p.link)
			p.state = stateNode
			return nil
		}
	}
	return unexpected(tok)
}

func (p *mermaidParser) endStatement(tok token) error {
	if p.state == stateLink {
		return &SyntaxError{Line: tok.line, Msg: "link has no target"}
	}
	p.state = stateStatement
	p.pending = false
	p.current = ""
	return nil
}

// reference makes id the current node, declaring it on first sight.
func (p *mermaidParser) reference(id string) {
	p.declare(id)
	p.current = id
	p.pending = true
}

func (p *mermaidParser) declare(id string) *RawNode {
	if n, ok := p.byID[id]; ok {
		return n
	}
	n := &RawNode{ID: id}
	p.byID[id] = n
	p.nodes = append(p.nodes, n)
	return n
}

func (p *mermaidParser) shape(tok token) {
	n := p.byID[p.current]
	p.shaped[p.current] = true
	if tok.kind == tokRect {
		n.Data.Kind = KindActual.String()
		n.Data.Path = tok.text
		return
	}
	n.Data.Kind = KindDraft.String()
	n.Data.Label = tok.text
}

// directive handles "%% @instructions <id> <text>". Repeated directives
// for one node append lines.
func (p *mermaidParser) directive(tok token) error {
	id, text, _ := strings.Cut(tok.text, " ")
	text = strings.TrimSpace(text)
	if id == "" || text == "" {
		return &SyntaxError{Line: tok.line, Msg: "@instructions needs a node id and text"}
	}
	n := p.declare(id)
	if n.Data.Instructions != "" {
		n.Data.Instructions += "\n"
	}
	n.Data.Instructions += text
	return nil
}

func unexpected(tok token) error {
	what := tok.text
	switch tok.kind {
	case tokArrow:
		what = "link"
	case tokRect, tokRound, tokBrace:
		what = fmt.Sprintf("shape %q", tok.text)
	case tokPipe:
		what = fmt.Sprintf("link label %q", tok.text)
	}
	return &SyntaxError{Line: tok.line, Msg: "unexpected " + what}
}

func looksLikePath(id string) bool {
	return strings.Contains(id, "/") || path.Ext(id) != ""
}
