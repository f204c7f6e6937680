package citation

import "strings"

// clause is one cited source within a group.
type clause struct {
	name   string
	start  string
	end    string
	quotes []string
}

func (c clause) render(b *strings.Builder) {
	b.WriteString("<doc>")
	b.WriteString(c.name)
	b.WriteString(pagesLiteral)
	b.WriteString(c.start)
	b.WriteString("-")
	b.WriteString(c.end)
	for _, q := range c.quotes {
		b.WriteString("<quote>")
		b.WriteString(q)
		b.WriteString("</quote>")
	}
	b.WriteString("</doc>")
}

// parser consumes the tokens of one candidate group.
type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() tokenKind {
	if p.pos >= len(p.toks) {
		return tokInvalid
	}
	return p.toks[p.pos].kind
}

func (p *parser) peekAt(offset int) tokenKind {
	if p.pos+offset >= len(p.toks) {
		return tokInvalid
	}
	return p.toks[p.pos+offset].kind
}

func (p *parser) expect(kind tokenKind) (string, bool) {
	if p.peek() != kind {
		return "", false
	}
	tok := p.toks[p.pos]
	p.pos++
	return tok.text, true
}

// parseGroup parses clause (sep clause)* ")". Any deviation rejects the group.
func (p *parser) parseGroup() ([]clause, bool) {
	var clauses []clause
	for {
		c, ok := p.parseClause()
		if !ok {
			return nil, false
		}
		clauses = append(clauses, c)

		switch p.peek() {
		case tokClose:
			p.pos++
			return clauses, true
		case tokSep:
			p.pos++
		default:
			return nil, false
		}
	}
}

func (p *parser) parseClause() (clause, bool) {
	var c clause
	var ok bool
	if c.name, ok = p.expect(tokName); !ok {
		return clause{}, false
	}
	if _, ok = p.expect(tokPages); !ok {
		return clause{}, false
	}
	if c.start, ok = p.expect(tokInt); !ok {
		return clause{}, false
	}
	if _, ok = p.expect(tokDash); !ok {
		return clause{}, false
	}
	if c.end, ok = p.expect(tokInt); !ok {
		return clause{}, false
	}

	if p.peek() != tokSpace {
		return c, true
	}
	p.pos++
	q, ok := p.expect(tokQuote)
	if !ok {
		return clause{}, false
	}
	c.quotes = append(c.quotes, q)

	// A separator continues the quote list only when a quote follows;
	// otherwise it belongs to the group and introduces the next clause.
	for p.peek() == tokSep && p.peekAt(1) == tokQuote {
		p.pos++
		q, _ := p.expect(tokQuote)
		c.quotes = append(c.quotes, q)
	}
	return c, true
}
