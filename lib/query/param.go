package query

import (
	"strings"

	"github.com/ValentinKolb/dQuery/lib/db"
)

// --------------------------------------------------------------------------
// Logic
// --------------------------------------------------------------------------

// LogicType joins a parameter to the one before it
type LogicType uint8

const (
	LogicUndefined LogicType = iota
	LogicAnd
	LogicOr
)

func (l LogicType) String() string {
	switch l {
	case LogicOr:
		return "or"
	case LogicAnd:
		return "and"
	default:
		return ""
	}
}

// Logic is the connective in front of a parameter plus its negation
type Logic struct {
	Type LogicType
	Not  bool
}

var (
	And    = Logic{Type: LogicAnd}
	Or     = Logic{Type: LogicOr}
	AndNot = Logic{Type: LogicAnd, Not: true}
	OrNot  = Logic{Type: LogicOr, Not: true}
)

// prefix renders the logic of the parameter at position i of its list.
// The first connective is dropped; an undefined one reads as "and".
func (l Logic) prefix(i int) string {
	var b strings.Builder
	if i > 0 {
		if l.Type == LogicOr {
			b.WriteString("or ")
		} else {
			b.WriteString("and ")
		}
	}
	if l.Not {
		b.WriteString("not ")
	}
	return b.String()
}

// --------------------------------------------------------------------------
// Param
// --------------------------------------------------------------------------

// Param is a predicate. A leaf compares Left to Right; a compound param
// holds a parenthesized group of child parameters and no value children.
//
// Thread-safety: not safe for concurrent mutation, like every query node.
type Param struct {
	itemBase
	Logic      Logic
	Comparer   db.Comparer
	Left       Item
	Right      Item
	Parameters []*Param
	// IsDefault marks structural filters managed by TypeFilter and
	// StatusFilter
	IsDefault bool
}

// NewLeaf creates "left comparer right"
func NewLeaf(logic Logic, left Item, c db.Comparer, right Item) *Param {
	p := &Param{Logic: logic, Comparer: c}
	if left != nil {
		p.Left = left
		left.setHolder(p, 0)
	}
	if right != nil {
		p.Right = right
		right.setHolder(p, 1)
	}
	return p
}

// IsCompound reports whether the param groups child parameters
func (p *Param) IsCompound() bool {
	return len(p.Parameters) > 0
}

// Group returns the compound parameter that owns p, nil at query level
func (p *Param) Group() *Param {
	g, _ := p.holder.(*Param)
	return g
}

// SetLeft replaces the left operand
func (p *Param) SetLeft(it Item) error {
	if p.IsCompound() {
		return db.NewError(db.ErrCCompoundParam, "left operand on a compound parameter")
	}
	p.Left = it
	if it != nil {
		it.setHolder(p, 0)
	}
	return nil
}

// SetRight replaces the right operand
func (p *Param) SetRight(it Item) error {
	if p.IsCompound() {
		return db.NewError(db.ErrCCompoundParam, "right operand on a compound parameter")
	}
	p.Right = it
	if it != nil {
		it.setHolder(p, 1)
	}
	return nil
}

// Add appends a child parameter, turning p into a compound parameter
func (p *Param) Add(child *Param) error {
	if p.Left != nil || p.Right != nil {
		return db.NewError(db.ErrCCompoundParam, "child parameter on a leaf comparison")
	}
	p.Parameters = appendItem(Item(p), p.Parameters, child)
	return nil
}

// Column returns the left operand when it is a column reference
func (p *Param) Column() *Column {
	c, _ := p.Left.(*Column)
	return c
}

func (p *Param) Format(cmd *Command) string {
	if p.IsCompound() {
		return "(" + formatParams(cmd, p.Parameters) + ")"
	}
	if p.Left == nil {
		return ""
	}
	if arr, ok := p.Right.(*Array); ok && len(arr.Items) == 0 && p.Comparer.Type == db.CompareIn {
		// no dialect accepts "in ()": an empty list matches no row
		if p.Comparer.Not {
			return "1 = 1"
		}
		return "1 = 0"
	}
	left := p.Left.Format(cmd)
	if p.Comparer.IsEmpty() {
		return left
	}
	right := "null"
	if p.Right != nil {
		right = p.Right.Format(cmd)
	}
	return left + " " + p.Comparer.String() + " " + right
}

// formatParams joins a parameter list with the logic of each entry
func formatParams(cmd *Command, params []*Param) string {
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p.Logic.prefix(i))
		b.WriteString(p.Format(cmd))
	}
	return b.String()
}
