package chp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestType_StringEqualityIgnoresLength(t *testing.T) {
	a := StringType{Len: 32}
	b := StringType{Len: 256}
	assert.True(t, a.Equal(b), "string types compare equal regardless of the internal length parameter")
}

func TestType_EnumEqualityRequiresSameOrder(t *testing.T) {
	a := EnumType{Symbols: []Symbol{NewSymbol("red"), NewSymbol("green")}}
	b := EnumType{Symbols: []Symbol{NewSymbol("green"), NewSymbol("red")}}
	c := EnumType{Symbols: []Symbol{NewSymbol("red"), NewSymbol("green")}}

	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(c))
}

func TestType_ArrayEqualityChecksBoundsAndElem(t *testing.T) {
	a := ArrayType{Lo: 0, Hi: 9, Elem: IntType{}}
	b := ArrayType{Lo: 0, Hi: 9, Elem: IntType{}}
	c := ArrayType{Lo: 0, Hi: 8, Elem: IntType{}}
	d := ArrayType{Lo: 0, Hi: 9, Elem: BoolType{}}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
}

func TestType_RecordEqualityOrdersFields(t *testing.T) {
	a := RecordType{Fields: []RecordField{{Name: NewSymbol("x"), Type: IntType{}}, {Name: NewSymbol("y"), Type: BoolType{}}}}
	b := RecordType{Fields: []RecordField{{Name: NewSymbol("y"), Type: BoolType{}}, {Name: NewSymbol("x"), Type: IntType{}}}}
	assert.False(t, a.Equal(b), "field order participates in record structural equality")
}

func TestType_ErrorTypeCompatibleCascadesBothWays(t *testing.T) {
	assert.True(t, ErrorType{}.Equal(IntType{}))
	assert.True(t, Compatible(ErrorType{}, IntType{}))
	assert.True(t, Compatible(IntType{}, ErrorType{}))
}

func TestCompatible_IntRangeAgainstInt(t *testing.T) {
	assert.True(t, Compatible(IntRangeType{Lo: 0, Hi: 9}, IntType{}))
	assert.True(t, Compatible(IntType{}, IntRangeType{Lo: 0, Hi: 9}))
}

func TestCompatible_NarrowerRangeFitsWider(t *testing.T) {
	wide := IntRangeType{Lo: 0, Hi: 100}
	narrow := IntRangeType{Lo: 10, Hi: 20}
	assert.True(t, Compatible(wide, narrow))
	assert.False(t, Compatible(narrow, wide))
}

func TestCompatibleRuntime_BoundsCheck(t *testing.T) {
	r := IntRangeType{Lo: 0, Hi: 9}
	assert.True(t, CompatibleRuntime(r, 5))
	assert.False(t, CompatibleRuntime(r, 10))
	assert.True(t, CompatibleRuntime(IntType{}, 1_000_000), "a non-range type imposes no runtime bound")
}

func TestType_PortEqualityRequiresSameDirection(t *testing.T) {
	in := PortType{Payload: IntType{}, Input: true}
	out := PortType{Payload: IntType{}, Input: false}
	assert.False(t, in.Equal(out))
}

func TestType_UnionMemberLookup(t *testing.T) {
	u := UnionType{Members: []UnionMember{
		{Name: NewSymbol("num"), Type: IntType{}},
		{Name: NewSymbol("flag"), Type: BoolType{}},
	}}
	m, ok := u.Member(NewSymbol("flag"))
	assert.True(t, ok)
	assert.Equal(t, BoolType{}, m.Type)

	_, ok = u.Member(NewSymbol("missing"))
	assert.False(t, ok)
}
