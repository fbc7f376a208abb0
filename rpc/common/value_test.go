package common

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegerNormalization(t *testing.T) {
	assert.Equal(t, Int(3), Uint(3))
	assert.True(t, Equal(Int(0), Uint(0)))
	assert.False(t, Equal(Int(-1), Uint(math.MaxUint64)))

	n, ok := Int(-5).Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(-5), n)

	_, ok = Int(-5).Uint64()
	assert.False(t, ok)

	_, ok = Uint(math.MaxUint64).Int64()
	assert.False(t, ok)

	u, ok := Uint(math.MaxUint64).Uint64()
	assert.True(t, ok)
	assert.Equal(t, uint64(math.MaxUint64), u)

	assert.Equal(t, "-9223372036854775808", Int(math.MinInt64).String())
	assert.Equal(t, "18446744073709551615", Uint(math.MaxUint64).String())
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nil interface and Nil", nil, Nil{}, true},
		{"Nil and false", Nil{}, Bool(false), false},
		{"bools", Bool(true), Bool(true), true},
		{"int and float", Int(1), Float(1), false},
		{"nan", Float(math.NaN()), Float(math.NaN()), true},
		{"string and binary", String("a"), Binary("a"), false},
		{"empty and nil binary", Binary{}, Binary(nil), true},
		{"arrays", Array{Int(1), String("x")}, Array{Int(1), String("x")}, true},
		{"array order", Array{Int(1), Int(2)}, Array{Int(2), Int(1)}, false},
		{"array length", Array{Int(1)}, Array{Int(1), Nil{}}, false},
		{"maps", Map{{Key: String("a"), Value: Int(1)}}, Map{{Key: String("a"), Value: Int(1)}}, true},
		{"map values", Map{{Key: String("a"), Value: Int(1)}}, Map{{Key: String("a"), Value: Int(2)}}, false},
		{"extensions", Extension{Type: 1, Data: []byte{1}}, Extension{Type: 1, Data: []byte{1}}, true},
		{"extension types", Extension{Type: 1, Data: []byte{1}}, Extension{Type: 2, Data: []byte{1}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a))
		})
	}
}

func TestValueKinds(t *testing.T) {
	values := map[ValueKind]Value{
		KindNil:       Nil{},
		KindBool:      Bool(true),
		KindInteger:   Int(1),
		KindFloat:     Float(1),
		KindString:    String(""),
		KindBinary:    Binary{},
		KindArray:     Array{},
		KindMap:       Map{},
		KindExtension: Extension{},
	}
	for kind, v := range values {
		assert.Equal(t, kind, v.Kind())
		assert.NotEqual(t, "unknown", kind.String())
	}
	assert.Equal(t, "unknown", ValueKind(200).String())
}

func TestValueOfJSON(t *testing.T) {
	var raw any
	dec := json.NewDecoder(strings.NewReader(`[1, -2, 1.5, "s", true, null, {"b": 2, "a": [18446744073709551615]}]`))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&raw))

	v, err := ValueOf(raw)
	require.NoError(t, err)

	want := Array{
		Int(1),
		Int(-2),
		Float(1.5),
		String("s"),
		Bool(true),
		Nil{},
		Map{
			{Key: String("a"), Value: Array{Uint(math.MaxUint64)}},
			{Key: String("b"), Value: Int(2)},
		},
	}
	assert.True(t, Equal(want, v), "got %#v", v)
}

func TestValueOfNative(t *testing.T) {
	v, err := ValueOf(float64(3))
	require.NoError(t, err)
	assert.True(t, Equal(Int(3), v))

	v, err = ValueOf([]byte{1})
	require.NoError(t, err)
	assert.True(t, Equal(Binary{1}, v))

	v, err = ValueOf(String("already"))
	require.NoError(t, err)
	assert.True(t, Equal(String("already"), v))

	_, err = ValueOf(struct{}{})
	assert.Error(t, err)

	_, err = ValueOf([]any{make(chan int)})
	assert.Error(t, err)
}
