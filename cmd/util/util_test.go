package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		assert.LessOrEqual(t, len(line), Wrap)
	}
	assert.Equal(t, "short text", WrapString("  short   text "))
}

func TestParseParams(t *testing.T) {
	params, err := ParseParams([]string{
		`1`,
		`-2.5`,
		`18446744073709551615`,
		`true`,
		`null`,
		`"quoted"`,
		`plain text`,
		`[1,"a"]`,
		`{"b":1,"a":2}`,
		`1 2`,
	})
	require.NoError(t, err)

	want := []common.Value{
		common.Int(1),
		common.Float(-2.5),
		common.Uint(18446744073709551615),
		common.Bool(true),
		common.Nil{},
		common.String("quoted"),
		common.String("plain text"),
		common.Array{common.Int(1), common.String("a")},
		common.Map{{Key: common.String("a"), Value: common.Int(2)}, {Key: common.String("b"), Value: common.Int(1)}},
		common.String("1 2"),
	}
	require.Len(t, params, len(want))
	for i := range want {
		assert.True(t, common.Equal(want[i], params[i]), "param %d: got %#v", i, params[i])
	}
}

func TestPrintAndReadMessages(t *testing.T) {
	msgs := []common.Message{
		common.NewRequest(3, "add", common.Int(2), common.Int(2)),
		common.NewNotification("log", common.Binary{0xff}),
		common.NewErrorResponse(3, common.String("boom")),
	}

	var buf bytes.Buffer
	for _, msg := range msgs {
		require.NoError(t, PrintMessage(&buf, msg))
	}
	assert.Equal(t, len(msgs), strings.Count(buf.String(), "\n"))

	// blank lines are ignored
	buf.WriteString("\n\n")

	got, err := ReadMessages(&buf)
	require.NoError(t, err)
	require.Len(t, got, len(msgs))
	for i := range msgs {
		assert.True(t, common.MessagesEqual(msgs[i], got[i]))
	}

	_, err = ReadMessages(strings.NewReader("{}\n"))
	assert.ErrorContains(t, err, "line 1")
}
